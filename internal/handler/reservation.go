package handler

import (
    "context"
    "io"
    "mime"
    "net/http"
    "path/filepath"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/cinema-reservation-api/internal/confirmation"
    "github.com/iliyamo/cinema-reservation-api/internal/model"
    "github.com/iliyamo/cinema-reservation-api/internal/service"
)

// ReservationDetails is the joined read model used for responses.
type ReservationDetails interface {
    GetDetail(ctx context.Context, id uint64) (model.ReservationDetail, error)
    ListDetails(ctx context.Context) ([]model.ReservationDetail, error)
}

// ReservationHandler exposes the booking service over HTTP.  Name and
// email shape are validated here; the service only sees well-formed input.
type ReservationHandler struct {
    Service        *service.BookingService
    Details        ReservationDetails
    MaxUploadBytes int64 // upper bound for an uploaded document
}

// createReservationRequest is the body of POST /v1/reservations.
type createReservationRequest struct {
    ScreeningID   uint64 `json:"screening_id" validate:"required"`
    SeatNumber    int    `json:"seat_number" validate:"min=1,max=1000"`
    CustomerName  string `json:"customer_name" validate:"required,max=100"`
    CustomerEmail string `json:"customer_email" validate:"required,email"`
}

// Create handles POST /v1/reservations.  It answers 201 with the new
// reservation, 400 for malformed input, unknown screenings and seats
// outside the theater, and 409 when the seat is already taken.
func (h *ReservationHandler) Create(c echo.Context) error {
    var req createReservationRequest
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    req.CustomerName = strings.TrimSpace(req.CustomerName)
    req.CustomerEmail = strings.TrimSpace(req.CustomerEmail)
    if err := c.Validate(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": validationMessage(err)})
    }

    ctx := c.Request().Context()
    res, err := h.Service.Book(ctx, service.BookRequest{
        ScreeningID:   req.ScreeningID,
        SeatNumber:    req.SeatNumber,
        CustomerName:  req.CustomerName,
        CustomerEmail: req.CustomerEmail,
    })
    if err != nil {
        return writeError(c, "book", err)
    }
    detail, err := h.Details.GetDetail(ctx, res.ID)
    if err != nil {
        // The booking is committed; fall back to the bare record.
        c.Logger().Warnf("reservation %d created but detail lookup failed: %v", res.ID, err)
        return c.JSON(http.StatusCreated, res)
    }
    return c.JSON(http.StatusCreated, detail)
}

// List handles GET /v1/reservations.
func (h *ReservationHandler) List(c echo.Context) error {
    items, err := h.Details.ListDetails(c.Request().Context())
    if err != nil {
        return writeError(c, "list reservations", err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /v1/reservations/:id.
func (h *ReservationHandler) Get(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return invalidID(c, "reservation")
    }
    detail, err := h.Details.GetDetail(c.Request().Context(), id)
    if err != nil {
        return writeError(c, "get reservation", err)
    }
    return c.JSON(http.StatusOK, detail)
}

// UpdateStatus handles PUT /v1/reservations/:id/status with a body of
// {"is_confirmed": bool}.  The field is mandatory.
func (h *ReservationHandler) UpdateStatus(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return invalidID(c, "reservation")
    }
    var body struct {
        IsConfirmed *bool `json:"is_confirmed" validate:"required"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if err := c.Validate(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": validationMessage(err)})
    }
    res, err := h.Service.UpdateStatus(c.Request().Context(), id, *body.IsConfirmed)
    if err != nil {
        return writeError(c, "update status", err)
    }
    return c.JSON(http.StatusOK, res)
}

// Delete handles DELETE /v1/reservations/:id and frees the seat.
func (h *ReservationHandler) Delete(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return invalidID(c, "reservation")
    }
    if err := h.Service.Delete(c.Request().Context(), id); err != nil {
        return writeError(c, "delete reservation", err)
    }
    return c.NoContent(http.StatusNoContent)
}

// TakenSeats handles GET /v1/screenings/:id/taken-seats.
func (h *ReservationHandler) TakenSeats(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return invalidID(c, "screening")
    }
    seats, err := h.Service.SeatsTaken(c.Request().Context(), id)
    if err != nil {
        return writeError(c, "taken seats", err)
    }
    return c.JSON(http.StatusOK, echo.Map{"screening_id": id, "seats": seats})
}

// QRCode handles GET /v1/reservations/:id/qr and returns a PNG.
func (h *ReservationHandler) QRCode(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return invalidID(c, "reservation")
    }
    res, err := h.Service.Get(c.Request().Context(), id)
    if err != nil {
        return writeError(c, "get reservation", err)
    }
    png, err := confirmation.QRCode(res)
    if err != nil {
        return writeError(c, "render qr", err)
    }
    return c.Blob(http.StatusOK, "image/png", png)
}

// UploadDocument handles POST /v1/reservations/:id/document.  The file is
// read from the multipart field "file".
func (h *ReservationHandler) UploadDocument(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return invalidID(c, "reservation")
    }
    fh, err := c.FormFile("file")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "file is required"})
    }
    if h.MaxUploadBytes > 0 && fh.Size > h.MaxUploadBytes {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "file too large", "max_bytes": h.MaxUploadBytes})
    }
    f, err := fh.Open()
    if err != nil {
        return writeError(c, "open upload", err)
    }
    defer f.Close()
    var r io.Reader = f
    if h.MaxUploadBytes > 0 {
        r = io.LimitReader(f, h.MaxUploadBytes+1)
    }
    data, err := io.ReadAll(r)
    if err != nil {
        return writeError(c, "read upload", err)
    }
    if h.MaxUploadBytes > 0 && int64(len(data)) > h.MaxUploadBytes {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "file too large", "max_bytes": h.MaxUploadBytes})
    }

    res, err := h.Service.AttachDocument(c.Request().Context(), id, data, fh.Filename)
    if err != nil {
        return writeError(c, "attach document", err)
    }
    return c.JSON(http.StatusOK, echo.Map{"id": res.ID, "document_ref": res.DocumentRef})
}

// DownloadDocument handles GET /v1/reservations/:id/document.
func (h *ReservationHandler) DownloadDocument(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return invalidID(c, "reservation")
    }
    data, ref, err := h.Service.Document(c.Request().Context(), id)
    if err != nil {
        return writeError(c, "download document", err)
    }
    ctype := mime.TypeByExtension(filepath.Ext(ref))
    if ctype == "" {
        ctype = echo.MIMEOctetStream
    }
    c.Response().Header().Set(echo.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": originalName(ref)}))
    return c.Blob(http.StatusOK, ctype, data)
}

// originalName strips the unique prefix the blob store adds.
func originalName(ref string) string {
    if _, name, ok := strings.Cut(ref, "_"); ok && name != "" {
        return name
    }
    return ref
}

package handler

import (
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/cinema-reservation-api/internal/repository"
    "github.com/iliyamo/cinema-reservation-api/internal/service"
)

// writeError renders err as {"error": ...} with the status its kind calls
// for.  Expected outcomes map to 4xx; anything else is logged with op and
// answered with an opaque 500.
func writeError(c echo.Context, op string, err error) error {
    var (
        verr *service.ValidationError
        cerr *service.CapacityError
    )
    switch {
    case errors.As(err, &verr):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": verr.Message, "field": verr.Field})
    case errors.As(err, &cerr):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": cerr.Error(), "seat": cerr.Seat, "capacity": cerr.Capacity})
    case errors.Is(err, service.ErrSeatTaken):
        return c.JSON(http.StatusConflict, echo.Map{"error": "seat already taken, pick another seat"})
    case errors.Is(err, repository.ErrReservationNotFound),
        errors.Is(err, repository.ErrScreeningNotFound),
        errors.Is(err, repository.ErrMovieNotFound),
        errors.Is(err, service.ErrDocumentNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
    }
    c.Logger().Errorj(map[string]any{"op": op, "error": err.Error()})
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// parseID reads a positive integer path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || id == 0 {
        return 0, false
    }
    return id, true
}

func invalidID(c echo.Context, what string) error {
    return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid " + what + " id"})
}

package handler

import (
    "bytes"
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "mime/multipart"
    "net/http"
    "net/http/httptest"
    "path/filepath"
    "strings"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/labstack/gommon/log"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/cinema-reservation-api/internal/database"
    "github.com/iliyamo/cinema-reservation-api/internal/model"
    "github.com/iliyamo/cinema-reservation-api/internal/repository"
    "github.com/iliyamo/cinema-reservation-api/internal/service"
    "github.com/iliyamo/cinema-reservation-api/internal/storage"
)

type testServer struct {
    e         *echo.Echo
    screening model.Screening
    movie     model.Movie
}

// newTestServer wires handlers over SQLite with one movie and one
// screening in a theater of the given capacity.  Routes mirror the
// production router; middleware is left out.
func newTestServer(t *testing.T, capacity int) *testServer {
    t.Helper()
    db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "cinema.db"))
    require.NoError(t, err)
    t.Cleanup(func() { db.Close() })

    catalog := repository.NewCatalogRepo(db)
    ledger := repository.NewReservationRepo(db)
    blobs, err := storage.NewFileStore(filepath.Join(t.TempDir(), "uploads"))
    require.NoError(t, err)
    logger := log.New("test")
    logger.SetOutput(io.Discard)
    svc := service.NewBookingService(ledger, catalog, blobs, nil, nil, logger)

    ctx := context.Background()
    th := model.Theater{Name: "Theater 1", Capacity: capacity}
    require.NoError(t, catalog.CreateTheater(ctx, &th))
    mv := model.Movie{Title: "Paper Lanterns", Description: "Shop.", DurationMinutes: 97, Genre: "Comedy"}
    require.NoError(t, catalog.CreateMovie(ctx, &mv))
    sc := model.Screening{MovieID: mv.ID, TheaterID: th.ID, StartsAt: time.Date(2030, 2, 2, 19, 0, 0, 0, time.UTC)}
    require.NoError(t, catalog.CreateScreening(ctx, &sc))

    e := echo.New()
    e.Logger.SetOutput(io.Discard)
    e.Validator = NewRequestValidator()

    ch := &CatalogHandler{Catalog: catalog}
    rh := &ReservationHandler{Service: svc, Details: ledger, MaxUploadBytes: 64}
    e.GET("/healthz", Health)
    e.GET("/readyz", Ready(db))
    e.GET("/v1/movies", ch.ListMovies)
    e.GET("/v1/movies/:id", ch.GetMovie)
    e.GET("/v1/movies/:id/screenings", ch.ListMovieScreenings)
    e.GET("/v1/screenings/:id", ch.GetScreening)
    e.GET("/v1/screenings/:id/taken-seats", rh.TakenSeats)
    e.POST("/v1/reservations", rh.Create)
    e.GET("/v1/reservations", rh.List)
    e.GET("/v1/reservations/:id", rh.Get)
    e.PUT("/v1/reservations/:id/status", rh.UpdateStatus)
    e.DELETE("/v1/reservations/:id", rh.Delete)
    e.POST("/v1/reservations/:id/document", rh.UploadDocument)
    e.GET("/v1/reservations/:id/document", rh.DownloadDocument)
    e.GET("/v1/reservations/:id/qr", rh.QRCode)

    return &testServer{e: e, screening: sc, movie: mv}
}

func (s *testServer) request(method, target string, body any) *httptest.ResponseRecorder {
    var r io.Reader
    if body != nil {
        raw, _ := json.Marshal(body)
        r = bytes.NewReader(raw)
    }
    req := httptest.NewRequest(method, target, r)
    if body != nil {
        req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    }
    rec := httptest.NewRecorder()
    s.e.ServeHTTP(rec, req)
    return rec
}

func (s *testServer) book(seat int, name string) *httptest.ResponseRecorder {
    return s.request(http.MethodPost, "/v1/reservations", echo.Map{
        "screening_id":   s.screening.ID,
        "seat_number":    seat,
        "customer_name":  name,
        "customer_email": strings.ToLower(name) + "@example.com",
    })
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
    t.Helper()
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestHealthAndReady(t *testing.T) {
    s := newTestServer(t, 10)

    rec := s.request(http.MethodGet, "/healthz", nil)
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "ok", rec.Body.String())

    rec = s.request(http.MethodGet, "/readyz", nil)
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), "ready")
}

type failingPinger struct{}

func (failingPinger) PingContext(context.Context) error { return errors.New("down") }

func TestReadyReportsUnavailable(t *testing.T) {
    e := echo.New()
    e.Logger.SetOutput(io.Discard)
    e.GET("/readyz", Ready(failingPinger{}))
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
    assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCreateReservation(t *testing.T) {
    s := newTestServer(t, 10)

    rec := s.book(3, "Ada")
    require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
    var got model.ReservationDetail
    decode(t, rec, &got)
    assert.NotZero(t, got.ID)
    assert.Equal(t, 3, got.SeatNumber)
    assert.False(t, got.IsConfirmed)
    assert.Nil(t, got.DocumentRef)
    assert.Equal(t, "Paper Lanterns", got.MovieTitle)
    assert.Equal(t, "Theater 1", got.TheaterName)

    rec = s.book(3, "Bob")
    assert.Equal(t, http.StatusConflict, rec.Code)
    assert.Contains(t, rec.Body.String(), "seat already taken")
}

func TestCreateReservationRejectsBadInput(t *testing.T) {
    s := newTestServer(t, 10)

    cases := []struct {
        name    string
        body    any
        status  int
        message string
    }{
        {"seat above capacity", echo.Map{"screening_id": s.screening.ID, "seat_number": 11, "customer_name": "A", "customer_email": "a@x.com"}, http.StatusBadRequest, "outside the theater range 1..10"},
        {"seat zero", echo.Map{"screening_id": s.screening.ID, "seat_number": 0, "customer_name": "A", "customer_email": "a@x.com"}, http.StatusBadRequest, "seat_number must be at least 1"},
        {"unknown screening", echo.Map{"screening_id": s.screening.ID + 5, "seat_number": 1, "customer_name": "A", "customer_email": "a@x.com"}, http.StatusBadRequest, "unknown screening"},
        {"bad email", echo.Map{"screening_id": s.screening.ID, "seat_number": 1, "customer_name": "A", "customer_email": "nope"}, http.StatusBadRequest, "customer_email must be a valid email"},
        {"missing name", echo.Map{"screening_id": s.screening.ID, "seat_number": 1, "customer_name": "  ", "customer_email": "a@x.com"}, http.StatusBadRequest, "customer_name is required"},
        {"long name", echo.Map{"screening_id": s.screening.ID, "seat_number": 1, "customer_name": strings.Repeat("n", 101), "customer_email": "a@x.com"}, http.StatusBadRequest, "at most 100 characters"},
        {"missing screening", echo.Map{"seat_number": 1, "customer_name": "A", "customer_email": "a@x.com"}, http.StatusBadRequest, "screening_id is required"},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            rec := s.request(http.MethodPost, "/v1/reservations", tc.body)
            assert.Equal(t, tc.status, rec.Code)
            assert.Contains(t, rec.Body.String(), tc.message)
        })
    }

    req := httptest.NewRequest(http.MethodPost, "/v1/reservations", strings.NewReader("{"))
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    rec := httptest.NewRecorder()
    s.e.ServeHTTP(rec, req)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCapacityErrorCarriesBounds(t *testing.T) {
    s := newTestServer(t, 4)
    rec := s.book(5, "A")
    require.Equal(t, http.StatusBadRequest, rec.Code)
    var body map[string]any
    decode(t, rec, &body)
    assert.Equal(t, float64(5), body["seat"])
    assert.Equal(t, float64(4), body["capacity"])
}

func TestReservationLifecycle(t *testing.T) {
    s := newTestServer(t, 10)

    var created model.Reservation
    decode(t, s.book(2, "Ada"), &created)
    path := fmt.Sprintf("/v1/reservations/%d", created.ID)

    rec := s.request(http.MethodGet, path, nil)
    require.Equal(t, http.StatusOK, rec.Code)

    for i := 0; i < 2; i++ {
        rec = s.request(http.MethodPut, path+"/status", echo.Map{"is_confirmed": true})
        require.Equal(t, http.StatusOK, rec.Code)
        var r model.Reservation
        decode(t, rec, &r)
        assert.True(t, r.IsConfirmed)
    }
    rec = s.request(http.MethodPut, path+"/status", echo.Map{})
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.Contains(t, rec.Body.String(), "is_confirmed is required")

    rec = s.request(http.MethodGet, "/v1/reservations", nil)
    require.Equal(t, http.StatusOK, rec.Code)
    var list struct {
        Items []model.ReservationDetail `json:"items"`
    }
    decode(t, rec, &list)
    require.Len(t, list.Items, 1)
    assert.True(t, list.Items[0].IsConfirmed)

    rec = s.request(http.MethodGet, fmt.Sprintf("/v1/screenings/%d/taken-seats", s.screening.ID), nil)
    require.Equal(t, http.StatusOK, rec.Code)
    assert.JSONEq(t, fmt.Sprintf(`{"screening_id":%d,"seats":[2]}`, s.screening.ID), rec.Body.String())

    rec = s.request(http.MethodDelete, path, nil)
    assert.Equal(t, http.StatusNoContent, rec.Code)
    rec = s.request(http.MethodDelete, path, nil)
    assert.Equal(t, http.StatusNotFound, rec.Code)
    rec = s.request(http.MethodGet, path, nil)
    assert.Equal(t, http.StatusNotFound, rec.Code)
    rec = s.request(http.MethodPut, path+"/status", echo.Map{"is_confirmed": true})
    assert.Equal(t, http.StatusNotFound, rec.Code)

    assert.Equal(t, http.StatusCreated, s.book(2, "Bob").Code)
}

func TestInvalidIDs(t *testing.T) {
    s := newTestServer(t, 10)
    for _, target := range []string{"/v1/reservations/abc", "/v1/reservations/0", "/v1/movies/x", "/v1/screenings/-1"} {
        rec := s.request(http.MethodGet, target, nil)
        assert.Equal(t, http.StatusBadRequest, rec.Code, target)
    }
}

func TestTakenSeatsUnknownScreening(t *testing.T) {
    s := newTestServer(t, 10)
    rec := s.request(http.MethodGet, fmt.Sprintf("/v1/screenings/%d/taken-seats", s.screening.ID+1), nil)
    assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCatalogEndpoints(t *testing.T) {
    s := newTestServer(t, 10)

    rec := s.request(http.MethodGet, "/v1/movies", nil)
    require.Equal(t, http.StatusOK, rec.Code)
    var movies struct {
        Items []MovieView `json:"items"`
    }
    decode(t, rec, &movies)
    require.Len(t, movies.Items, 1)
    require.Len(t, movies.Items[0].Screenings, 1)
    assert.Equal(t, s.screening.ID, movies.Items[0].Screenings[0].ID)

    rec = s.request(http.MethodGet, fmt.Sprintf("/v1/movies/%d", s.movie.ID), nil)
    require.Equal(t, http.StatusOK, rec.Code)
    var movie MovieView
    decode(t, rec, &movie)
    assert.Equal(t, "Paper Lanterns", movie.Title)
    assert.Len(t, movie.Screenings, 1)

    rec = s.request(http.MethodGet, fmt.Sprintf("/v1/movies/%d/screenings", s.movie.ID), nil)
    require.Equal(t, http.StatusOK, rec.Code)

    rec = s.request(http.MethodGet, fmt.Sprintf("/v1/movies/%d/screenings", s.movie.ID+1), nil)
    assert.Equal(t, http.StatusNotFound, rec.Code)
    rec = s.request(http.MethodGet, fmt.Sprintf("/v1/movies/%d", s.movie.ID+1), nil)
    assert.Equal(t, http.StatusNotFound, rec.Code)

    rec = s.request(http.MethodGet, fmt.Sprintf("/v1/screenings/%d", s.screening.ID), nil)
    require.Equal(t, http.StatusOK, rec.Code)
    var sc model.ScreeningDetail
    decode(t, rec, &sc)
    assert.Equal(t, 10, sc.TheaterCapacity)
    assert.True(t, s.screening.StartsAt.Equal(sc.StartsAt))

    rec = s.request(http.MethodGet, fmt.Sprintf("/v1/screenings/%d", s.screening.ID+1), nil)
    assert.Equal(t, http.StatusNotFound, rec.Code)
}

func upload(s *testServer, id uint64, filename string, content []byte) *httptest.ResponseRecorder {
    var buf bytes.Buffer
    w := multipart.NewWriter(&buf)
    if filename != "" {
        part, _ := w.CreateFormFile("file", filename)
        _, _ = part.Write(content)
    }
    _ = w.Close()
    req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/v1/reservations/%d/document", id), &buf)
    req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
    rec := httptest.NewRecorder()
    s.e.ServeHTTP(rec, req)
    return rec
}

func TestDocumentUploadAndDownload(t *testing.T) {
    s := newTestServer(t, 10)
    var created model.Reservation
    decode(t, s.book(1, "Ada"), &created)
    path := fmt.Sprintf("/v1/reservations/%d/document", created.ID)

    rec := s.request(http.MethodGet, path, nil)
    assert.Equal(t, http.StatusNotFound, rec.Code)

    rec = upload(s, created.ID, "ticket.pdf", []byte("%PDF-1.4 tiny"))
    require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
    var body struct {
        DocumentRef string `json:"document_ref"`
    }
    decode(t, rec, &body)
    assert.True(t, strings.HasSuffix(body.DocumentRef, "_ticket.pdf"))

    rec = s.request(http.MethodGet, path, nil)
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "%PDF-1.4 tiny", rec.Body.String())
    assert.Equal(t, "application/pdf", rec.Header().Get(echo.HeaderContentType))
    assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), `filename=ticket.pdf`)

    assert.Equal(t, http.StatusBadRequest, upload(s, created.ID, "", nil).Code)
    assert.Equal(t, http.StatusBadRequest, upload(s, created.ID, "empty.pdf", nil).Code)
    assert.Equal(t, http.StatusBadRequest, upload(s, created.ID, "big.pdf", bytes.Repeat([]byte("x"), 65)).Code)
    assert.Equal(t, http.StatusNotFound, upload(s, created.ID+1, "ticket.pdf", []byte("x")).Code)
}

func TestQRCode(t *testing.T) {
    s := newTestServer(t, 10)
    var created model.Reservation
    decode(t, s.book(1, "Ada"), &created)

    rec := s.request(http.MethodGet, fmt.Sprintf("/v1/reservations/%d/qr", created.ID), nil)
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
    assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

    rec = s.request(http.MethodGet, fmt.Sprintf("/v1/reservations/%d/qr", created.ID+1), nil)
    assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOriginalName(t *testing.T) {
    assert.Equal(t, "ticket.pdf", originalName("0b7c_ticket.pdf"))
    assert.Equal(t, "plain", originalName("plain"))
}

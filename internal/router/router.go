package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-reservation-api/internal/handler"
)

// RegisterRoutes registers the probes.  /healthz only reports that the
// process is up; /readyz also pings the database.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
}

// RegisterCatalog registers the read-only movie and screening endpoints.
// Every route goes through cache.
func RegisterCatalog(e *echo.Echo, h *handler.CatalogHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.GET("/movies", h.ListMovies, cache)
	g.GET("/movies/:id", h.GetMovie, cache)
	g.GET("/movies/:id/screenings", h.ListMovieScreenings, cache)
	g.GET("/screenings/:id", h.GetScreening, cache)
}

// RegisterReservations registers the booking endpoints.  limit guards
// POST /v1/reservations only.  The taken-seats listing is not behind the
// response cache; the booking service keeps its own seat cache that is
// invalidated on every booking and deletion.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler, limit echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.GET("/screenings/:id/taken-seats", h.TakenSeats)

	g.POST("/reservations", h.Create, limit)
	g.GET("/reservations", h.List)
	g.GET("/reservations/:id", h.Get)
	g.PUT("/reservations/:id/status", h.UpdateStatus)
	g.DELETE("/reservations/:id", h.Delete)

	g.POST("/reservations/:id/document", h.UploadDocument)
	g.GET("/reservations/:id/document", h.DownloadDocument)
	g.GET("/reservations/:id/qr", h.QRCode)
}

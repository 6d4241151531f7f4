package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/cinema-reservation-api/internal/model"
)

// CatalogReader is the read side of the catalog used by CatalogHandler.
type CatalogReader interface {
    ListMovies(ctx context.Context) ([]model.Movie, error)
    GetMovie(ctx context.Context, id uint64) (model.Movie, error)
    ListScreenings(ctx context.Context) ([]model.ScreeningDetail, error)
    ListScreeningsByMovie(ctx context.Context, movieID uint64) ([]model.ScreeningDetail, error)
    GetScreening(ctx context.Context, id uint64) (model.ScreeningDetail, error)
}

// CatalogHandler serves the movie and screening listings.  Responses are
// plain reads and sit behind the response cache.
type CatalogHandler struct {
    Catalog CatalogReader
}

// MovieView is a movie together with its screenings.
type MovieView struct {
    model.Movie
    Screenings []model.ScreeningDetail `json:"screenings"`
}

// ListMovies handles GET /v1/movies.
func (h *CatalogHandler) ListMovies(c echo.Context) error {
    ctx := c.Request().Context()
    movies, err := h.Catalog.ListMovies(ctx)
    if err != nil {
        return writeError(c, "list movies", err)
    }
    screenings, err := h.Catalog.ListScreenings(ctx)
    if err != nil {
        return writeError(c, "list screenings", err)
    }
    byMovie := make(map[uint64][]model.ScreeningDetail, len(movies))
    for _, s := range screenings {
        byMovie[s.MovieID] = append(byMovie[s.MovieID], s)
    }
    out := make([]MovieView, 0, len(movies))
    for _, m := range movies {
        ss := byMovie[m.ID]
        if ss == nil {
            ss = []model.ScreeningDetail{}
        }
        out = append(out, MovieView{Movie: m, Screenings: ss})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// GetMovie handles GET /v1/movies/:id.
func (h *CatalogHandler) GetMovie(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return invalidID(c, "movie")
    }
    ctx := c.Request().Context()
    m, err := h.Catalog.GetMovie(ctx, id)
    if err != nil {
        return writeError(c, "get movie", err)
    }
    screenings, err := h.Catalog.ListScreeningsByMovie(ctx, id)
    if err != nil {
        return writeError(c, "list movie screenings", err)
    }
    return c.JSON(http.StatusOK, MovieView{Movie: m, Screenings: screenings})
}

// ListMovieScreenings handles GET /v1/movies/:id/screenings.
func (h *CatalogHandler) ListMovieScreenings(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return invalidID(c, "movie")
    }
    ctx := c.Request().Context()
    if _, err := h.Catalog.GetMovie(ctx, id); err != nil {
        return writeError(c, "get movie", err)
    }
    screenings, err := h.Catalog.ListScreeningsByMovie(ctx, id)
    if err != nil {
        return writeError(c, "list movie screenings", err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": screenings})
}

// GetScreening handles GET /v1/screenings/:id.
func (h *CatalogHandler) GetScreening(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return invalidID(c, "screening")
    }
    s, err := h.Catalog.GetScreening(c.Request().Context(), id)
    if err != nil {
        return writeError(c, "get screening", err)
    }
    return c.JSON(http.StatusOK, s)
}

package repository

import (
    "context"
    "database/sql"
    "path/filepath"
    "testing"
    "time"

    "github.com/stretchr/testify/require"

    "github.com/iliyamo/cinema-reservation-api/internal/database"
    "github.com/iliyamo/cinema-reservation-api/internal/model"
)

func newTestDB(t *testing.T) *sql.DB {
    t.Helper()
    db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "cinema.db"))
    require.NoError(t, err)
    t.Cleanup(func() { db.Close() })
    return db
}

// seedScreening creates one theater of the given capacity, one movie and one
// screening and returns the screening.
func seedScreening(t *testing.T, catalog *CatalogRepo, capacity int) model.Screening {
    t.Helper()
    ctx := context.Background()
    th := model.Theater{Name: "Theater 1", Capacity: capacity}
    require.NoError(t, catalog.CreateTheater(ctx, &th))
    mv := model.Movie{Title: "Orbit Nine", Description: "Salvage crew.", DurationMinutes: 132, Genre: "Science Fiction"}
    require.NoError(t, catalog.CreateMovie(ctx, &mv))
    sc := model.Screening{MovieID: mv.ID, TheaterID: th.ID, StartsAt: time.Date(2030, 1, 2, 20, 0, 0, 0, time.UTC)}
    require.NoError(t, catalog.CreateScreening(ctx, &sc))
    return sc
}

package database

import (
	"context"
	"database/sql"
	"time"
)

type seedMovie struct {
	title       string
	description string
	duration    int
	genre       string
	release     time.Time
}

var (
	seedTheaters = []struct {
		name     string
		capacity int
	}{
		{"Theater 1", 100},
		{"Theater 2", 150},
		{"Theater 3", 200},
	}

	seedMovies = []seedMovie{
		{"The Long Night", "A lighthouse keeper waits out a storm.", 118, "Drama", time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)},
		{"Orbit Nine", "A salvage crew finds a station that should not exist.", 132, "Science Fiction", time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC)},
		{"Paper Lanterns", "Two siblings reopen their grandmother's shop.", 97, "Comedy", time.Date(2024, 9, 13, 0, 0, 0, 0, time.UTC)},
	}
)

// SeedCatalog inserts sample theaters, movies and screenings when the catalog
// is empty.  Each movie is scheduled once in every theater on consecutive
// evenings starting tomorrow.  Existing data is never touched.
func SeedCatalog(ctx context.Context, db *sql.DB) (bool, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM theaters`).Scan(&n); err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	theaterIDs := make([]int64, 0, len(seedTheaters))
	for _, th := range seedTheaters {
		res, err := tx.ExecContext(ctx, `INSERT INTO theaters (name, capacity) VALUES (?, ?)`, th.name, th.capacity)
		if err != nil {
			return false, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return false, err
		}
		theaterIDs = append(theaterIDs, id)
	}

	tomorrow := time.Now().UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	for i, m := range seedMovies {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO movies (title, description, duration_minutes, genre, release_date) VALUES (?, ?, ?, ?, ?)`,
			m.title, m.description, m.duration, m.genre, m.release)
		if err != nil {
			return false, err
		}
		movieID, err := res.LastInsertId()
		if err != nil {
			return false, err
		}
		for j, theaterID := range theaterIDs {
			startsAt := tomorrow.Add(time.Duration(j)*24*time.Hour + time.Duration(18+2*i)*time.Hour)
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO screenings (movie_id, theater_id, starts_at) VALUES (?, ?, ?)`,
				movieID, theaterID, startsAt); err != nil {
				return false, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	committed = true
	return true, nil
}

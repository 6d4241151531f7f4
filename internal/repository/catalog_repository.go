package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/iliyamo/cinema-reservation-api/internal/model"
)

// CatalogRepo reads movies, theaters and screenings.  The catalog is
// read-mostly: the API never modifies it, and the Create* methods exist
// for seeding and tests.
type CatalogRepo struct {
    db *sql.DB
}

// NewCatalogRepo returns a new CatalogRepo bound to the given database.
func NewCatalogRepo(db *sql.DB) *CatalogRepo { return &CatalogRepo{db: db} }

// GetScreeningWithTheater resolves a screening to its movie, theater and
// theater capacity.  It returns ErrScreeningNotFound when the id is unknown.
func (r *CatalogRepo) GetScreeningWithTheater(ctx context.Context, screeningID uint64) (model.ScreeningInfo, error) {
    const q = `SELECT s.id, s.movie_id, s.theater_id, t.capacity
               FROM screenings s JOIN theaters t ON t.id = s.theater_id
               WHERE s.id = ?`
    var info model.ScreeningInfo
    err := r.db.QueryRowContext(ctx, q, screeningID).Scan(
        &info.ScreeningID, &info.MovieID, &info.TheaterID, &info.TheaterCapacity,
    )
    if errors.Is(err, sql.ErrNoRows) {
        return model.ScreeningInfo{}, ErrScreeningNotFound
    }
    return info, err
}

const movieColumns = `id, title, description, duration_minutes, genre, release_date, poster_image_path`

func scanMovie(row rowScanner) (model.Movie, error) {
    var (
        m       model.Movie
        release sql.NullTime
        poster  sql.NullString
    )
    if err := row.Scan(&m.ID, &m.Title, &m.Description, &m.DurationMinutes, &m.Genre, &release, &poster); err != nil {
        return model.Movie{}, err
    }
    if release.Valid {
        t := release.Time.UTC()
        m.ReleaseDate = &t
    }
    if poster.Valid {
        p := poster.String
        m.PosterPath = &p
    }
    return m, nil
}

// ListMovies returns all movies ordered by title.
func (r *CatalogRepo) ListMovies(ctx context.Context) ([]model.Movie, error) {
    rows, err := r.db.QueryContext(ctx, `SELECT `+movieColumns+` FROM movies ORDER BY title, id`)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []model.Movie{}
    for rows.Next() {
        m, err := scanMovie(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, m)
    }
    return out, rows.Err()
}

// GetMovie returns a movie or ErrMovieNotFound.
func (r *CatalogRepo) GetMovie(ctx context.Context, id uint64) (model.Movie, error) {
    m, err := scanMovie(r.db.QueryRowContext(ctx, `SELECT `+movieColumns+` FROM movies WHERE id = ?`, id))
    if errors.Is(err, sql.ErrNoRows) {
        return model.Movie{}, ErrMovieNotFound
    }
    return m, err
}

const screeningDetailQuery = `SELECT s.id, s.movie_id, s.theater_id, s.starts_at, m.title, t.name, t.capacity
    FROM screenings s
    JOIN movies m ON m.id = s.movie_id
    JOIN theaters t ON t.id = s.theater_id`

func scanScreening(row rowScanner) (model.ScreeningDetail, error) {
    var d model.ScreeningDetail
    err := row.Scan(&d.ID, &d.MovieID, &d.TheaterID, &d.StartsAt, &d.MovieTitle, &d.TheaterName, &d.TheaterCapacity)
    if err != nil {
        return model.ScreeningDetail{}, err
    }
    d.StartsAt = d.StartsAt.UTC()
    return d, nil
}

func (r *CatalogRepo) queryScreenings(ctx context.Context, q string, args ...any) ([]model.ScreeningDetail, error) {
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []model.ScreeningDetail{}
    for rows.Next() {
        d, err := scanScreening(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, d)
    }
    return out, rows.Err()
}

// ListScreenings returns every screening ordered by start time.
func (r *CatalogRepo) ListScreenings(ctx context.Context) ([]model.ScreeningDetail, error) {
    return r.queryScreenings(ctx, screeningDetailQuery+` ORDER BY s.starts_at, s.id`)
}

// ListScreeningsByMovie returns the screenings of one movie ordered by
// start time.  An unknown movie yields an empty list; callers that need to
// distinguish should call GetMovie first.
func (r *CatalogRepo) ListScreeningsByMovie(ctx context.Context, movieID uint64) ([]model.ScreeningDetail, error) {
    return r.queryScreenings(ctx, screeningDetailQuery+` WHERE s.movie_id = ? ORDER BY s.starts_at, s.id`, movieID)
}

// GetScreening returns a screening with movie and theater details or
// ErrScreeningNotFound.
func (r *CatalogRepo) GetScreening(ctx context.Context, id uint64) (model.ScreeningDetail, error) {
    d, err := scanScreening(r.db.QueryRowContext(ctx, screeningDetailQuery+` WHERE s.id = ?`, id))
    if errors.Is(err, sql.ErrNoRows) {
        return model.ScreeningDetail{}, ErrScreeningNotFound
    }
    return d, err
}

// CreateTheater inserts a theater and populates its ID.
func (r *CatalogRepo) CreateTheater(ctx context.Context, t *model.Theater) error {
    res, err := r.db.ExecContext(ctx, `INSERT INTO theaters (name, capacity) VALUES (?, ?)`, t.Name, t.Capacity)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    t.ID = uint64(id)
    return nil
}

// CreateMovie inserts a movie and populates its ID.
func (r *CatalogRepo) CreateMovie(ctx context.Context, m *model.Movie) error {
    var release any
    if m.ReleaseDate != nil {
        release = m.ReleaseDate.UTC()
    }
    const q = `INSERT INTO movies (title, description, duration_minutes, genre, release_date, poster_image_path)
               VALUES (?, ?, ?, ?, ?, ?)`
    res, err := r.db.ExecContext(ctx, q, m.Title, m.Description, m.DurationMinutes, m.Genre, release, m.PosterPath)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    m.ID = uint64(id)
    return nil
}

// CreateScreening inserts a screening and populates its ID.  StartsAt is
// stored in UTC at second precision.
func (r *CatalogRepo) CreateScreening(ctx context.Context, s *model.Screening) error {
    s.StartsAt = s.StartsAt.UTC().Truncate(time.Second)
    const q = `INSERT INTO screenings (movie_id, theater_id, starts_at) VALUES (?, ?, ?)`
    res, err := r.db.ExecContext(ctx, q, s.MovieID, s.TheaterID, s.StartsAt)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    s.ID = uint64(id)
    return nil
}

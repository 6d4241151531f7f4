package repository

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "time"

    "github.com/go-sql-driver/mysql"

    "github.com/iliyamo/cinema-reservation-api/internal/model"
)

// ReservationRepo is the reservation ledger.  It stores one row per
// reservation and relies on the unique key over (screening_id, seat_number)
// to decide which of several concurrent inserts for the same seat wins.
// It never checks occupancy before writing; the constraint is the check.
// All timestamps are stored in UTC.
type ReservationRepo struct {
    db        *sql.DB
    now       func() time.Time
    forUpdate bool // driver understands SELECT ... FOR UPDATE
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo {
    _, isMySQL := db.Driver().(*mysql.MySQLDriver)
    return &ReservationRepo{db: db, now: time.Now, forUpdate: isMySQL}
}

const reservationColumns = `r.id, r.screening_id, r.seat_number, r.customer_name, r.customer_email,
    r.reserved_at, r.is_confirmed, r.document_ref`

type rowScanner interface {
    Scan(dest ...any) error
}

func scanReservation(row rowScanner, extra ...any) (model.Reservation, error) {
    var (
        res model.Reservation
        doc sql.NullString
    )
    dest := append([]any{
        &res.ID, &res.ScreeningID, &res.SeatNumber, &res.CustomerName, &res.CustomerEmail,
        &res.ReservedAt, &res.IsConfirmed, &doc,
    }, extra...)
    if err := row.Scan(dest...); err != nil {
        return model.Reservation{}, err
    }
    if doc.Valid {
        ref := doc.String
        res.DocumentRef = &ref
    }
    res.ReservedAt = res.ReservedAt.UTC()
    return res, nil
}

// TryReserve inserts a reservation for (screeningID, seat) in a single
// statement.  If another reservation already holds the seat the insert is
// rejected by the unique key and ErrSeatTaken is returned.  Under
// contention exactly one caller succeeds; which one is up to the database.
// The new reservation is unconfirmed, has no document and carries the
// commit time as ReservedAt.
func (r *ReservationRepo) TryReserve(ctx context.Context, screeningID uint64, seat int, name, email string) (model.Reservation, error) {
    // DATETIME has second precision in MySQL; truncate so the value we
    // return equals the value a later read returns.
    reservedAt := r.now().UTC().Truncate(time.Second)

    const q = `INSERT INTO reservations (screening_id, seat_number, customer_name, customer_email, reserved_at, is_confirmed)
               VALUES (?, ?, ?, ?, ?, ?)`
    result, err := r.db.ExecContext(ctx, q, screeningID, seat, name, email, reservedAt, false)
    if err != nil {
        if isDuplicateKey(err) {
            return model.Reservation{}, ErrSeatTaken
        }
        return model.Reservation{}, fmt.Errorf("insert reservation: %w", err)
    }
    id, err := result.LastInsertId()
    if err != nil {
        return model.Reservation{}, err
    }
    return model.Reservation{
        ID:            uint64(id),
        ScreeningID:   screeningID,
        SeatNumber:    seat,
        CustomerName:  name,
        CustomerEmail: email,
        ReservedAt:    reservedAt,
        IsConfirmed:   false,
    }, nil
}

// SeatsTaken returns the reserved seat numbers for a screening in
// ascending order.  The result is a snapshot for display only; it may be
// stale by the time the caller uses it.
func (r *ReservationRepo) SeatsTaken(ctx context.Context, screeningID uint64) ([]int, error) {
    const q = `SELECT seat_number FROM reservations WHERE screening_id = ? ORDER BY seat_number`
    rows, err := r.db.QueryContext(ctx, q, screeningID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    seats := []int{}
    for rows.Next() {
        var n int
        if err := rows.Scan(&n); err != nil {
            return nil, err
        }
        seats = append(seats, n)
    }
    return seats, rows.Err()
}

// Get returns a single reservation or ErrReservationNotFound.
func (r *ReservationRepo) Get(ctx context.Context, id uint64) (model.Reservation, error) {
    q := `SELECT ` + reservationColumns + ` FROM reservations r WHERE r.id = ?`
    res, err := scanReservation(r.db.QueryRowContext(ctx, q, id))
    if errors.Is(err, sql.ErrNoRows) {
        return model.Reservation{}, ErrReservationNotFound
    }
    return res, err
}

// List returns every reservation ordered by id.
func (r *ReservationRepo) List(ctx context.Context) ([]model.Reservation, error) {
    q := `SELECT ` + reservationColumns + ` FROM reservations r ORDER BY r.id`
    rows, err := r.db.QueryContext(ctx, q)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []model.Reservation{}
    for rows.Next() {
        res, err := scanReservation(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, res)
    }
    return out, rows.Err()
}

// UpdateStatus sets the confirmation flag and returns the updated row.
// Setting the flag to its current value is a successful no-op.  The
// previous value is returned too so callers can tell whether anything
// changed.
func (r *ReservationRepo) UpdateStatus(ctx context.Context, id uint64, confirmed bool) (res model.Reservation, wasConfirmed bool, err error) {
    err = r.inTx(ctx, func(tx *sql.Tx) error {
        current, err := r.getForUpdate(ctx, tx, id)
        if err != nil {
            return err
        }
        wasConfirmed = current.IsConfirmed
        if current.IsConfirmed != confirmed {
            const q = `UPDATE reservations SET is_confirmed = ? WHERE id = ?`
            if _, err := tx.ExecContext(ctx, q, confirmed, id); err != nil {
                return err
            }
        }
        current.IsConfirmed = confirmed
        res = current
        return nil
    })
    return res, wasConfirmed, err
}

// AttachDocument stores ref as the reservation's document reference,
// replacing any previous one, and returns the updated row.
func (r *ReservationRepo) AttachDocument(ctx context.Context, id uint64, ref string) (model.Reservation, error) {
    var res model.Reservation
    err := r.inTx(ctx, func(tx *sql.Tx) error {
        current, err := r.getForUpdate(ctx, tx, id)
        if err != nil {
            return err
        }
        const q = `UPDATE reservations SET document_ref = ? WHERE id = ?`
        if _, err := tx.ExecContext(ctx, q, ref, id); err != nil {
            return err
        }
        current.DocumentRef = &ref
        res = current
        return nil
    })
    return res, err
}

// Delete removes a reservation and returns the row as it was.  The seat
// becomes available again as soon as the row is gone; nothing else is
// touched.
func (r *ReservationRepo) Delete(ctx context.Context, id uint64) (model.Reservation, error) {
    var res model.Reservation
    err := r.inTx(ctx, func(tx *sql.Tx) error {
        current, err := r.getForUpdate(ctx, tx, id)
        if err != nil {
            return err
        }
        result, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
        if err != nil {
            return err
        }
        if n, err := result.RowsAffected(); err != nil {
            return err
        } else if n == 0 {
            return ErrReservationNotFound
        }
        res = current
        return nil
    })
    return res, err
}

// GetDetail returns a reservation joined with its screening, movie and
// theater.
func (r *ReservationRepo) GetDetail(ctx context.Context, id uint64) (model.ReservationDetail, error) {
    q := detailQuery + ` WHERE r.id = ?`
    d, err := scanDetail(r.db.QueryRowContext(ctx, q, id))
    if errors.Is(err, sql.ErrNoRows) {
        return model.ReservationDetail{}, ErrReservationNotFound
    }
    return d, err
}

// ListDetails returns every reservation with screening information,
// ordered by id.
func (r *ReservationRepo) ListDetails(ctx context.Context) ([]model.ReservationDetail, error) {
    rows, err := r.db.QueryContext(ctx, detailQuery+` ORDER BY r.id`)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []model.ReservationDetail{}
    for rows.Next() {
        d, err := scanDetail(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, d)
    }
    return out, rows.Err()
}

const detailQuery = `SELECT ` + reservationColumns + `, m.id, m.title, t.id, t.name, s.starts_at
    FROM reservations r
    JOIN screenings s ON s.id = r.screening_id
    JOIN movies m ON m.id = s.movie_id
    JOIN theaters t ON t.id = s.theater_id`

func scanDetail(row rowScanner) (model.ReservationDetail, error) {
    var d model.ReservationDetail
    res, err := scanReservation(row, &d.MovieID, &d.MovieTitle, &d.TheaterID, &d.TheaterName, &d.ScreeningStarts)
    if err != nil {
        return model.ReservationDetail{}, err
    }
    d.Reservation = res
    d.ScreeningStarts = d.ScreeningStarts.UTC()
    return d, nil
}

// getForUpdate reads a reservation inside tx.  On MySQL the row is locked
// until the transaction ends; SQLite serialises writers on its own and
// does not understand FOR UPDATE, so the lock clause is only added when
// the driver supports it.
func (r *ReservationRepo) getForUpdate(ctx context.Context, tx *sql.Tx, id uint64) (model.Reservation, error) {
    res, err := scanReservation(tx.QueryRowContext(ctx, r.lockingSelect(), id))
    if errors.Is(err, sql.ErrNoRows) {
        return model.Reservation{}, ErrReservationNotFound
    }
    return res, err
}

func (r *ReservationRepo) lockingSelect() string {
    q := `SELECT ` + reservationColumns + ` FROM reservations r WHERE r.id = ?`
    if r.forUpdate {
        q += ` FOR UPDATE`
    }
    return q
}

// inTx runs fn inside a transaction, committing on success and rolling
// back on any error.
func (r *ReservationRepo) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    if err := fn(tx); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

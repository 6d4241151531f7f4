// Package repository holds the SQL-backed stores: the reservation ledger and
// the read-mostly catalog.  The sentinel errors below let higher layers tell
// expected outcomes apart from storage failures.  ErrSeatTaken is returned
// when an insert loses against an existing reservation for the same seat;
// the Err*NotFound values mean the targeted row does not exist.
package repository

import (
    "errors"

    "github.com/go-sql-driver/mysql"
    "github.com/mattn/go-sqlite3"
)

// ErrSeatTaken is returned by TryReserve when the (screening, seat) pair is
// already reserved.  Handlers translate this into an HTTP 409 response.
var ErrSeatTaken = errors.New("seat already taken")

// ErrReservationNotFound is returned when a reservation id does not exist.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrScreeningNotFound is returned when a screening id does not exist.
var ErrScreeningNotFound = errors.New("screening not found")

// ErrMovieNotFound is returned when a movie id does not exist.
var ErrMovieNotFound = errors.New("movie not found")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// isDuplicateKey reports whether err is a unique-key violation from either
// supported driver.
func isDuplicateKey(err error) bool {
    var myErr *mysql.MySQLError
    if errors.As(err, &myErr) {
        return myErr.Number == mysqlDuplicateEntry
    }
    var liteErr sqlite3.Error
    if errors.As(err, &liteErr) {
        return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
            liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
    }
    return false
}

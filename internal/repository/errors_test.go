package repository

import (
    "database/sql"
    "errors"
    "fmt"
    "strings"
    "testing"

    "github.com/go-sql-driver/mysql"
    "github.com/mattn/go-sqlite3"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestIsDuplicateKey(t *testing.T) {
    cases := []struct {
        name string
        err  error
        want bool
    }{
        {"mysql duplicate entry", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry '1-7' for key 'uq_reservations_screening_seat'"}, true},
        {"mysql foreign key", &mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"}, false},
        {"mysql lock wait", &mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"}, false},
        {"sqlite unique", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, true},
        {"sqlite primary key", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintPrimaryKey}, true},
        {"sqlite check", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintCheck}, false},
        {"wrapped mysql duplicate", fmt.Errorf("exec: %w", &mysql.MySQLError{Number: 1062}), true},
        {"wrapped sqlite unique", fmt.Errorf("exec: %w", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}), true},
        {"plain error", errors.New("Duplicate entry"), false},
        {"no rows", sql.ErrNoRows, false},
        {"nil", nil, false},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            assert.Equal(t, tc.want, isDuplicateKey(tc.err))
        })
    }
}

func TestLockingSelectDependsOnDriver(t *testing.T) {
    // sql.Open does not connect, so no MySQL server is needed here.
    my, err := sql.Open("mysql", "user:pass@tcp(127.0.0.1:3306)/cinema")
    require.NoError(t, err)
    t.Cleanup(func() { my.Close() })
    mysqlRepo := NewReservationRepo(my)
    assert.True(t, mysqlRepo.forUpdate)
    assert.True(t, strings.HasSuffix(mysqlRepo.lockingSelect(), " FOR UPDATE"))

    liteRepo := NewReservationRepo(newTestDB(t))
    assert.False(t, liteRepo.forUpdate)
    assert.NotContains(t, liteRepo.lockingSelect(), "FOR UPDATE")
}

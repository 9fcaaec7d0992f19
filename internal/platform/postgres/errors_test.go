package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/profilegen/profilegen-api/internal/store"
)

// fakeResult implements sql.Result for rows-affected checks.
type fakeResult struct {
	rows int64
	err  error
}

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.rows, r.err }

func TestMapError(t *testing.T) {
	t.Parallel()

	t.Run("nil passes through", func(t *testing.T) {
		assert.NoError(t, MapError(nil))
	})

	t.Run("no rows maps to not found", func(t *testing.T) {
		err := MapError(fmt.Errorf("query: %w", sql.ErrNoRows))
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("unique violation maps to duplicate", func(t *testing.T) {
		err := MapError(&pgconn.PgError{Code: uniqueViolationCode})
		assert.ErrorIs(t, err, store.ErrDuplicate)
	})

	t.Run("check violation maps to invalid entity", func(t *testing.T) {
		err := MapError(&pgconn.PgError{Code: checkViolationCode, ConstraintName: "progress_range"})
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
		assert.Contains(t, err.Error(), "progress_range")
	})

	t.Run("not null violation maps to invalid entity", func(t *testing.T) {
		err := MapError(&pgconn.PgError{Code: notNullViolationCode, ColumnName: "department"})
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
	})

	t.Run("unknown errors pass through", func(t *testing.T) {
		boom := errors.New("connection reset")
		assert.Equal(t, boom, MapError(boom))
	})
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: uniqueViolationCode}))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: checkViolationCode}))
	assert.False(t, IsUniqueViolation(errors.New("other")))
}

func TestCheckRowsAffected(t *testing.T) {
	t.Parallel()

	assert.NoError(t, CheckRowsAffected(fakeResult{rows: 1}, "task"))

	err := CheckRowsAffected(fakeResult{rows: 0}, "task")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Contains(t, err.Error(), "task")

	assert.ErrorIs(t, CheckRowsAffected(fakeResult{rows: 0}, ""), store.ErrNotFound)
	assert.Error(t, CheckRowsAffected(fakeResult{err: errors.New("driver")}, "task"))
	assert.Error(t, CheckRowsAffected(nil, "task"))
}

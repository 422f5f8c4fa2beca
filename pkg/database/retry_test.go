package database

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPostgresRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock detected", &pgconn.PgError{Code: "40P01"}, true},
		{"connection exception", &pgconn.PgError{Code: "08006"}, true},
		{"too many connections", &pgconn.PgError{Code: "53300"}, true},
		{"disk full", &pgconn.PgError{Code: "53100"}, false},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"invalid text representation", &pgconn.PgError{Code: "22P02"}, false},
		{"undefined column", &pgconn.PgError{Code: "42703"}, false},
		{"connection refused message", errors.New("dial tcp 10.0.0.1:5432: connection refused"), true},
		{"no rows", pgx.ErrNoRows, false},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, false},
		{"unknown error", errors.New("something else broke"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isPostgresRetryable(tt.err))
		})
	}
}

type fakeRow struct {
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	return r.err
}

type fakeRowPool struct {
	calls int
	errs  []error
}

func (f *fakeRowPool) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	var err error
	if f.calls < len(f.errs) {
		err = f.errs[f.calls]
	}
	f.calls++
	return fakeRow{err: err}
}

func TestRetryableQueryRow_RetriesTransientFailure(t *testing.T) {
	pool := &fakeRowPool{errs: []error{&pgconn.PgError{Code: "40001"}, nil}}

	got, err := RetryableQueryRow(context.Background(), pool, "SELECT 1", nil, func(row pgx.Row) (int, error) {
		if err := row.Scan(); err != nil {
			return 0, err
		}
		return 7, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 7, got)
	assert.Equal(t, 2, pool.calls)
}

func TestRetryableQueryRow_NoRowsIsNotRetried(t *testing.T) {
	pool := &fakeRowPool{errs: []error{pgx.ErrNoRows}}

	_, err := RetryableQueryRow(context.Background(), pool, "SELECT 1", nil, func(row pgx.Row) (int, error) {
		return 0, row.Scan()
	})

	require.ErrorIs(t, err, pgx.ErrNoRows)
	assert.Equal(t, 1, pool.calls)
}

type fakeRows struct {
	pgx.Rows
}

func (fakeRows) Close() {}

type fakeQueryPool struct {
	calls int
	errs  []error
}

func (f *fakeQueryPool) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	var err error
	if f.calls < len(f.errs) {
		err = f.errs[f.calls]
	}
	f.calls++
	if err != nil {
		return nil, err
	}
	return fakeRows{}, nil
}

func TestRetryableQuery_RetriesTransientFailure(t *testing.T) {
	pool := &fakeQueryPool{errs: []error{&pgconn.PgError{Code: "08006"}, nil}}

	got, err := RetryableQuery(context.Background(), pool, "SELECT 1", nil, func(rows pgx.Rows) ([]string, error) {
		return []string{"a", "b"}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, 2, pool.calls)
}

type fakeExecPool struct {
	calls int
	errs  []error
}

func (f *fakeExecPool) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	var err error
	if f.calls < len(f.errs) {
		err = f.errs[f.calls]
	}
	f.calls++
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func TestRetryableExec(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		pool := &fakeExecPool{}

		tag, err := RetryableExec(context.Background(), pool, "UPDATE api_keys SET usage_count = usage_count + 1")

		require.NoError(t, err)
		assert.EqualValues(t, 1, tag.RowsAffected())
		assert.Equal(t, 1, pool.calls)
	})

	t.Run("constraint violation is not retried", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: "23505"}
		pool := &fakeExecPool{errs: []error{pgErr}}

		_, err := RetryableExec(context.Background(), pool, "INSERT INTO api_keys VALUES ($1)", "dup")

		require.ErrorIs(t, err, pgErr)
		assert.Equal(t, 1, pool.calls)
	})
}

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.rolledBack = true
	return nil
}

type fakeBeginner struct {
	tx *fakeTx
}

func (f *fakeBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	f.tx = &fakeTx{}
	return f.tx, nil
}

func TestRetryableTransaction(t *testing.T) {
	t.Run("commits on success", func(t *testing.T) {
		pool := &fakeBeginner{}

		err := RetryableTransaction(context.Background(), pool, func(tx pgx.Tx) error {
			return nil
		})

		require.NoError(t, err)
		assert.True(t, pool.tx.committed)
		assert.False(t, pool.tx.rolledBack)
	})

	t.Run("rolls back on failure", func(t *testing.T) {
		pool := &fakeBeginner{}
		pgErr := &pgconn.PgError{Code: "23503"}

		err := RetryableTransaction(context.Background(), pool, func(tx pgx.Tx) error {
			return pgErr
		})

		require.ErrorIs(t, err, pgErr)
		assert.False(t, pool.tx.committed)
		assert.True(t, pool.tx.rolledBack)
	})
}

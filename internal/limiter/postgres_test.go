package limiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

var testPolicy = Policy{Window: 15 * time.Minute, MaxFails: 5, BlockFor: 10 * time.Minute}

func newPG(t *testing.T) (*PG, pgxmock.PgxPoolIface, time.Time) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	now := time.Date(2025, 5, 26, 10, 0, 0, 0, time.UTC)
	l := NewPG(mock, testPolicy)
	l.now = func() time.Time { return now }
	return l, mock, now
}

func TestAllow(t *testing.T) {
	l, mock, now := newPG(t)
	ctx := context.Background()
	h := HashClient("10.0.0.1")

	mock.ExpectQuery(`SELECT blocked_until FROM auth_limiter`).
		WithArgs("a@x.com", h).
		WillReturnError(pgx.ErrNoRows)
	ok, wait, err := l.Allow(ctx, "a@x.com", h)
	require.NoError(t, err)
	require.True(t, ok)
	require.Zero(t, wait)

	mock.ExpectQuery(`SELECT blocked_until FROM auth_limiter`).
		WithArgs("a@x.com", h).
		WillReturnRows(pgxmock.NewRows([]string{"blocked_until"}).AddRow(now.Add(7 * time.Minute)))
	ok, wait, err = l.Allow(ctx, "a@x.com", h)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 7*time.Minute, wait)

	mock.ExpectQuery(`SELECT blocked_until FROM auth_limiter`).
		WithArgs("a@x.com", h).
		WillReturnRows(pgxmock.NewRows([]string{"blocked_until"}).AddRow(now.Add(-time.Second)))
	ok, _, err = l.Allow(ctx, "a@x.com", h)
	require.NoError(t, err)
	require.True(t, ok)

	boom := errors.New("db boom")
	mock.ExpectQuery(`SELECT blocked_until FROM auth_limiter`).
		WithArgs("a@x.com", h).
		WillReturnError(boom)
	ok, _, err = l.Allow(ctx, "a@x.com", h)
	require.ErrorIs(t, err, boom)
	require.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSuccess(t *testing.T) {
	l, mock, _ := newPG(t)
	ctx := context.Background()
	h := HashClient("10.0.0.1")

	mock.ExpectExec(`INSERT INTO auth_limiter .* DO UPDATE SET fail_count=0`).
		WithArgs("a@x.com", h).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, l.Success(ctx, "a@x.com", h))

	mock.ExpectExec(`INSERT INTO auth_limiter`).
		WithArgs("a@x.com", h).
		WillReturnError(errors.New("exec fail"))
	require.Error(t, l.Success(ctx, "a@x.com", h))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFailure(t *testing.T) {
	l, mock, now := newPG(t)
	ctx := context.Background()
	h := HashClient("10.0.0.1")

	mock.ExpectQuery(`INSERT INTO auth_limiter .* RETURNING fail_count`).
		WithArgs("a@x.com", h, testPolicy.Window).
		WillReturnRows(pgxmock.NewRows([]string{"fail_count"}).AddRow(2))
	blocked, wait, err := l.Failure(ctx, "a@x.com", h)
	require.NoError(t, err)
	require.False(t, blocked)
	require.Zero(t, wait)

	mock.ExpectQuery(`RETURNING fail_count`).
		WithArgs("a@x.com", h, testPolicy.Window).
		WillReturnRows(pgxmock.NewRows([]string{"fail_count"}).AddRow(5))
	mock.ExpectExec(`UPDATE auth_limiter SET blocked_until=\$3`).
		WithArgs("a@x.com", h, now.Add(testPolicy.BlockFor)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	blocked, wait, err = l.Failure(ctx, "a@x.com", h)
	require.NoError(t, err)
	require.True(t, blocked)
	require.Equal(t, testPolicy.BlockFor, wait)

	mock.ExpectQuery(`RETURNING fail_count`).
		WithArgs("a@x.com", h, testPolicy.Window).
		WillReturnError(errors.New("query error"))
	_, _, err = l.Failure(ctx, "a@x.com", h)
	require.Error(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPG_Defaults(t *testing.T) {
	t.Parallel()
	l := NewPG(nil, Policy{})
	require.Equal(t, 5, l.policy.MaxFails)
	require.Equal(t, 15*time.Minute, l.policy.Window)
	require.Equal(t, 15*time.Minute, l.policy.BlockFor)
}

func TestHashClient(t *testing.T) {
	t.Parallel()
	a := HashClient("1.2.3.4")
	require.Equal(t, a, HashClient("1.2.3.4"))
	require.NotEqual(t, a, HashClient("5.6.7.8"))
	require.Len(t, a, 32)
}

func TestUnlimited(t *testing.T) {
	t.Parallel()
	var l Limiter = Unlimited{}
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		blocked, _, err := l.Failure(ctx, "a@x.com", nil)
		require.NoError(t, err)
		require.False(t, blocked)
	}
	ok, _, err := l.Allow(ctx, "a@x.com", nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, l.Success(ctx, "a@x.com", nil))
}

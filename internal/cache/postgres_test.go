package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostgres(t *testing.T) (*Postgres, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return NewPostgresWithPool(mock), mock
}

func TestPostgres_Get_Miss(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT value FROM response_cache WHERE key = \$1`).
		WithArgs("providers::hartford").
		WillReturnError(pgx.ErrNoRows)

	_, ok, err := p.Get(context.Background(), "providers::hartford")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Get_Hit(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT value FROM response_cache`).
		WithArgs("towns").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow([]byte(`[]`)))

	got, ok, err := p.Get(context.Background(), "towns")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[]", string(got))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Get_Error(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT value FROM response_cache`).
		WithArgs("towns").
		WillReturnError(errors.New("conn refused"))

	_, _, err := p.Get(context.Background(), "towns")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: get towns")
}

func TestPostgres_Set_Upsert(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectExec(`INSERT INTO response_cache .* ON CONFLICT \(key\) DO UPDATE`).
		WithArgs(pgxmock.AnyArg(), "towns", []byte("x"), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, p.Set(context.Background(), "towns", []byte("x"), time.Hour))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_DeleteExpired(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectExec(`DELETE FROM response_cache WHERE expires_at <= now\(\)`).
		WillReturnResult(pgxmock.NewResult("DELETE", 4))

	n, err := p.DeleteExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Migrate(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS response_cache`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, p.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

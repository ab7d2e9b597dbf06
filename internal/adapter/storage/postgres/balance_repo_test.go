package postgres

import (
	"context"
	"testing"
	"time"

	"game-economy-service/internal/core/domain"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalanceRepo_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBalanceRepo(mock)

	mock.ExpectQuery("SELECT amount FROM balances WHERE user_id").
		WithArgs("user-1", domain.CurrencySoft).
		WillReturnRows(pgxmock.NewRows([]string{"amount"}).AddRow(int64(250)))

	amount, err := repo.Get(context.Background(), "user-1", domain.CurrencySoft)
	require.NoError(t, err)
	assert.Equal(t, int64(250), amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBalanceRepo_Get_AbsentReadsZero(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBalanceRepo(mock)

	mock.ExpectQuery("SELECT amount FROM balances WHERE user_id").
		WithArgs("ghost", domain.CurrencyPremium).
		WillReturnRows(pgxmock.NewRows([]string{"amount"}))

	amount, err := repo.Get(context.Background(), "ghost", domain.CurrencyPremium)
	require.NoError(t, err)
	assert.Zero(t, amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBalanceRepo_GetAll(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBalanceRepo(mock)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT .+ FROM balances WHERE user_id").
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "currency", "amount", "created_at", "updated_at"}).
			AddRow("user-1", domain.CurrencySoft, int64(100), now, now).
			AddRow("user-1", domain.CurrencyPremium, int64(25), now, now))

	balances, err := repo.GetAll(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, balances, 2)
	assert.Equal(t, domain.CurrencySoft, balances[0].Currency)
	assert.Equal(t, int64(25), balances[1].Amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBalanceRepo_EnsureExists(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBalanceRepo(mock)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO balances .+ ON CONFLICT").
		WithArgs("user-1", domain.CurrencySoft).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.EnsureExists(context.Background(), tx, "user-1", domain.CurrencySoft)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBalanceRepo_GetForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBalanceRepo(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT amount FROM balances WHERE .+ FOR UPDATE").
		WithArgs("user-1", domain.CurrencySoft).
		WillReturnRows(pgxmock.NewRows([]string{"amount"}).AddRow(int64(100)))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	amount, found, err := repo.GetForUpdate(context.Background(), tx, "user-1", domain.CurrencySoft)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(100), amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBalanceRepo_GetForUpdate_Missing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBalanceRepo(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT amount FROM balances WHERE .+ FOR UPDATE").
		WithArgs("ghost", domain.CurrencySoft).
		WillReturnRows(pgxmock.NewRows([]string{"amount"}))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	_, found, err := repo.GetForUpdate(context.Background(), tx, "ghost", domain.CurrencySoft)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBalanceRepo_SetAmount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBalanceRepo(mock)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE balances SET amount").
		WithArgs(int64(150), "user-1", domain.CurrencySoft).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.SetAmount(context.Background(), tx, "user-1", domain.CurrencySoft, 150)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBalanceRepo_SetAmount_NegativePanics(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBalanceRepo(mock)

	mock.ExpectBegin()
	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	// A negative amount is a programming-contract violation, not a
	// user-facing error.
	assert.Panics(t, func() {
		_ = repo.SetAmount(context.Background(), tx, "user-1", domain.CurrencySoft, -1)
	})
}

func TestBalanceRepo_Circulation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBalanceRepo(mock)

	mock.ExpectQuery("SELECT COALESCE.+ FROM balances WHERE currency").
		WithArgs(domain.CurrencySoft).
		WillReturnRows(pgxmock.NewRows([]string{"sum", "avg", "count"}).
			AddRow(int64(5000), 250.0, int64(20)))

	total, avg, holders, err := repo.Circulation(context.Background(), domain.CurrencySoft)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), total)
	assert.Equal(t, 250.0, avg)
	assert.Equal(t, int64(20), holders)
	assert.NoError(t, mock.ExpectationsWereMet())
}

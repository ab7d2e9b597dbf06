package postgres

import (
	"context"
	"errors"
	"fmt"

	"game-economy-service/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// BalanceRepo implements ports.BalanceRepository.
type BalanceRepo struct {
	pool Pool
}

// NewBalanceRepo creates a new BalanceRepo.
func NewBalanceRepo(pool Pool) *BalanceRepo {
	return &BalanceRepo{pool: pool}
}

// Get returns the current amount for (user, currency) without locking.
// A missing row reads as zero and is not created.
func (r *BalanceRepo) Get(ctx context.Context, userID string, currency domain.CurrencyKind) (int64, error) {
	query := `SELECT amount FROM balances WHERE user_id = $1 AND currency = $2`

	var amount int64
	err := r.pool.QueryRow(ctx, query, userID, currency).Scan(&amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return amount, nil
}

// GetAll fetches every balance row for a user (non-locking read).
func (r *BalanceRepo) GetAll(ctx context.Context, userID string) ([]domain.Balance, error) {
	query := `SELECT user_id, currency, amount, created_at, updated_at
		FROM balances WHERE user_id = $1`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get balances: %w", err)
	}
	defer rows.Close()

	var balances []domain.Balance
	for rows.Next() {
		b := domain.Balance{}
		if err := rows.Scan(&b.UserID, &b.Currency, &b.Amount, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan balance row: %w", err)
		}
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate balance rows: %w", err)
	}
	return balances, nil
}

// EnsureExists creates a zero balance row if absent. The single-statement
// ON CONFLICT DO NOTHING makes it an atomic get-or-create with no window
// between existence check and insert.
func (r *BalanceRepo) EnsureExists(ctx context.Context, tx pgx.Tx, userID string, currency domain.CurrencyKind) error {
	query := `INSERT INTO balances (user_id, currency, amount, created_at, updated_at)
		VALUES ($1, $2, 0, NOW(), NOW())
		ON CONFLICT (user_id, currency) DO NOTHING`

	if _, err := tx.Exec(ctx, query, userID, currency); err != nil {
		return fmt.Errorf("ensure balance exists: %w", err)
	}
	return nil
}

// GetForUpdate fetches the amount with a pessimistic row lock, blocking
// other mutators of the same (user, currency) until tx ends.
// This MUST be called within a transaction.
func (r *BalanceRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, userID string, currency domain.CurrencyKind) (int64, bool, error) {
	query := `SELECT amount FROM balances WHERE user_id = $1 AND currency = $2 FOR UPDATE`

	var amount int64
	err := tx.QueryRow(ctx, query, userID, currency).Scan(&amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("lock balance: %w", err)
	}
	return amount, true, nil
}

// SetAmount writes the new amount under the lock held by tx. Negative
// amounts are a contract violation, never a data state.
func (r *BalanceRepo) SetAmount(ctx context.Context, tx pgx.Tx, userID string, currency domain.CurrencyKind, amount int64) error {
	if amount < 0 {
		panic(fmt.Sprintf("balance for user %s would go negative: %d", userID, amount))
	}

	query := `UPDATE balances SET amount = $1, updated_at = NOW() WHERE user_id = $2 AND currency = $3`

	tag, err := tx.Exec(ctx, query, amount, userID, currency)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("balance row not found: %s/%s", userID, currency)
	}
	return nil
}

// Circulation returns total, per-user average and holder count for one currency.
func (r *BalanceRepo) Circulation(ctx context.Context, currency domain.CurrencyKind) (int64, float64, int64, error) {
	query := `SELECT COALESCE(SUM(amount), 0), COALESCE(AVG(amount), 0), COUNT(*)
		FROM balances WHERE currency = $1`

	var total int64
	var average float64
	var holders int64
	err := r.pool.QueryRow(ctx, query, currency).Scan(&total, &average, &holders)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("balance circulation: %w", err)
	}
	return total, average, holders, nil
}

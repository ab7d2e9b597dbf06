package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"game-economy-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LedgerRepo implements ports.LedgerRepository over the append-only
// transactions table. Entries are never updated or deleted.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// Append inserts a ledger entry within a database transaction.
func (r *LedgerRepo) Append(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	query := `INSERT INTO transactions (id, user_id, currency, category, amount,
		balance_before, balance_after, description, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := tx.Exec(ctx, query,
		e.ID, e.UserID, e.Currency, e.Category, e.Amount,
		e.BalanceBefore, e.BalanceAfter, e.Description, e.Metadata, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// GetByID fetches an entry by UUID.
func (r *LedgerRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error) {
	query := `SELECT id, user_id, currency, category, amount,
		balance_before, balance_after, description, metadata, created_at
		FROM transactions WHERE id = $1`

	return scanLedgerEntry(r.pool.QueryRow(ctx, query, id))
}

// ListByUser fetches one history page for a user, newest first, plus the
// total entry count. Page is 1-indexed.
func (r *LedgerRepo) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]domain.LedgerEntry, int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE user_id = $1`, userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count ledger entries: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `SELECT id, user_id, currency, category, amount,
		balance_before, balance_after, description, metadata, created_at
		FROM transactions WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, userID, pageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		e := domain.LedgerEntry{}
		err := rows.Scan(
			&e.ID, &e.UserID, &e.Currency, &e.Category, &e.Amount,
			&e.BalanceBefore, &e.BalanceAfter, &e.Description, &e.Metadata, &e.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan ledger row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate ledger rows: %w", err)
	}
	return entries, total, nil
}

// CountDistinctUsers counts users with at least one entry in [from, to).
// A zero currency value counts across both currencies.
func (r *LedgerRepo) CountDistinctUsers(ctx context.Context, from, to time.Time, currency domain.CurrencyKind) (int64, error) {
	var count int64
	var err error
	if currency == "" {
		query := `SELECT COUNT(DISTINCT user_id) FROM transactions
			WHERE created_at >= $1 AND created_at < $2`
		err = r.pool.QueryRow(ctx, query, from, to).Scan(&count)
	} else {
		query := `SELECT COUNT(DISTINCT user_id) FROM transactions
			WHERE created_at >= $1 AND created_at < $2 AND currency = $3`
		err = r.pool.QueryRow(ctx, query, from, to, currency).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("count distinct users: %w", err)
	}
	return count, nil
}

// CountActiveUsers splits distinct users in [from, to) into earners and
// spenders by the sign of their entry amounts. A user doing both counts in
// both figures.
func (r *LedgerRepo) CountActiveUsers(ctx context.Context, from, to time.Time) (int64, int64, error) {
	query := `SELECT
			COUNT(DISTINCT user_id) FILTER (WHERE amount > 0),
			COUNT(DISTINCT user_id) FILTER (WHERE amount < 0)
		FROM transactions
		WHERE created_at >= $1 AND created_at < $2`

	var earners, spenders int64
	if err := r.pool.QueryRow(ctx, query, from, to).Scan(&earners, &spenders); err != nil {
		return 0, 0, fmt.Errorf("count active users: %w", err)
	}
	return earners, spenders, nil
}

// scanLedgerEntry is a helper to scan a single row into a LedgerEntry.
func scanLedgerEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	e := &domain.LedgerEntry{}
	err := row.Scan(
		&e.ID, &e.UserID, &e.Currency, &e.Category, &e.Amount,
		&e.BalanceBefore, &e.BalanceAfter, &e.Description, &e.Metadata, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan ledger entry: %w", err)
	}
	return e, nil
}

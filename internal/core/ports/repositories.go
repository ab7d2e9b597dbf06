package ports

import (
	"context"
	"time"

	"game-economy-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BalanceRepository defines persistence for the (user, currency) balance rows.
// Methods accepting pgx.Tx run inside transaction blocks for pessimistic locking.
type BalanceRepository interface {
	// Get returns the current amount without creating a row; absent rows read as 0.
	Get(ctx context.Context, userID string, currency domain.CurrencyKind) (int64, error)
	// GetAll returns every balance row for a user (read committed, no locks).
	GetAll(ctx context.Context, userID string) ([]domain.Balance, error)
	// EnsureExists creates a zero row if absent. Idempotent; a single atomic
	// get-or-create, safe to race with itself.
	EnsureExists(ctx context.Context, tx pgx.Tx, userID string, currency domain.CurrencyKind) error
	// GetForUpdate acquires the row lock and returns the current amount.
	// Returns found=false if the row does not exist. MUST run inside tx.
	GetForUpdate(ctx context.Context, tx pgx.Tx, userID string, currency domain.CurrencyKind) (amount int64, found bool, err error)
	// SetAmount writes the new amount under the lock held by tx.
	SetAmount(ctx context.Context, tx pgx.Tx, userID string, currency domain.CurrencyKind, amount int64) error
	// Circulation returns total, average and holder count for one currency.
	Circulation(ctx context.Context, currency domain.CurrencyKind) (total int64, average float64, holders int64, err error)
}

// LedgerRepository defines persistence for the append-only transaction log.
type LedgerRepository interface {
	Append(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error)
	// ListByUser returns one page ordered by created_at descending plus the
	// total entry count for the user. Page is 1-indexed.
	ListByUser(ctx context.Context, userID string, page, pageSize int) ([]domain.LedgerEntry, int64, error)
	// CountDistinctUsers counts users with at least one entry in [from, to)
	// for the given currency (zero value = all currencies).
	CountDistinctUsers(ctx context.Context, from, to time.Time, currency domain.CurrencyKind) (int64, error)
	// CountActiveUsers splits distinct users in [from, to) into earners
	// (at least one credit) and spenders (at least one debit).
	CountActiveUsers(ctx context.Context, from, to time.Time) (earners, spenders int64, err error)
}

// PurchaseRepository defines persistence for purchase records.
type PurchaseRepository interface {
	// Create inserts a pending purchase. A duplicate
	// (gateway, provider_transaction_id) pair fails with the typed
	// duplicate-submission error via the unique constraint.
	Create(ctx context.Context, p *domain.Purchase) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Purchase, error)
	// GetByIDForUpdate locks the purchase row. MUST run inside tx.
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Purchase, error)
	// SetStatus records a status transition; entryID and completedAt are
	// optional and written when non-nil.
	SetStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.PurchaseStatus, entryID *uuid.UUID, completedAt *time.Time) error
	// Revenue aggregates completed purchases per package over [from, to).
	Revenue(ctx context.Context, from, to time.Time) ([]domain.PackageRevenue, int64, error)
}

// PackageRepository is the read-only catalog of currency packages.
type PackageRepository interface {
	GetByID(ctx context.Context, packageID string) (*domain.CurrencyPackage, error)
	ListActive(ctx context.Context) ([]domain.CurrencyPackage, error)
}

// AggregateRepository maintains the daily per-category rollups.
type AggregateRepository interface {
	// Increment applies a commutative (+1 count, +amount) upsert for the key
	// within the same transaction as the balance mutation it accounts for.
	Increment(ctx context.Context, tx pgx.Tx, date time.Time, currency domain.CurrencyKind, category domain.TransactionCategory, amount int64) error
	// ListByDate returns all rows for a day, optionally filtered by currency
	// (zero value = both).
	ListByDate(ctx context.Context, date time.Time, currency domain.CurrencyKind) ([]domain.DailyAggregate, error)
	// ListRange returns rows for [from, to) for one currency, date ascending.
	ListRange(ctx context.Context, from, to time.Time, currency domain.CurrencyKind) ([]domain.DailyAggregate, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

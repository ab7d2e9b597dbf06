package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"game-economy-service/internal/core/domain"
	"game-economy-service/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PurchaseRepo implements ports.PurchaseRepository.
type PurchaseRepo struct {
	pool Pool
}

// NewPurchaseRepo creates a new PurchaseRepo.
func NewPurchaseRepo(pool Pool) *PurchaseRepo {
	return &PurchaseRepo{pool: pool}
}

const purchaseColumns = `id, user_id, package_id, amount, price_usd,
	payment_method, gateway, provider_transaction_id, receipt,
	status, ledger_entry_id, created_at, completed_at`

// Create inserts a pending purchase. The unique constraint on
// (gateway, provider_transaction_id) rejects duplicate provider submissions
// at the storage layer, independent of the status check.
func (r *PurchaseRepo) Create(ctx context.Context, p *domain.Purchase) error {
	query := `INSERT INTO purchases (id, user_id, package_id, amount, price_usd,
		payment_method, gateway, provider_transaction_id, receipt, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.UserID, p.PackageID, p.Amount, p.PriceUSD,
		p.PaymentMethod, p.Gateway, p.ProviderTransactionID, p.Receipt,
		p.Status, p.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return apperror.ErrDuplicateSubmission()
		}
		return fmt.Errorf("insert purchase: %w", err)
	}
	return nil
}

// GetByID fetches a purchase by UUID (without locking).
func (r *PurchaseRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Purchase, error) {
	query := fmt.Sprintf(`SELECT %s FROM purchases WHERE id = $1`, purchaseColumns)
	return scanPurchase(r.pool.QueryRow(ctx, query, id))
}

// GetByIDForUpdate fetches a purchase with a pessimistic row lock. This is
// the serialization point that makes double-completion impossible.
// MUST be called within a transaction.
func (r *PurchaseRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Purchase, error) {
	query := fmt.Sprintf(`SELECT %s FROM purchases WHERE id = $1 FOR UPDATE`, purchaseColumns)
	return scanPurchase(tx.QueryRow(ctx, query, id))
}

// SetStatus records a status transition within a database transaction.
// entryID and completedAt are written when non-nil.
func (r *PurchaseRepo) SetStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.PurchaseStatus, entryID *uuid.UUID, completedAt *time.Time) error {
	query := `UPDATE purchases SET status = $1,
		ledger_entry_id = COALESCE($2, ledger_entry_id),
		completed_at = COALESCE($3, completed_at)
		WHERE id = $4`

	tag, err := tx.Exec(ctx, query, status, entryID, completedAt, id)
	if err != nil {
		return fmt.Errorf("update purchase status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("purchase not found: %s", id)
	}
	return nil
}

// Revenue aggregates completed purchases per package over [from, to),
// returning the breakdown and the distinct buyer count.
func (r *PurchaseRepo) Revenue(ctx context.Context, from, to time.Time) ([]domain.PackageRevenue, int64, error) {
	query := `SELECT package_id, COUNT(*), COALESCE(SUM(price_usd), 0)
		FROM purchases
		WHERE status = 'completed' AND completed_at >= $1 AND completed_at < $2
		GROUP BY package_id`

	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, 0, fmt.Errorf("revenue breakdown: %w", err)
	}
	defer rows.Close()

	var breakdown []domain.PackageRevenue
	for rows.Next() {
		p := domain.PackageRevenue{}
		if err := rows.Scan(&p.PackageID, &p.Count, &p.Revenue); err != nil {
			return nil, 0, fmt.Errorf("scan revenue row: %w", err)
		}
		breakdown = append(breakdown, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate revenue rows: %w", err)
	}

	var buyers int64
	buyersQuery := `SELECT COUNT(DISTINCT user_id) FROM purchases
		WHERE status = 'completed' AND completed_at >= $1 AND completed_at < $2`
	if err := r.pool.QueryRow(ctx, buyersQuery, from, to).Scan(&buyers); err != nil {
		return nil, 0, fmt.Errorf("count unique buyers: %w", err)
	}

	return breakdown, buyers, nil
}

// scanPurchase is a helper to scan a single row into a Purchase.
func scanPurchase(row pgx.Row) (*domain.Purchase, error) {
	p := &domain.Purchase{}
	err := row.Scan(
		&p.ID, &p.UserID, &p.PackageID, &p.Amount, &p.PriceUSD,
		&p.PaymentMethod, &p.Gateway, &p.ProviderTransactionID, &p.Receipt,
		&p.Status, &p.LedgerEntryID, &p.CreatedAt, &p.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan purchase: %w", err)
	}
	return p, nil
}

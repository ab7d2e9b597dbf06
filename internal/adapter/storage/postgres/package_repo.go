package postgres

import (
	"context"
	"errors"
	"fmt"

	"game-economy-service/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// PackageRepo implements ports.PackageRepository. The catalog is owned by
// configuration management; this repo only reads it.
type PackageRepo struct {
	pool Pool
}

// NewPackageRepo creates a new PackageRepo.
func NewPackageRepo(pool Pool) *PackageRepo {
	return &PackageRepo{pool: pool}
}

const packageColumns = `id, name, description, currency_amount, price_usd,
	bonus_percent, is_active, display_order, created_at, updated_at`

// GetByID fetches a catalog entry regardless of its active flag.
func (r *PackageRepo) GetByID(ctx context.Context, packageID string) (*domain.CurrencyPackage, error) {
	query := fmt.Sprintf(`SELECT %s FROM currency_packages WHERE id = $1`, packageColumns)

	p := &domain.CurrencyPackage{}
	err := r.pool.QueryRow(ctx, query, packageID).Scan(
		&p.ID, &p.Name, &p.Description, &p.CurrencyAmount, &p.PriceUSD,
		&p.BonusPercent, &p.Active, &p.DisplayOrder, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get package: %w", err)
	}
	return p, nil
}

// ListActive fetches active packages in display order.
func (r *PackageRepo) ListActive(ctx context.Context) ([]domain.CurrencyPackage, error) {
	query := fmt.Sprintf(`SELECT %s FROM currency_packages
		WHERE is_active = true ORDER BY display_order ASC`, packageColumns)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	defer rows.Close()

	var packages []domain.CurrencyPackage
	for rows.Next() {
		p := domain.CurrencyPackage{}
		err := rows.Scan(
			&p.ID, &p.Name, &p.Description, &p.CurrencyAmount, &p.PriceUSD,
			&p.BonusPercent, &p.Active, &p.DisplayOrder, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan package row: %w", err)
		}
		packages = append(packages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate package rows: %w", err)
	}
	return packages, nil
}

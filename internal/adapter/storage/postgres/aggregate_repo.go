package postgres

import (
	"context"
	"fmt"
	"time"

	"game-economy-service/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// AggregateRepo implements ports.AggregateRepository over the daily
// per-category rollup table. Rows are only ever incremented; the table is
// rebuildable from the transactions log.
type AggregateRepo struct {
	pool Pool
}

// NewAggregateRepo creates a new AggregateRepo.
func NewAggregateRepo(pool Pool) *AggregateRepo {
	return &AggregateRepo{pool: pool}
}

// Increment applies a commutative count/amount upsert for
// (date, currency, category). Runs in the same transaction as the balance
// mutation it accounts for.
func (r *AggregateRepo) Increment(ctx context.Context, tx pgx.Tx, date time.Time, currency domain.CurrencyKind, category domain.TransactionCategory, amount int64) error {
	query := `INSERT INTO currency_analytics (date, currency, category, tx_count, total_amount)
		VALUES ($1, $2, $3, 1, $4)
		ON CONFLICT (date, currency, category)
		DO UPDATE SET
			tx_count = currency_analytics.tx_count + 1,
			total_amount = currency_analytics.total_amount + $4`

	day := date.UTC().Truncate(24 * time.Hour)
	if _, err := tx.Exec(ctx, query, day, currency, category, amount); err != nil {
		return fmt.Errorf("increment aggregate: %w", err)
	}
	return nil
}

// ListByDate fetches all aggregate rows for a day. A zero currency value
// returns both currencies.
func (r *AggregateRepo) ListByDate(ctx context.Context, date time.Time, currency domain.CurrencyKind) ([]domain.DailyAggregate, error) {
	day := date.UTC().Truncate(24 * time.Hour)

	var rows pgx.Rows
	var err error
	if currency == "" {
		query := `SELECT date, currency, category, tx_count, total_amount
			FROM currency_analytics WHERE date = $1
			ORDER BY currency, category`
		rows, err = r.pool.Query(ctx, query, day)
	} else {
		query := `SELECT date, currency, category, tx_count, total_amount
			FROM currency_analytics WHERE date = $1 AND currency = $2
			ORDER BY category`
		rows, err = r.pool.Query(ctx, query, day, currency)
	}
	if err != nil {
		return nil, fmt.Errorf("list aggregates: %w", err)
	}
	defer rows.Close()

	return scanAggregates(rows)
}

// ListRange fetches aggregate rows for [from, to) for one currency,
// date ascending.
func (r *AggregateRepo) ListRange(ctx context.Context, from, to time.Time, currency domain.CurrencyKind) ([]domain.DailyAggregate, error) {
	query := `SELECT date, currency, category, tx_count, total_amount
		FROM currency_analytics
		WHERE date >= $1 AND date < $2 AND currency = $3
		ORDER BY date ASC`

	rows, err := r.pool.Query(ctx, query,
		from.UTC().Truncate(24*time.Hour), to.UTC().Truncate(24*time.Hour), currency)
	if err != nil {
		return nil, fmt.Errorf("list aggregate range: %w", err)
	}
	defer rows.Close()

	return scanAggregates(rows)
}

func scanAggregates(rows pgx.Rows) ([]domain.DailyAggregate, error) {
	var aggs []domain.DailyAggregate
	for rows.Next() {
		a := domain.DailyAggregate{}
		if err := rows.Scan(&a.Date, &a.Currency, &a.Category, &a.TxCount, &a.TotalAmount); err != nil {
			return nil, fmt.Errorf("scan aggregate row: %w", err)
		}
		aggs = append(aggs, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aggregate rows: %w", err)
	}
	return aggs, nil
}

package service

import (
	"context"
	"fmt"
	"time"

	"game-economy-service/internal/core/domain"
	"game-economy-service/internal/core/ports"
	"game-economy-service/pkg/apperror"

	"github.com/rs/zerolog"
)

const dateLayout = "2006-01-02"

// AnalyticsSvc implements ports.AnalyticsService. Everything here is
// derived reading: the rollup table, the balance table and the purchase
// table are queried as they stand, with no locks taken.
type AnalyticsSvc struct {
	balances   ports.BalanceRepository
	ledger     ports.LedgerRepository
	purchases  ports.PurchaseRepository
	aggregates ports.AggregateRepository
	log        zerolog.Logger
}

// NewAnalyticsService creates a new analytics service.
func NewAnalyticsService(
	balances ports.BalanceRepository,
	ledger ports.LedgerRepository,
	purchases ports.PurchaseRepository,
	aggregates ports.AggregateRepository,
	log zerolog.Logger,
) *AnalyticsSvc {
	return &AnalyticsSvc{
		balances:   balances,
		ledger:     ledger,
		purchases:  purchases,
		aggregates: aggregates,
		log:        log.With().Str("component", "analytics_service").Logger(),
	}
}

// DailyReport summarizes one UTC day per currency. A zero currency value
// reports both; a day with no activity yields an empty report, not an error.
func (s *AnalyticsSvc) DailyReport(ctx context.Context, date time.Time, currency domain.CurrencyKind) ([]domain.DailyReport, error) {
	if currency != "" && !currency.Valid() {
		return nil, apperror.ErrInvalidCurrency()
	}

	day := date.UTC().Truncate(24 * time.Hour)
	aggs, err := s.aggregates.ListByDate(ctx, day, currency)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	currencies := []domain.CurrencyKind{domain.CurrencySoft, domain.CurrencyPremium}
	if currency != "" {
		currencies = []domain.CurrencyKind{currency}
	}

	var reports []domain.DailyReport
	for _, cur := range currencies {
		report := domain.DailyReport{Date: day, Currency: cur}
		for _, a := range aggs {
			if a.Currency != cur {
				continue
			}
			report.Categories = append(report.Categories, domain.CategoryBreakdown{
				Category: a.Category,
				Count:    a.TxCount,
				Amount:   abs(a.TotalAmount),
			})
			report.NetChange += a.TotalAmount
			if a.TotalAmount > 0 {
				report.TotalEarned += a.TotalAmount
			} else {
				report.TotalSpent += -a.TotalAmount
			}
		}

		users, err := s.ledger.CountDistinctUsers(ctx, day, day.Add(24*time.Hour), cur)
		if err != nil {
			return nil, apperror.InternalError(err)
		}
		report.UniqueUsers = users
		reports = append(reports, report)
	}
	return reports, nil
}

// EconomyHealth assembles the operator snapshot: circulation per currency,
// today's earn/spend rates, and engagement over the last 24 hours.
func (s *AnalyticsSvc) EconomyHealth(ctx context.Context) (*domain.EconomyHealth, error) {
	health := &domain.EconomyHealth{}

	softTotal, softAvg, softHolders, err := s.balances.Circulation(ctx, domain.CurrencySoft)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	health.Soft.TotalInCirculation = softTotal
	health.Soft.AveragePerUser = softAvg
	health.Soft.Holders = softHolders

	premTotal, premAvg, premHolders, err := s.balances.Circulation(ctx, domain.CurrencyPremium)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	health.Premium.TotalInCirculation = premTotal
	health.Premium.AveragePerUser = premAvg
	health.Premium.Holders = premHolders
	if softHolders > 0 {
		health.Premium.AdoptionRate = float64(premHolders) / float64(softHolders) * 100
	}

	now := time.Now().UTC()
	today := now.Truncate(24 * time.Hour)

	softAggs, err := s.aggregates.ListByDate(ctx, today, domain.CurrencySoft)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	for _, a := range softAggs {
		if a.TotalAmount > 0 {
			health.Soft.DailyEarnRate += a.TotalAmount
		} else {
			health.Soft.DailySpendRate += -a.TotalAmount
		}
	}
	if softTotal > 0 {
		health.Soft.InflationRate = float64(health.Soft.DailyEarnRate-health.Soft.DailySpendRate) / float64(softTotal) * 100
	}

	earners, spenders, err := s.ledger.CountActiveUsers(ctx, now.Add(-24*time.Hour), now)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	health.Engagement.ActiveEarners = earners
	health.Engagement.ActiveSpenders = spenders

	allAggs, err := s.aggregates.ListByDate(ctx, today, "")
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	for _, a := range allAggs {
		health.Engagement.TransactionVelocity += a.TxCount
	}

	return health, nil
}

// RevenueReport summarizes completed purchases over [from, to).
func (s *AnalyticsSvc) RevenueReport(ctx context.Context, from, to time.Time) (*domain.RevenueReport, error) {
	if !to.After(from) {
		return nil, apperror.Validation("report window must end after it starts")
	}

	breakdown, buyers, err := s.purchases.Revenue(ctx, from, to)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	report := &domain.RevenueReport{
		Period:       fmt.Sprintf("%s to %s", from.UTC().Format(dateLayout), to.UTC().Format(dateLayout)),
		UniqueBuyers: buyers,
		Packages:     breakdown,
	}
	for _, p := range breakdown {
		report.TotalRevenue += p.Revenue
		report.TotalPurchases += p.Count
	}
	if report.TotalPurchases > 0 {
		report.AverageTransaction = report.TotalRevenue / float64(report.TotalPurchases)
	}
	return report, nil
}

// CurrencyFlow builds a per-day earned/spent/net series for one currency
// over [from, to). Days without activity appear as zeros, so the series is
// gap-free and chartable as is.
func (s *AnalyticsSvc) CurrencyFlow(ctx context.Context, from, to time.Time, currency domain.CurrencyKind) (*domain.CurrencyFlow, error) {
	if !currency.Valid() {
		return nil, apperror.ErrInvalidCurrency()
	}
	if !to.After(from) {
		return nil, apperror.Validation("report window must end after it starts")
	}

	start := from.UTC().Truncate(24 * time.Hour)
	end := to.UTC().Truncate(24 * time.Hour)

	aggs, err := s.aggregates.ListRange(ctx, start, end, currency)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	type daily struct{ earned, spent int64 }
	byDay := make(map[string]*daily)
	for _, a := range aggs {
		key := a.Date.UTC().Format(dateLayout)
		d, ok := byDay[key]
		if !ok {
			d = &daily{}
			byDay[key] = d
		}
		if a.TotalAmount > 0 {
			d.earned += a.TotalAmount
		} else {
			d.spent += -a.TotalAmount
		}
	}

	flow := &domain.CurrencyFlow{}
	for day := start; day.Before(end); day = day.Add(24 * time.Hour) {
		key := day.Format(dateLayout)
		flow.Dates = append(flow.Dates, key)
		if d, ok := byDay[key]; ok {
			flow.Earned = append(flow.Earned, d.earned)
			flow.Spent = append(flow.Spent, d.spent)
			flow.Net = append(flow.Net, d.earned-d.spent)
		} else {
			flow.Earned = append(flow.Earned, 0)
			flow.Spent = append(flow.Spent, 0)
			flow.Net = append(flow.Net, 0)
		}
	}
	return flow, nil
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

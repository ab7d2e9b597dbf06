package integration

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"game-economy-service/internal/adapter/storage/redis"
	"game-economy-service/internal/core/domain"
	"game-economy-service/internal/core/ports"
	"game-economy-service/internal/service"
	"game-economy-service/pkg/apperror"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// world wires the real services over the in-memory storage harness plus a
// miniredis-backed cache layer.
type world struct {
	store     *store
	ledger    *service.LedgerSvc
	purchases *service.PurchaseSvc
	analytics *service.AnalyticsSvc
}

func newWorld(t *testing.T) *world {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	s := newStore()
	balances := &memBalanceRepo{s: s}
	ledgerRepo := &memLedgerRepo{s: s}
	purchaseRepo := &memPurchaseRepo{s: s}
	packageRepo := &memPackageRepo{s: s}
	aggregateRepo := &memAggregateRepo{s: s}
	transactor := &memTransactor{s: s}

	w := &world{store: s}
	w.ledger = service.NewLedgerService(balances, ledgerRepo, aggregateRepo, transactor, zerolog.Nop())
	w.purchases = service.NewPurchaseService(
		purchaseRepo, packageRepo, balances, ledgerRepo, aggregateRepo, transactor,
		redis.NewCatalogCache(client), redis.NewCompletionCache(client),
		time.Minute, zerolog.Nop(),
	)
	w.analytics = service.NewAnalyticsService(balances, ledgerRepo, purchaseRepo, aggregateRepo, zerolog.Nop())
	return w
}

func (w *world) seedPackage() {
	w.store.packages["gems_medium"] = domain.CurrencyPackage{
		ID:             "gems_medium",
		Name:           "Medium Gem Pack",
		CurrencyAmount: 550,
		PriceUSD:       9.99,
		Active:         true,
		DisplayOrder:   1,
	}
}

func (w *world) earn(t *testing.T, userID string, amount int64) {
	t.Helper()
	_, err := w.ledger.Earn(context.Background(), ports.EarnRequest{
		UserID:   userID,
		Currency: domain.CurrencySoft,
		Category: domain.CategoryEarnMission,
		Amount:   amount,
	})
	require.NoError(t, err)
}

func appCode(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func TestConcurrentSpends_NeverOverdraw(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	w.earn(t, "user-1", 100)

	const workers = 10
	const spendAmount = 30

	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := w.ledger.Spend(ctx, ports.SpendRequest{
				UserID:   "user-1",
				Currency: domain.CurrencySoft,
				Category: domain.CategorySpendUpgrade,
				Amount:   spendAmount,
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, insufficient int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case appCode(err) == "LEDGER_001":
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// floor(100/30) spends fit; the rest fail cleanly.
	assert.Equal(t, 3, succeeded)
	assert.Equal(t, 7, insufficient)

	balance, err := w.ledger.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), balance.Soft)
}

func TestLedgerEntries_ChainConsistently(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	w.earn(t, "user-1", 100)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if n%2 == 0 {
				w.ledger.Earn(ctx, ports.EarnRequest{ //nolint:errcheck
					UserID: "user-1", Currency: domain.CurrencySoft,
					Category: domain.CategoryEarnQuiz, Amount: 10,
				})
			} else {
				w.ledger.Spend(ctx, ports.SpendRequest{ //nolint:errcheck
					UserID: "user-1", Currency: domain.CurrencySoft,
					Category: domain.CategorySpendUpgrade, Amount: 15,
				})
			}
		}(i)
	}
	wg.Wait()

	// Every entry satisfies after = before + amount, and replaying the log
	// from zero lands exactly on the stored balance.
	var replayed int64
	for _, e := range w.store.entries {
		assert.Equal(t, e.BalanceAfter, e.BalanceBefore+e.Amount)
		assert.GreaterOrEqual(t, e.BalanceAfter, int64(0))
		replayed += e.Amount
	}
	balance, err := w.ledger.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, balance.Soft, replayed)
}

func TestEarnSpendOverspendScenario(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	w.earn(t, "user-1", 100)

	_, err := w.ledger.Spend(ctx, ports.SpendRequest{
		UserID: "user-1", Currency: domain.CurrencySoft,
		Category: domain.CategorySpendUpgrade, Amount: 50,
	})
	require.NoError(t, err)

	_, err = w.ledger.Spend(ctx, ports.SpendRequest{
		UserID: "user-1", Currency: domain.CurrencySoft,
		Category: domain.CategorySpendUpgrade, Amount: 60,
	})
	assert.Equal(t, "LEDGER_001", appCode(err))

	balance, err := w.ledger.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance.Soft)

	// the failed overspend left no trace in the log
	history, err := w.ledger.GetTransactionHistory(ctx, "user-1", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), history.TotalCount)
}

func TestPurchaseLifecycle_ExactlyOnce(t *testing.T) {
	w := newWorld(t)
	w.seedPackage()
	ctx := context.Background()

	purchase, err := w.purchases.Initiate(ctx, ports.InitiateRequest{
		UserID:                "user-1",
		PackageID:             "gems_medium",
		PaymentMethod:         "card",
		Gateway:               "stripe",
		ProviderTransactionID: "pi_once",
	})
	require.NoError(t, err)
	require.Equal(t, domain.PurchaseStatusPending, purchase.Status)

	require.NoError(t, w.purchases.Complete(ctx, purchase.ID))

	// The provider retries its callback.
	err = w.purchases.Complete(ctx, purchase.ID)
	assert.Equal(t, "PURCH_002", appCode(err))

	balance, err := w.ledger.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(550), balance.Premium)

	stored := w.store.purchases[purchase.ID]
	assert.Equal(t, domain.PurchaseStatusCompleted, stored.Status)
	require.NotNil(t, stored.LedgerEntryID)
}

func TestConcurrentCompletions_CreditOnce(t *testing.T) {
	w := newWorld(t)
	w.seedPackage()
	ctx := context.Background()

	purchase, err := w.purchases.Initiate(ctx, ports.InitiateRequest{
		UserID:                "user-1",
		PackageID:             "gems_medium",
		PaymentMethod:         "card",
		Gateway:               "stripe",
		ProviderTransactionID: "pi_race",
	})
	require.NoError(t, err)

	const callbacks = 5
	var wg sync.WaitGroup
	results := make(chan error, callbacks)
	for i := 0; i < callbacks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- w.purchases.Complete(ctx, purchase.ID)
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, duplicate int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case appCode(err) == "PURCH_002":
			duplicate++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, callbacks-1, duplicate)

	balance, err := w.ledger.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(550), balance.Premium)
}

func TestDuplicateProviderSubmission(t *testing.T) {
	w := newWorld(t)
	w.seedPackage()
	ctx := context.Background()

	req := ports.InitiateRequest{
		UserID:                "user-1",
		PackageID:             "gems_medium",
		PaymentMethod:         "card",
		Gateway:               "stripe",
		ProviderTransactionID: "pi_dup",
	}
	_, err := w.purchases.Initiate(ctx, req)
	require.NoError(t, err)

	_, err = w.purchases.Initiate(ctx, req)
	assert.Equal(t, "PURCH_003", appCode(err))
}

func TestRefund_RestoresAndTerminates(t *testing.T) {
	w := newWorld(t)
	w.seedPackage()
	ctx := context.Background()

	purchase, err := w.purchases.Initiate(ctx, ports.InitiateRequest{
		UserID:                "user-1",
		PackageID:             "gems_medium",
		PaymentMethod:         "card",
		Gateway:               "stripe",
		ProviderTransactionID: "pi_refund",
	})
	require.NoError(t, err)
	require.NoError(t, w.purchases.Complete(ctx, purchase.ID))

	require.NoError(t, w.purchases.Refund(ctx, purchase.ID))

	balance, err := w.ledger.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance.Premium)
	assert.Equal(t, domain.PurchaseStatusRefunded, w.store.purchases[purchase.ID].Status)

	// refunded is terminal
	err = w.purchases.Refund(ctx, purchase.ID)
	assert.Equal(t, "PURCH_004", appCode(err))
}

func TestRefund_FailsWhenAlreadySpent(t *testing.T) {
	w := newWorld(t)
	w.seedPackage()
	ctx := context.Background()

	purchase, err := w.purchases.Initiate(ctx, ports.InitiateRequest{
		UserID:                "user-1",
		PackageID:             "gems_medium",
		PaymentMethod:         "card",
		Gateway:               "stripe",
		ProviderTransactionID: "pi_spent",
	})
	require.NoError(t, err)
	require.NoError(t, w.purchases.Complete(ctx, purchase.ID))

	// user spends part of the granted premium
	_, err = w.ledger.Spend(ctx, ports.SpendRequest{
		UserID: "user-1", Currency: domain.CurrencyPremium,
		Category: domain.CategorySpendCosmetic, Amount: 200,
	})
	require.NoError(t, err)

	err = w.purchases.Refund(ctx, purchase.ID)
	assert.Equal(t, "LEDGER_001", appCode(err))

	// refund failure changes nothing
	balance, err := w.ledger.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(350), balance.Premium)
	assert.Equal(t, domain.PurchaseStatusCompleted, w.store.purchases[purchase.ID].Status)
}

func TestHistoryPagination_NoGapsNoDuplicates(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	const total = 25
	for i := 0; i < total; i++ {
		w.earn(t, "user-1", int64(i+1))
	}

	seen := make(map[uuid.UUID]bool)
	for page := 1; ; page++ {
		history, err := w.ledger.GetTransactionHistory(ctx, "user-1", page, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(total), history.TotalCount)
		if len(history.Entries) == 0 {
			break
		}
		for _, e := range history.Entries {
			assert.False(t, seen[e.ID], "entry %s returned twice", e.ID)
			seen[e.ID] = true
		}
	}
	assert.Len(t, seen, total)
}

func TestAnalytics_ReflectLedgerActivity(t *testing.T) {
	w := newWorld(t)
	w.seedPackage()
	ctx := context.Background()

	w.earn(t, "user-1", 300)
	w.earn(t, "user-2", 100)
	_, err := w.ledger.Spend(ctx, ports.SpendRequest{
		UserID: "user-1", Currency: domain.CurrencySoft,
		Category: domain.CategorySpendUpgrade, Amount: 120,
	})
	require.NoError(t, err)

	reports, err := w.analytics.DailyReport(ctx, time.Now().UTC(), domain.CurrencySoft)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, int64(400), reports[0].TotalEarned)
	assert.Equal(t, int64(120), reports[0].TotalSpent)
	assert.Equal(t, int64(280), reports[0].NetChange)
	assert.Equal(t, int64(2), reports[0].UniqueUsers)

	health, err := w.analytics.EconomyHealth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(280), health.Soft.TotalInCirculation)
	assert.Equal(t, int64(2), health.Engagement.ActiveEarners)
	assert.Equal(t, int64(1), health.Engagement.ActiveSpenders)

	purchase, err := w.purchases.Initiate(ctx, ports.InitiateRequest{
		UserID:                "user-1",
		PackageID:             "gems_medium",
		PaymentMethod:         "card",
		Gateway:               "stripe",
		ProviderTransactionID: "pi_analytics",
	})
	require.NoError(t, err)
	require.NoError(t, w.purchases.Complete(ctx, purchase.ID))

	now := time.Now().UTC()
	revenue, err := w.analytics.RevenueReport(ctx, now.AddDate(0, 0, -1), now.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(1), revenue.TotalPurchases)
	assert.InDelta(t, 9.99, revenue.TotalRevenue, 0.001)
	assert.Equal(t, int64(1), revenue.UniqueBuyers)
}

func TestCatalog_ServedFromCacheAfterFirstRead(t *testing.T) {
	w := newWorld(t)
	w.seedPackage()
	ctx := context.Background()

	first, err := w.purchases.ListPackages(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// remove the backing row; the cached copy still serves
	delete(w.store.packages, "gems_medium")

	second, err := w.purchases.ListPackages(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCatalog_InvalidatedWhenInactivePackageInitiated(t *testing.T) {
	w := newWorld(t)
	w.seedPackage()
	ctx := context.Background()

	warm, err := w.purchases.ListPackages(ctx)
	require.NoError(t, err)
	require.Len(t, warm, 1)

	pkg := w.store.packages["gems_medium"]
	pkg.Active = false
	w.store.packages["gems_medium"] = pkg

	_, err = w.purchases.Initiate(ctx, ports.InitiateRequest{
		UserID:                "user-1",
		PackageID:             "gems_medium",
		PaymentMethod:         "card",
		Gateway:               "stripe",
		ProviderTransactionID: "pi_inactive",
	})
	assert.Equal(t, "PURCH_001", appCode(err))

	// The stale cached copy is gone; the next read sees the deactivation.
	after, err := w.purchases.ListPackages(ctx)
	require.NoError(t, err)
	assert.Empty(t, after)
}

package integration

import (
	"context"
	"sort"
	"sync"
	"time"

	"game-economy-service/internal/core/domain"
	"game-economy-service/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// store is the shared in-memory state. One mutex guards everything; the
// transactor holds it for the whole atomic unit, which gives these tests
// the same serialization the row locks give production.
type store struct {
	mu         sync.Mutex
	balances   map[string]map[domain.CurrencyKind]int64
	entries    []domain.LedgerEntry
	purchases  map[uuid.UUID]*domain.Purchase
	providerTx map[string]bool
	packages   map[string]domain.CurrencyPackage
	aggregates map[aggKey]*domain.DailyAggregate
}

type aggKey struct {
	date     time.Time
	currency domain.CurrencyKind
	category domain.TransactionCategory
}

func newStore() *store {
	return &store{
		balances:   make(map[string]map[domain.CurrencyKind]int64),
		purchases:  make(map[uuid.UUID]*domain.Purchase),
		providerTx: make(map[string]bool),
		packages:   make(map[string]domain.CurrencyPackage),
		aggregates: make(map[aggKey]*domain.DailyAggregate),
	}
}

// memTx satisfies pgx.Tx over the store mutex. Commit and Rollback both
// release it; the repos mutate state directly, relying on the services
// validating before any write.
type memTx struct {
	s    *store
	once sync.Once
}

func (t *memTx) release() { t.once.Do(t.s.mu.Unlock) }

func (t *memTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *memTx) Commit(ctx context.Context) error          { t.release(); return nil }
func (t *memTx) Rollback(ctx context.Context) error        { t.release(); return nil }
func (t *memTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *memTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *memTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *memTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *memTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (t *memTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *memTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *memTx) Conn() *pgx.Conn                                               { return nil }

// memTransactor serializes atomic units the way FOR UPDATE row locks do.
type memTransactor struct{ s *store }

func (m *memTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	m.s.mu.Lock()
	return &memTx{s: m.s}, nil
}

type memBalanceRepo struct{ s *store }

func (r *memBalanceRepo) Get(ctx context.Context, userID string, currency domain.CurrencyKind) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.balances[userID][currency], nil
}

func (r *memBalanceRepo) GetAll(ctx context.Context, userID string) ([]domain.Balance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Balance
	for currency, amount := range r.s.balances[userID] {
		out = append(out, domain.Balance{UserID: userID, Currency: currency, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out, nil
}

func (r *memBalanceRepo) EnsureExists(ctx context.Context, tx pgx.Tx, userID string, currency domain.CurrencyKind) error {
	if r.s.balances[userID] == nil {
		r.s.balances[userID] = make(map[domain.CurrencyKind]int64)
	}
	if _, ok := r.s.balances[userID][currency]; !ok {
		r.s.balances[userID][currency] = 0
	}
	return nil
}

func (r *memBalanceRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, userID string, currency domain.CurrencyKind) (int64, bool, error) {
	row, ok := r.s.balances[userID]
	if !ok {
		return 0, false, nil
	}
	amount, ok := row[currency]
	return amount, ok, nil
}

func (r *memBalanceRepo) SetAmount(ctx context.Context, tx pgx.Tx, userID string, currency domain.CurrencyKind, amount int64) error {
	r.s.balances[userID][currency] = amount
	return nil
}

func (r *memBalanceRepo) Circulation(ctx context.Context, currency domain.CurrencyKind) (int64, float64, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var total, holders int64
	for _, row := range r.s.balances {
		if amount, ok := row[currency]; ok {
			total += amount
			holders++
		}
	}
	var avg float64
	if holders > 0 {
		avg = float64(total) / float64(holders)
	}
	return total, avg, holders, nil
}

type memLedgerRepo struct{ s *store }

func (r *memLedgerRepo) Append(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error {
	r.s.entries = append(r.s.entries, *entry)
	return nil
}

func (r *memLedgerRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.entries {
		if r.s.entries[i].ID == id {
			e := r.s.entries[i]
			return &e, nil
		}
	}
	return nil, nil
}

// ListByUser pages in reverse insertion order, matching created_at DESC.
func (r *memLedgerRepo) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]domain.LedgerEntry, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var mine []domain.LedgerEntry
	for i := len(r.s.entries) - 1; i >= 0; i-- {
		if r.s.entries[i].UserID == userID {
			mine = append(mine, r.s.entries[i])
		}
	}

	total := int64(len(mine))
	start := (page - 1) * pageSize
	if start >= len(mine) {
		return nil, total, nil
	}
	end := start + pageSize
	if end > len(mine) {
		end = len(mine)
	}
	return mine[start:end], total, nil
}

func (r *memLedgerRepo) CountDistinctUsers(ctx context.Context, from, to time.Time, currency domain.CurrencyKind) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	users := make(map[string]bool)
	for _, e := range r.s.entries {
		if e.CreatedAt.Before(from) || !e.CreatedAt.Before(to) {
			continue
		}
		if currency != "" && e.Currency != currency {
			continue
		}
		users[e.UserID] = true
	}
	return int64(len(users)), nil
}

func (r *memLedgerRepo) CountActiveUsers(ctx context.Context, from, to time.Time) (int64, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	earners := make(map[string]bool)
	spenders := make(map[string]bool)
	for _, e := range r.s.entries {
		if e.CreatedAt.Before(from) || !e.CreatedAt.Before(to) {
			continue
		}
		if e.Amount > 0 {
			earners[e.UserID] = true
		} else {
			spenders[e.UserID] = true
		}
	}
	return int64(len(earners)), int64(len(spenders)), nil
}

type memPurchaseRepo struct{ s *store }

func providerKey(gateway, providerTxID string) string { return gateway + "|" + providerTxID }

func (r *memPurchaseRepo) Create(ctx context.Context, p *domain.Purchase) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := providerKey(p.Gateway, p.ProviderTransactionID)
	if r.s.providerTx[key] {
		return apperror.ErrDuplicateSubmission()
	}
	r.s.providerTx[key] = true
	cp := *p
	r.s.purchases[p.ID] = &cp
	return nil
}

func (r *memPurchaseRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Purchase, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.purchases[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *memPurchaseRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Purchase, error) {
	p, ok := r.s.purchases[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *memPurchaseRepo) SetStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.PurchaseStatus, entryID *uuid.UUID, completedAt *time.Time) error {
	p := r.s.purchases[id]
	p.Status = status
	if entryID != nil {
		p.LedgerEntryID = entryID
	}
	if completedAt != nil {
		p.CompletedAt = completedAt
	}
	return nil
}

func (r *memPurchaseRepo) Revenue(ctx context.Context, from, to time.Time) ([]domain.PackageRevenue, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	byPackage := make(map[string]*domain.PackageRevenue)
	buyers := make(map[string]bool)
	for _, p := range r.s.purchases {
		if p.Status != domain.PurchaseStatusCompleted || p.CompletedAt == nil {
			continue
		}
		if p.CompletedAt.Before(from) || !p.CompletedAt.Before(to) {
			continue
		}
		rev, ok := byPackage[p.PackageID]
		if !ok {
			rev = &domain.PackageRevenue{PackageID: p.PackageID}
			byPackage[p.PackageID] = rev
		}
		rev.Count++
		rev.Revenue += p.PriceUSD
		buyers[p.UserID] = true
	}
	var out []domain.PackageRevenue
	for _, rev := range byPackage {
		out = append(out, *rev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PackageID < out[j].PackageID })
	return out, int64(len(buyers)), nil
}

type memPackageRepo struct{ s *store }

func (r *memPackageRepo) GetByID(ctx context.Context, packageID string) (*domain.CurrencyPackage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.packages[packageID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *memPackageRepo) ListActive(ctx context.Context) ([]domain.CurrencyPackage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.CurrencyPackage
	for _, p := range r.s.packages {
		if p.Active {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

type memAggregateRepo struct{ s *store }

func (r *memAggregateRepo) Increment(ctx context.Context, tx pgx.Tx, date time.Time, currency domain.CurrencyKind, category domain.TransactionCategory, amount int64) error {
	key := aggKey{date: date.UTC().Truncate(24 * time.Hour), currency: currency, category: category}
	agg, ok := r.s.aggregates[key]
	if !ok {
		agg = &domain.DailyAggregate{Date: key.date, Currency: currency, Category: category}
		r.s.aggregates[key] = agg
	}
	agg.TxCount++
	agg.TotalAmount += amount
	return nil
}

func (r *memAggregateRepo) ListByDate(ctx context.Context, date time.Time, currency domain.CurrencyKind) ([]domain.DailyAggregate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	day := date.UTC().Truncate(24 * time.Hour)
	var out []domain.DailyAggregate
	for key, agg := range r.s.aggregates {
		if !key.date.Equal(day) {
			continue
		}
		if currency != "" && key.currency != currency {
			continue
		}
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (r *memAggregateRepo) ListRange(ctx context.Context, from, to time.Time, currency domain.CurrencyKind) ([]domain.DailyAggregate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	start := from.UTC().Truncate(24 * time.Hour)
	end := to.UTC().Truncate(24 * time.Hour)
	var out []domain.DailyAggregate
	for key, agg := range r.s.aggregates {
		if key.date.Before(start) || !key.date.Before(end) {
			continue
		}
		if key.currency != currency {
			continue
		}
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

package ports

import (
	"context"
	"encoding/json"
	"time"

	"game-economy-service/internal/core/domain"

	"github.com/google/uuid"
)

// CatalogCache is the Redis-layer cache for the active package catalog.
type CatalogCache interface {
	Get(ctx context.Context) ([]domain.CurrencyPackage, error) // nil slice on miss
	Set(ctx context.Context, packages []domain.CurrencyPackage, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

// CompletionCache is the fast-path check for already-completed purchases.
// It is advisory only; the purchase row status remains the authority.
type CompletionCache interface {
	IsCompleted(ctx context.Context, purchaseID uuid.UUID) (bool, error)
	MarkCompleted(ctx context.Context, purchaseID uuid.UUID, ttl time.Duration) error
}

// --- Service Ports (Business Logic) ---

// EarnRequest holds validated input for crediting a balance.
type EarnRequest struct {
	UserID      string
	Currency    domain.CurrencyKind
	Category    domain.TransactionCategory
	Amount      int64
	Description *string
	Metadata    json.RawMessage
}

// SpendRequest holds validated input for debiting a balance.
type SpendRequest struct {
	UserID      string
	Currency    domain.CurrencyKind
	Category    domain.TransactionCategory
	Amount      int64
	Description *string
	Metadata    json.RawMessage
}

// LedgerService is the core balance-mutation API. Earn and Spend are atomic:
// balance write, ledger append and aggregate increment land together or not
// at all, and two mutations of the same (user, currency) never interleave.
type LedgerService interface {
	Earn(ctx context.Context, req EarnRequest) (*domain.LedgerEntry, error)
	Spend(ctx context.Context, req SpendRequest) (*domain.LedgerEntry, error)
	GetBalance(ctx context.Context, userID string) (*domain.UserBalance, error)
	GetTransactionHistory(ctx context.Context, userID string, page, pageSize int) (*domain.TransactionHistory, error)
}

// InitiateRequest holds validated input for starting a purchase.
type InitiateRequest struct {
	UserID                string
	PackageID             string
	PaymentMethod         string
	Gateway               string
	ProviderTransactionID string
	Receipt               *string
}

// PurchaseService manages the purchase lifecycle. Complete credits the
// premium balance exactly once per purchase; the caller is trusted to have
// verified the payment with the provider first.
type PurchaseService interface {
	Initiate(ctx context.Context, req InitiateRequest) (*domain.Purchase, error)
	Complete(ctx context.Context, purchaseID uuid.UUID) error
	Fail(ctx context.Context, purchaseID uuid.UUID) error
	Refund(ctx context.Context, purchaseID uuid.UUID) error
	ListPackages(ctx context.Context) ([]domain.CurrencyPackage, error)
}

// AnalyticsService derives reports from the log, aggregates and balances.
// Read-only; tolerates staleness relative to in-flight mutations.
type AnalyticsService interface {
	DailyReport(ctx context.Context, date time.Time, currency domain.CurrencyKind) ([]domain.DailyReport, error)
	EconomyHealth(ctx context.Context) (*domain.EconomyHealth, error)
	RevenueReport(ctx context.Context, from, to time.Time) (*domain.RevenueReport, error)
	CurrencyFlow(ctx context.Context, from, to time.Time, currency domain.CurrencyKind) (*domain.CurrencyFlow, error)
}

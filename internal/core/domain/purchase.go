package domain

import (
	"time"

	"github.com/google/uuid"
)

// PurchaseStatus is the lifecycle state of a real-money purchase.
type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "pending"
	PurchaseStatusCompleted PurchaseStatus = "completed"
	PurchaseStatusFailed    PurchaseStatus = "failed"
	PurchaseStatusRefunded  PurchaseStatus = "refunded"
)

// Purchase tracks one real-money purchase from initiation to its terminal
// state. Amount and PriceUSD are copied from the catalog at initiation time,
// so later catalog changes never alter a pending purchase.
type Purchase struct {
	ID                    uuid.UUID      `json:"id"`
	UserID                string         `json:"user_id"`
	PackageID             string         `json:"package_id"`
	Amount                int64          `json:"amount"` // premium currency granted
	PriceUSD              float64        `json:"price_usd"`
	PaymentMethod         string         `json:"payment_method"`
	Gateway               string         `json:"payment_gateway"`
	ProviderTransactionID string         `json:"provider_transaction_id"`
	Receipt               *string        `json:"-"` // provider receipt blob, never exposed
	Status                PurchaseStatus `json:"status"`
	LedgerEntryID         *uuid.UUID     `json:"ledger_entry_id,omitempty"`
	CreatedAt             time.Time      `json:"created_at"`
	CompletedAt           *time.Time     `json:"completed_at,omitempty"`
}

// IsTerminal returns true once no further pending transition is possible.
// A completed purchase may still move to refunded out of band.
func (p *Purchase) IsTerminal() bool {
	return p.Status != PurchaseStatusPending
}

// CurrencyPackage is a static catalog entry, read-only to the ledger.
type CurrencyPackage struct {
	ID             string    `json:"package_id"`
	Name           string    `json:"name"`
	Description    *string   `json:"description,omitempty"`
	CurrencyAmount int64     `json:"currency_amount"`
	PriceUSD       float64   `json:"price_usd"`
	BonusPercent   int       `json:"bonus_percentage"`
	Active         bool      `json:"is_active"`
	DisplayOrder   int       `json:"display_order"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

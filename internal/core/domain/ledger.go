package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Balance is one (user, currency) row. Amount is always >= 0; mutation goes
// exclusively through the ledger service under a row lock.
type Balance struct {
	UserID    string       `json:"user_id"`
	Currency  CurrencyKind `json:"currency"`
	Amount    int64        `json:"amount"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// LedgerEntry is an immutable record of one balance mutation. Amount is
// positive for earns and negative for spends, and
// BalanceAfter = BalanceBefore + Amount always holds.
type LedgerEntry struct {
	ID            uuid.UUID           `json:"id"`
	UserID        string              `json:"user_id"`
	Currency      CurrencyKind        `json:"currency"`
	Category      TransactionCategory `json:"category"`
	Amount        int64               `json:"amount"`
	BalanceBefore int64               `json:"balance_before"`
	BalanceAfter  int64               `json:"balance_after"`
	Description   *string             `json:"description,omitempty"`
	Metadata      json.RawMessage     `json:"metadata,omitempty"` // opaque to the ledger
	CreatedAt     time.Time           `json:"created_at"`
}

// UserBalance is the convenience read across both currencies. The two
// values are read without locks and may not be mutually consistent with an
// in-flight mutation.
type UserBalance struct {
	UserID  string `json:"user_id"`
	Soft    int64  `json:"soft_currency"`
	Premium int64  `json:"premium_currency"`
}

// TransactionHistory is one page of a user's ledger, newest first.
type TransactionHistory struct {
	Entries    []LedgerEntry `json:"transactions"`
	TotalCount int64         `json:"total_count"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
}

// Package dto defines the HTTP request bodies. Validation tags reject
// malformed input at the binding layer; business rules live in the services.
package dto

import "encoding/json"

// MutationRequest is the body for earn and spend calls.
type MutationRequest struct {
	UserID      string          `json:"user_id" binding:"required"`
	Currency    string          `json:"currency" binding:"required"`
	Category    string          `json:"category" binding:"required"`
	Amount      int64           `json:"amount" binding:"required,gt=0"`
	Description *string         `json:"description"`
	Metadata    json.RawMessage `json:"metadata"`
}

// InitiatePurchaseRequest is the body for starting a purchase.
type InitiatePurchaseRequest struct {
	UserID                string  `json:"user_id" binding:"required"`
	PackageID             string  `json:"package_id" binding:"required"`
	PaymentMethod         string  `json:"payment_method" binding:"required"`
	Gateway               string  `json:"payment_gateway" binding:"required"`
	ProviderTransactionID string  `json:"provider_transaction_id" binding:"required"`
	Receipt               *string `json:"receipt"`
}

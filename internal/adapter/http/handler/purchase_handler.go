package handler

import (
	"context"

	"game-economy-service/internal/adapter/http/dto"
	"game-economy-service/internal/core/ports"
	"game-economy-service/pkg/apperror"
	"game-economy-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PurchaseHandler exposes the purchase lifecycle over HTTP.
type PurchaseHandler struct {
	purchases ports.PurchaseService
}

// NewPurchaseHandler creates a new PurchaseHandler.
func NewPurchaseHandler(purchases ports.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{purchases: purchases}
}

// ListPackages handles GET /api/v1/packages.
func (h *PurchaseHandler) ListPackages(c *gin.Context) {
	packages, err := h.purchases.ListPackages(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, packages)
}

// Initiate handles POST /api/v1/purchases.
func (h *PurchaseHandler) Initiate(c *gin.Context) {
	var req dto.InitiatePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	purchase, err := h.purchases.Initiate(c.Request.Context(), ports.InitiateRequest{
		UserID:                req.UserID,
		PackageID:             req.PackageID,
		PaymentMethod:         req.PaymentMethod,
		Gateway:               req.Gateway,
		ProviderTransactionID: req.ProviderTransactionID,
		Receipt:               req.Receipt,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, purchase)
}

// Complete handles POST /api/v1/purchases/:id/complete.
func (h *PurchaseHandler) Complete(c *gin.Context) {
	h.transition(c, h.purchases.Complete)
}

// Fail handles POST /api/v1/purchases/:id/fail.
func (h *PurchaseHandler) Fail(c *gin.Context) {
	h.transition(c, h.purchases.Fail)
}

// Refund handles POST /api/v1/purchases/:id/refund.
func (h *PurchaseHandler) Refund(c *gin.Context) {
	h.transition(c, h.purchases.Refund)
}

// transition parses the purchase ID and applies one lifecycle move.
func (h *PurchaseHandler) transition(c *gin.Context, fn func(ctx context.Context, id uuid.UUID) error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid purchase id"))
		return
	}

	if err := fn(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"purchase_id": id})
}

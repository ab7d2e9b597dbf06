package handler

import (
	"strconv"

	"game-economy-service/internal/adapter/http/dto"
	"game-economy-service/internal/core/domain"
	"game-economy-service/internal/core/ports"
	"game-economy-service/pkg/apperror"
	"game-economy-service/pkg/response"

	"github.com/gin-gonic/gin"
)

// CurrencyHandler exposes the ledger operations over HTTP.
type CurrencyHandler struct {
	ledger ports.LedgerService
}

// NewCurrencyHandler creates a new CurrencyHandler.
func NewCurrencyHandler(ledger ports.LedgerService) *CurrencyHandler {
	return &CurrencyHandler{ledger: ledger}
}

// Earn handles POST /api/v1/currency/earn.
func (h *CurrencyHandler) Earn(c *gin.Context) {
	var req dto.MutationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	entry, err := h.ledger.Earn(c.Request.Context(), ports.EarnRequest{
		UserID:      req.UserID,
		Currency:    domain.CurrencyKind(req.Currency),
		Category:    domain.TransactionCategory(req.Category),
		Amount:      req.Amount,
		Description: req.Description,
		Metadata:    req.Metadata,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, entry)
}

// Spend handles POST /api/v1/currency/spend.
func (h *CurrencyHandler) Spend(c *gin.Context) {
	var req dto.MutationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	entry, err := h.ledger.Spend(c.Request.Context(), ports.SpendRequest{
		UserID:      req.UserID,
		Currency:    domain.CurrencyKind(req.Currency),
		Category:    domain.TransactionCategory(req.Category),
		Amount:      req.Amount,
		Description: req.Description,
		Metadata:    req.Metadata,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, entry)
}

// GetBalance handles GET /api/v1/currency/balance/:user_id.
func (h *CurrencyHandler) GetBalance(c *gin.Context) {
	balance, err := h.ledger.GetBalance(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, balance)
}

// GetHistory handles GET /api/v1/currency/transactions/:user_id.
func (h *CurrencyHandler) GetHistory(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	history, err := h.ledger.GetTransactionHistory(c.Request.Context(), c.Param("user_id"), page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, history)
}

package handler

import (
	"time"

	"game-economy-service/internal/core/domain"
	"game-economy-service/internal/core/ports"
	"game-economy-service/pkg/apperror"
	"game-economy-service/pkg/response"

	"github.com/gin-gonic/gin"
)

const queryDateLayout = "2006-01-02"

// AnalyticsHandler exposes the derived reports over HTTP.
type AnalyticsHandler struct {
	analytics ports.AnalyticsService
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(analytics ports.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Daily handles GET /api/v1/analytics/daily?date=YYYY-MM-DD&currency=soft.
// Date defaults to today (UTC); currency defaults to both.
func (h *AnalyticsHandler) Daily(c *gin.Context) {
	date := time.Now().UTC()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse(queryDateLayout, raw)
		if err != nil {
			response.Error(c, apperror.Validation("date must be YYYY-MM-DD"))
			return
		}
		date = parsed
	}

	reports, err := h.analytics.DailyReport(c.Request.Context(), date, domain.CurrencyKind(c.Query("currency")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, reports)
}

// EconomyHealth handles GET /api/v1/analytics/economy.
func (h *AnalyticsHandler) EconomyHealth(c *gin.Context) {
	health, err := h.analytics.EconomyHealth(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, health)
}

// Revenue handles GET /api/v1/analytics/revenue?from=YYYY-MM-DD&to=YYYY-MM-DD.
// The window defaults to the last 30 days.
func (h *AnalyticsHandler) Revenue(c *gin.Context) {
	from, to, err := parseWindow(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	report, err := h.analytics.RevenueReport(c.Request.Context(), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

// Flow handles GET /api/v1/analytics/flow?from=&to=&currency=soft.
func (h *AnalyticsHandler) Flow(c *gin.Context) {
	from, to, err := parseWindow(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	currency := domain.CurrencyKind(c.DefaultQuery("currency", string(domain.CurrencySoft)))
	flow, err := h.analytics.CurrencyFlow(c.Request.Context(), from, to, currency)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, flow)
}

func parseWindow(c *gin.Context) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now

	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(queryDateLayout, raw)
		if err != nil {
			return time.Time{}, time.Time{}, apperror.Validation("from must be YYYY-MM-DD")
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(queryDateLayout, raw)
		if err != nil {
			return time.Time{}, time.Time{}, apperror.Validation("to must be YYYY-MM-DD")
		}
		to = parsed
	}
	return from, to, nil
}

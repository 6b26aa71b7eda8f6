package handlers

import (
	"time"

	"receiptly/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AnalyticsHandler struct {
	analyticsService *service.AnalyticsService
	exportService    *service.ExportService
	logger           *zap.Logger
}

func NewAnalyticsHandler(analyticsService *service.AnalyticsService, exportService *service.ExportService, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
		exportService:    exportService,
		logger:           logger,
	}
}

// parseWindow reads the optional from/to query params (RFC 3339); the
// default window is the last 30 days.
func parseWindow(c *fiber.Ctx) (time.Time, time.Time, error) {
	to := time.Now()
	from := to.AddDate(0, 0, -30)

	if raw := c.Query("from"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = ts
	}
	if raw := c.Query("to"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = ts
	}

	return from, to, nil
}

// SpendSummary godoc
// @Summary Spending summary
// @Description Total, count and average spend over a window (default: last 30 days)
// @Tags analytics
// @Produce json
// @Param from query string false "Window start (RFC 3339)"
// @Param to query string false "Window end (RFC 3339)"
// @Security Bearer
// @Success 200 {object} dto.SpendSummaryResponse
// @Failure 400 {object} map[string]string
// @Router /api/v1/analytics/summary [get]
func (h *AnalyticsHandler) SpendSummary(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	from, to, err := parseWindow(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid time window",
		})
	}

	summary, err := h.analyticsService.Summary(c.Context(), userID, from, to)
	if err != nil {
		h.logger.Error("Failed to compute summary", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute summary",
		})
	}

	return c.JSON(summary)
}

// MonthlyTrends godoc
// @Summary Monthly spending trend
// @Description Per-month totals for the last N months (default 6)
// @Tags analytics
// @Produce json
// @Param months query int false "Number of months" default(6)
// @Security Bearer
// @Success 200 {array} dto.MonthlyTrendEntry
// @Router /api/v1/analytics/trends [get]
func (h *AnalyticsHandler) MonthlyTrends(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	months := c.QueryInt("months", 6)
	if months < 1 || months > 60 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Months must be between 1 and 60",
		})
	}

	trends, err := h.analyticsService.MonthlyTrends(c.Context(), userID, months)
	if err != nil {
		h.logger.Error("Failed to compute trends", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute trends",
		})
	}

	return c.JSON(trends)
}

// TopStores godoc
// @Summary Top stores by spend
// @Description Stores ranked by total spend
// @Tags analytics
// @Produce json
// @Param limit query int false "Limit" default(5)
// @Security Bearer
// @Success 200 {array} dto.TopStoreEntry
// @Router /api/v1/analytics/stores [get]
func (h *AnalyticsHandler) TopStores(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	limit := c.QueryInt("limit", 5)

	stores, err := h.analyticsService.TopStores(c.Context(), userID, limit)
	if err != nil {
		h.logger.Error("Failed to compute top stores", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute top stores",
		})
	}

	return c.JSON(stores)
}

// CategoryBreakdown godoc
// @Summary Spend by category
// @Description Per-category item spend and share of the window's total
// @Tags analytics
// @Produce json
// @Param from query string false "Window start (RFC 3339)"
// @Param to query string false "Window end (RFC 3339)"
// @Security Bearer
// @Success 200 {array} dto.CategoryBreakdownEntry
// @Router /api/v1/analytics/categories [get]
func (h *AnalyticsHandler) CategoryBreakdown(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	from, to, err := parseWindow(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid time window",
		})
	}

	breakdown, err := h.analyticsService.CategoryBreakdown(c.Context(), userID, from, to)
	if err != nil {
		h.logger.Error("Failed to compute category breakdown", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute category breakdown",
		})
	}

	return c.JSON(breakdown)
}

// ExportCSV godoc
// @Summary Export receipts as CSV
// @Description One row per receipt item inside the window
// @Tags analytics
// @Produce text/csv
// @Param from query string false "Window start (RFC 3339)"
// @Param to query string false "Window end (RFC 3339)"
// @Security Bearer
// @Success 200 {string} string "CSV payload"
// @Router /api/v1/analytics/export [get]
func (h *AnalyticsHandler) ExportCSV(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	from, to, err := parseWindow(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid time window",
		})
	}

	payload, err := h.exportService.ExportCSV(c.Context(), userID, from, to)
	if err != nil {
		h.logger.Error("Failed to export receipts", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to export receipts",
		})
	}

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="receipts.csv"`)
	return c.Send(payload)
}

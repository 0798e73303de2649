package http

import (
	"context"
	"time"

	"insight_server/core/port/in"

	"github.com/gofiber/fiber/v2"
)

const refreshTimeout = 5 * time.Minute

// InsightHandler serves analysis results and triggers analysis passes.
type InsightHandler struct {
	service in.InsightService
}

func NewInsightHandler(service in.InsightService) *InsightHandler {
	return &InsightHandler{service: service}
}

// Register registers insight routes.
func (h *InsightHandler) Register(router fiber.Router) {
	insights := router.Group("/insights")

	insights.Get("/", h.GetLatest)
	insights.Delete("/", h.Clear)
	insights.Get("/report", h.GetReport)

	insights.Post("/refresh", h.Refresh)
	insights.Post("/analyze", h.Analyze)
}

// Refresh fetches the mailbox and stores a new snapshot.
// POST /insights/refresh
func (h *InsightHandler) Refresh(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), refreshTimeout)
	defer cancel()

	snap, err := h.service.Refresh(ctx)
	if err != nil {
		return err
	}
	return SuccessResponse(c, snap)
}

// Analyze analyzes a posted batch without touching the mailbox. Settings
// in the body are merged onto the stored settings.
// POST /insights/analyze
func (h *InsightHandler) Analyze(c *fiber.Ctx) error {
	current, err := h.service.Settings(c.UserContext())
	if err != nil {
		return err
	}

	settings := *current
	req := in.AnalyzeRequest{Settings: &settings}
	if err := parseBody(c, &req); err != nil {
		return err
	}

	snap, err := h.service.AnalyzeBatch(c.UserContext(), &req)
	if err != nil {
		return err
	}
	return SuccessResponse(c, snap)
}

// GetLatest returns the stored snapshot.
// GET /insights
func (h *InsightHandler) GetLatest(c *fiber.Ctx) error {
	snap, err := h.service.Latest(c.UserContext())
	if err != nil {
		return err
	}
	return SuccessResponse(c, snap)
}

// GetReport returns sorted contacts with reply rates and a summary.
// GET /insights/report?sort=name|ignored|responseTime|volume
func (h *InsightHandler) GetReport(c *fiber.Ctx) error {
	report, err := h.service.Report(c.UserContext(), c.Query("sort"))
	if err != nil {
		return err
	}
	return SuccessResponse(c, report)
}

// Clear removes the stored snapshot.
// DELETE /insights
func (h *InsightHandler) Clear(c *fiber.Ctx) error {
	if err := h.service.Clear(c.UserContext()); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

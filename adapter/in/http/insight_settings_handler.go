package http

import (
	"insight_server/core/port/in"

	"github.com/gofiber/fiber/v2"
)

// SettingsHandler handles analysis settings requests.
type SettingsHandler struct {
	service in.InsightService
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(service in.InsightService) *SettingsHandler {
	return &SettingsHandler{service: service}
}

// Register registers settings routes.
func (h *SettingsHandler) Register(router fiber.Router) {
	settings := router.Group("/insights/settings")

	settings.Get("/", h.GetSettings)
	settings.Put("/", h.UpdateSettings)
}

// GetSettings returns the stored settings or the defaults.
// GET /insights/settings
func (h *SettingsHandler) GetSettings(c *fiber.Ctx) error {
	settings, err := h.service.Settings(c.UserContext())
	if err != nil {
		return err
	}
	return SuccessResponse(c, settings)
}

// UpdateSettings replaces the settings. Fields missing from the body keep
// their current values.
// PUT /insights/settings
func (h *SettingsHandler) UpdateSettings(c *fiber.Ctx) error {
	current, err := h.service.Settings(c.UserContext())
	if err != nil {
		return err
	}

	req := *current
	if err := parseBody(c, &req); err != nil {
		return err
	}

	updated, err := h.service.UpdateSettings(c.UserContext(), &req)
	if err != nil {
		return err
	}
	return SuccessResponse(c, updated)
}

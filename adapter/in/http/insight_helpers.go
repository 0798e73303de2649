package http

import (
	"time"

	"insight_server/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	RequestID string      `json:"requestId,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// APIError represents a standard API error
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SuccessResponse sends a standardized JSON success response
func SuccessResponse(c *fiber.Ctx, data any) error {
	requestID, _ := c.Locals("request_id").(string)
	return c.JSON(APIResponse{
		Success:   true,
		Data:      data,
		RequestID: requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// parseBody decodes the JSON body into v, reporting malformed input as a
// bad request.
func parseBody(c *fiber.Ctx, v any) error {
	if len(c.Body()) == 0 {
		return apperr.BadRequest("request body is required")
	}
	if err := c.BodyParser(v); err != nil {
		return apperr.BadRequest("invalid request body").WithError(err)
	}
	return nil
}

package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/unipost/unipost-api/internal/service"
)

type MetricsHandler struct {
	s service.MetricsService
}

func NewMetricsHandler(service service.MetricsService) *MetricsHandler {
	return &MetricsHandler{s: service}
}

// RefreshMetrics re-fetches remote engagement for the target user. The
// target defaults to the caller; refreshing someone else requires the
// permission rules the service enforces.
func (h *MetricsHandler) RefreshMetrics(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var body struct {
		UserID int64 `json:"user_id"`
	}
	_ = c.BodyParser(&body)

	targetID := body.UserID
	if targetID == 0 {
		targetID = userID
	}

	processed, err := h.s.Refresh(c.Context(), userID, targetID)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":   "Metrics refreshed",
		"processed": processed,
	})
}

func (h *MetricsHandler) ListMetrics(c *fiber.Ctx) error {
	userID := GetUserID(c)

	metrics, err := h.s.List(c.Context(), userID)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(metrics)
}

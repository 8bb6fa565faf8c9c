package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/unipost/unipost-api/internal/service"
)

type PublishHandler struct {
	s service.PublishService
}

func NewPublishHandler(service service.PublishService) *PublishHandler {
	return &PublishHandler{s: service}
}

// PublishVariant pushes a single variant to its network immediately.
func (h *PublishHandler) PublishVariant(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var body struct {
		VariantID int64 `json:"variant_id"`
	}
	if err := c.BodyParser(&body); err != nil || body.VariantID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing variant id",
		})
	}

	outcome, err := h.s.PublishVariant(c.Context(), userID, body.VariantID)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(outcome)
}

// PublishPost fans out every pending variant of a post.
func (h *PublishHandler) PublishPost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var body struct {
		PostID int64 `json:"post_id"`
	}
	if err := c.BodyParser(&body); err != nil || body.PostID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing post id",
		})
	}

	outcomes, err := h.s.PublishAllPending(c.Context(), userID, body.PostID)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"results": outcomes,
	})
}

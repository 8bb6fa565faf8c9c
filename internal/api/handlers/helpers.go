package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/unipost/unipost-api/pkg/errs"
)

func GetUserID(c *fiber.Ctx) int64 {
	userID, _ := strconv.Atoi(c.Locals("user_id").(string))
	return int64(userID)
}

// statusFor maps error codes onto HTTP statuses; anything unclassified is a
// server error.
func statusFor(err error) int {
	switch errs.GetCode(err) {
	case errs.CodeValidation, errs.CodeUnsupportedContent:
		return fiber.StatusBadRequest
	case errs.CodeAuthInvalid:
		return fiber.StatusUnauthorized
	case errs.CodeRateLimited:
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}

func errorJSON(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{
		"error": err.Error(),
	})
}

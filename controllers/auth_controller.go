package controller

import (
	"github.com/gofiber/fiber/v2"
	"taskboard/middleware"
)

// GetCurrentUser returns the identity resolved from the bearer token.
func GetCurrentUser(c *fiber.Ctx) error {
	return c.JSON(middleware.CurrentUser(c))
}

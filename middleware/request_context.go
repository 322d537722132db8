package middleware

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RequestContext binds c.UserContext() to the request. The context ends
// after timeout, when the handler chain returns, or on server shutdown.
func RequestContext(timeout time.Duration) fiber.Handler {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), timeout)
		defer cancel()

		c.SetUserContext(ctx)
		return c.Next()
	}
}

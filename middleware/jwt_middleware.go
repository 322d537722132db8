package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"taskboard/models"
	"taskboard/repository"
	"taskboard/utils"
)

// Protected resolves the bearer token into the calling user and stores it
// in c.Locals("user").
func Protected(users repository.UserRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Try to get token from Authorization header first
		var token string
		authHeader := c.Get("Authorization")
		if authHeader != "" {
			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
				return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid authorization format", nil)
			}
			token = tokenParts[1]
		} else {
			// Fall back to cookie if header not present
			token = c.Cookies("access_token")
			if token == "" {
				return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Authorization required", nil)
			}
		}

		claims, err := utils.ParseJWTToken(token)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid or expired token", nil)
		}

		user, err := users.FindUserByID(c.UserContext(), claims.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return utils.ErrorResponse(c, fiber.StatusUnauthorized, "User not found", nil)
			}
			utils.LogError("auth_user_lookup", err, map[string]interface{}{"user_id": claims.UserID})
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Internal server error", nil)
		}

		if !user.IsActive {
			return utils.ErrorResponse(c, fiber.StatusForbidden, "Account is not active", nil)
		}

		c.Locals("user", user)
		c.Locals("userID", user.ID)

		return c.Next()
	}
}

// CurrentUser returns the user stored by Protected.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals("user").(*models.User)
	return user
}

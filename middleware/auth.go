package middleware

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
	"github.com/meinhoongagan/pt-buddy/config"
	"github.com/meinhoongagan/pt-buddy/logger"
	"github.com/meinhoongagan/pt-buddy/utils"
)

// Protected accepts the session token from the Authorization header or the
// session cookie and exposes its claims as userID, role, email and name locals.
func Protected() fiber.Handler {
	auth := config.Current.Auth

	return jwtware.New(jwtware.Config{
		SigningKey:    []byte(auth.JWTSecret),
		SigningMethod: "HS256",
		TokenLookup:   "header:Authorization,cookie:" + auth.CookieName,
		ErrorHandler:  jwtError,
		SuccessHandler: func(c *fiber.Ctx) error {
			token, ok := c.Locals("user").(*jwt.Token)
			if !ok {
				return utils.ErrorJSON(c, fiber.StatusUnauthorized, "Invalid token")
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return utils.ErrorJSON(c, fiber.StatusUnauthorized, "Invalid token claims")
			}

			userID, err := extractUserID(claims)
			if err != nil {
				logger.DebugContext(c.UserContext(), "rejecting token", "error", err)
				return utils.ErrorJSON(c, fiber.StatusUnauthorized, "Invalid user ID in token")
			}

			role, _ := claims["role"].(string)
			if role == "" {
				return utils.ErrorJSON(c, fiber.StatusUnauthorized, "Invalid role in token")
			}
			email, _ := claims["email"].(string)
			name, _ := claims["name"].(string)

			c.Locals("userID", userID)
			c.Locals("role", role)
			c.Locals("email", email)
			c.Locals("name", name)
			c.SetUserContext(context.WithValue(c.UserContext(), logger.UserIDKey, userID))

			return c.Next()
		},
	})
}

// extractUserID handles the numeric forms an id can take after JSON decoding.
func extractUserID(claims jwt.MapClaims) (uint, error) {
	idVal := claims["id"]
	if idVal == nil {
		return 0, fmt.Errorf("no ID found in claims")
	}

	switch v := idVal.(type) {
	case float64:
		if v <= 0 {
			return 0, fmt.Errorf("invalid ID %v", v)
		}
		return uint(v), nil
	case string:
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("could not parse ID string: %v", err)
		}
		return uint(parsed), nil
	default:
		return 0, fmt.Errorf("unsupported ID type: %T", v)
	}
}

func jwtError(c *fiber.Ctx, err error) error {
	return utils.ErrorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
}

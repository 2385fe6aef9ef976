package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Adnan2208/EcoTech/models"
	"github.com/Adnan2208/EcoTech/services"
)

const userKey = "user"

// TokenTTL matches the 30-day sessions the clients expect.
const TokenTTL = 30 * 24 * time.Hour

// SignToken issues an HS256 bearer token carrying the user id.
func SignToken(secret, userID string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"id":  userID,
		"exp": time.Now().Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken verifies a bearer token and returns the user id claim.
func ParseToken(secret, token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return "", errors.New("invalid token")
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid token")
	}
	id, _ := claims["id"].(string)
	if id == "" {
		return "", errors.New("invalid token")
	}
	return id, nil
}

// Protect rejects requests without a valid bearer token and stashes the
// authenticated user on the request context.
func Protect(users *services.UserService, secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			return unauthorized(c, "not authorized to access this route")
		}

		id, err := ParseToken(secret, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return unauthorized(c, "not authorized to access this route")
		}

		user, err := users.GetByID(c.Context(), id)
		if err != nil {
			return unauthorized(c, "not authorized to access this route")
		}

		c.Locals(userKey, user)
		return c.Next()
	}
}

// Authorize allows only the given roles past. Must run after Protect.
func Authorize(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return unauthorized(c, "not authorized to access this route")
		}
		for _, role := range roles {
			if user.Role == role {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "user role " + string(user.Role) + " is not authorized to access this route",
		})
	}
}

// CurrentUser returns the user stashed by Protect, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(userKey).(*models.User)
	return user
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"success": false,
		"message": msg,
	})
}

package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Adnan2208/EcoTech/middleware"
	"github.com/Adnan2208/EcoTech/models"
	"github.com/Adnan2208/EcoTech/services"
)

type AuthController struct {
	users  *services.UserService
	secret string
}

func NewAuthController(users *services.UserService, secret string) *AuthController {
	return &AuthController{users: users, secret: secret}
}

type credentials struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Register handles POST /api/auth/register.
func (ac *AuthController) Register(c *fiber.Ctx) error {
	var body credentials
	if err := c.BodyParser(&body); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid JSON")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	user, err := ac.users.Register(ctx, services.RegisterInput{
		Name:     body.Name,
		Email:    body.Email,
		Password: body.Password,
		Role:     models.Role(body.Role),
	})
	if err != nil {
		return serviceError(c, err)
	}

	token, err := middleware.SignToken(ac.secret, user.ID.Hex(), middleware.TokenTTL)
	if err != nil {
		return serviceError(c, err)
	}
	return ok(c, fiber.StatusCreated, fiber.Map{"token": token, "user": user})
}

// Login handles POST /api/auth/login.
func (ac *AuthController) Login(c *fiber.Ctx) error {
	var body credentials
	if err := c.BodyParser(&body); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid JSON")
	}
	if body.Email == "" || body.Password == "" {
		return fail(c, fiber.StatusBadRequest, "please provide an email and password")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	user, err := ac.users.Authenticate(ctx, body.Email, body.Password)
	if err != nil {
		return serviceError(c, err)
	}

	token, err := middleware.SignToken(ac.secret, user.ID.Hex(), middleware.TokenTTL)
	if err != nil {
		return serviceError(c, err)
	}
	return ok(c, fiber.StatusOK, fiber.Map{"token": token, "user": user})
}

// Me handles GET /api/auth/me.
func (ac *AuthController) Me(c *fiber.Ctx) error {
	return ok(c, fiber.StatusOK, middleware.CurrentUser(c))
}

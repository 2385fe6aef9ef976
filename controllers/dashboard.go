package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Adnan2208/EcoTech/services"
)

type DashboardController struct {
	svc *services.DashboardService
}

func NewDashboardController(svc *services.DashboardService) *DashboardController {
	return &DashboardController{svc: svc}
}

// Stats handles GET /api/dashboard/stats (authority only).
func (dc *DashboardController) Stats(c *fiber.Ctx) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	stats, err := dc.svc.Stats(ctx)
	if err != nil {
		return serviceError(c, err)
	}
	return ok(c, fiber.StatusOK, stats)
}

// Map handles GET /api/dashboard/map, the public field-limited view.
func (dc *DashboardController) Map(c *fiber.Ctx) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	points, err := dc.svc.MapData(ctx, c.Query("status"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"count":   len(points),
		"data":    points,
	})
}

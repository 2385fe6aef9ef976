package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/Adnan2208/EcoTech/controllers"
	"github.com/Adnan2208/EcoTech/middleware"
	"github.com/Adnan2208/EcoTech/models"
	"github.com/Adnan2208/EcoTech/realtime"
	"github.com/Adnan2208/EcoTech/services"
)

// Deps carries everything the route table wires together.
type Deps struct {
	Auth      *controllers.AuthController
	Reports   *controllers.ReportController
	Dashboard *controllers.DashboardController
	Detection *controllers.DetectionController

	Users  *services.UserService
	Hub    *realtime.Hub
	Secret string
}

// Register attaches all API endpoints to the app.
func Register(app *fiber.App, d Deps) {
	protect := middleware.Protect(d.Users, d.Secret)
	authorityOnly := middleware.Authorize(models.RoleAuthority)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", d.Auth.Register)
	auth.Post("/login", d.Auth.Login)
	auth.Get("/me", protect, d.Auth.Me)

	reports := api.Group("/reports")
	// static path before the dynamic :id routes
	reports.Get("/user/my-reports", protect, d.Reports.MyReports)
	reports.Post("/", protect, d.Reports.Create)
	reports.Get("/", d.Reports.List)
	reports.Get("/:id", d.Reports.Get)
	reports.Put("/:id", protect, authorityOnly, d.Reports.Update)
	reports.Delete("/:id", protect, d.Reports.Delete)

	dashboard := api.Group("/dashboard")
	dashboard.Get("/map", d.Dashboard.Map)
	dashboard.Get("/stats", protect, authorityOnly, d.Dashboard.Stats)

	detection := api.Group("/waste-detection")
	detection.Post("/analyze", protect, d.Detection.Analyze)
	detection.Post("/report/:id", protect, authorityOnly, d.Detection.AnalyzeReport)
	detection.Get("/report/:id", protect, d.Detection.Results)
	detection.Get("/stats", protect, authorityOnly, d.Detection.Stats)

	// Broadcast-only realtime channel; no per-client topic filtering.
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(d.Hub.Handler()))
}

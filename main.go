package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/Adnan2208/EcoTech/controllers"
	"github.com/Adnan2208/EcoTech/database"
	"github.com/Adnan2208/EcoTech/realtime"
	"github.com/Adnan2208/EcoTech/routes"
	"github.com/Adnan2208/EcoTech/services"
	"github.com/Adnan2208/EcoTech/uploads"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	db, err := database.Connect(context.Background())
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	uploadDir := getenv("UPLOAD_DIR", "uploads")
	store, err := uploads.NewStore(uploadDir)
	if err != nil {
		log.Fatalf("upload store: %v", err)
	}

	secret := getenv("JWT_SECRET", "")
	if secret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	hub := realtime.NewHub()
	userSvc := services.NewUserService(db)
	reportSvc := services.NewReportService(db, store, hub)
	dashboardSvc := services.NewDashboardService(db)
	detectionSvc := services.NewDetectionService(db, services.NewRoboflowClient(), hub, uploadDir)

	app := fiber.New(fiber.Config{
		BodyLimit: 30 * 1024 * 1024, // room for 5 images at 5MB each
	})
	app.Use(recover.New())

	// Log concise request lines
	app.Use(logger.New(logger.Config{
		TimeFormat: "15:04:05",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: getenv("CLIENT_URL", "http://localhost:5173"),
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "*",
		MaxAge:       int((12 * time.Hour).Seconds()),
	}))

	app.Use("/api", limiter.New(limiter.Config{
		Max:        100,
		Expiration: 15 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"message": "too many requests, please try again later",
			})
		},
	}))

	// Static preview for uploaded files
	app.Static("/uploads", "./"+uploadDir)

	// Health
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendString("ok") })

	// API
	routes.Register(app, routes.Deps{
		Auth:      controllers.NewAuthController(userSvc, secret),
		Reports:   controllers.NewReportController(reportSvc, store),
		Dashboard: controllers.NewDashboardController(dashboardSvc),
		Detection: controllers.NewDetectionController(detectionSvc),
		Users:     userSvc,
		Hub:       hub,
		Secret:    secret,
	})

	// JSON 404 for anything the route table missed
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "route not found",
		})
	})

	port := getenv("PORT", "5000")
	log.Printf("API listening on :%s", port)
	log.Fatal(app.Listen(":" + port))
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

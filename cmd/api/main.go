package main

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/kamaub/marketplace_api/backend/postgres"
	config "github.com/kamaub/marketplace_api/configs"
	"github.com/kamaub/marketplace_api/database"
	"github.com/kamaub/marketplace_api/handlers"
	"github.com/kamaub/marketplace_api/jobs"
	"github.com/kamaub/marketplace_api/routes"
	"github.com/kamaub/marketplace_api/uploads"
	"github.com/kamaub/marketplace_api/websocket"
	"github.com/robfig/cron/v3"
)

func main() {
	database.ConnectDB()
	database.Migrate()
	database.SeedAdmin()

	store := postgres.NewStore(database.DB)

	feed, err := postgres.NewFeed(config.Config("DATABASE_URL"))
	if err != nil {
		log.Fatalf("🔥 Change feed failed to start: %v", err)
	}
	defer feed.Close()

	blobs, err := uploads.NewCloudinary(config.Config("CLOUDINARY_URL"))
	if err != nil {
		log.Fatalf("🔥 Cloudinary failed to initialize: %v", err)
	}

	hub := websocket.NewHub(store, feed)
	handlers.Init(store, blobs)
	handlers.Hub = hub
	jobs.Init(store, hub)

	c := cron.New()
	c.AddFunc("@every "+jobs.RecountInterval.String(), jobs.BroadcastRecount)
	c.AddFunc("*/5 * * * *", jobs.SweepExpiredBans)
	go c.Start()
	log.Println("✅ Cron jobs scheduled successfully.")

	app := fiber.New(fiber.Config{
		Prefork:           false,
		AppName:           "Marketplace API",
		CaseSensitive:     true,
		StrictRouting:     true,
		EnablePrintRoutes: true,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			log.Printf("[ERROR] %v | Path: %s | Method: %s", err, c.Path(), c.Method())
			return c.Status(code).JSON(fiber.Map{
				"status":  "error",
				"code":    code,
				"message": err.Error(),
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Authorization",
		MaxAge:        86400,
	}))

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": "Welcome to Marketplace API",
		})
	})

	routes.AuthRoutes(app, store)
	routes.ProfileRoutes(app, store)
	routes.ProductRoutes(app, store)
	routes.RatingRoutes(app, store)
	routes.AdminRoutes(app, store)
	routes.ChatRoutes(app, store)
	routes.UploadRoutes(app, store)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"clients": hub.ClientCount(),
		})
	})

	log.Println("✅ Server is running on port 8080")
	if err := app.Listen(":8080"); err != nil {
		log.Fatalf("🔥 Server failed to start: %v", err)
	}
}

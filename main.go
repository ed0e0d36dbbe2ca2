package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"phishmail/cache"
	"phishmail/classifier"
	"phishmail/config"
	"phishmail/mailclient"
	"phishmail/middleware"
	"phishmail/routes"
	"phishmail/utils"
	"phishmail/worker"
)

func main() {
	// Initialize logger
	logger := log.New(os.Stdout, "PHISHMAIL: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Credentials may be stored encrypted at rest
	if config.AppConfig.IMAPPassEncrypted != "" {
		pass, err := utils.Decrypt(config.AppConfig.IMAPPassEncrypted)
		if err != nil {
			logger.Fatalf("Failed to decrypt IMAP password: %v", err)
		}
		config.AppConfig.IMAPPass = pass
		if config.AppConfig.SMTPPassword == "" {
			config.AppConfig.SMTPPassword = pass
		}
	}

	if dsn := config.AppConfig.SentryDSN; dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         dsn,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logger.Printf("Sentry init failed: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	mailLogger := logrus.New()
	dial := mailclient.NewDialer(&config.AppConfig, mailLogger)

	// The mailbox mirror lives for the process lifetime; a restart
	// resynchronizes from scratch.
	mbox := cache.New()

	oracle := classifier.New(
		config.AppConfig.OracleURL,
		config.AppConfig.OracleTimeout,
		log.New(os.Stdout, "ORACLE: ", log.LstdFlags),
	)

	// Initialize and start the sync worker
	syncWorker := worker.NewSyncWorker(
		dial,
		mbox,
		oracle,
		log.New(os.Stdout, "SYNC: ", log.LstdFlags),
		config.AppConfig.SyncInterval,
		config.AppConfig.SyncBackoff,
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go syncWorker.Start(ctx)

	// Create Fiber app
	app := fiber.New()

	// Add CORS middleware
	app.Use(middleware.CORS())

	// Setup routes
	routes.SetupRoutes(app, mbox, dial)

	// Health check endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "running",
			"ready":   mbox.Ready(),
			"version": "1.0.0",
		})
	})

	// Start server
	logger.Printf("🚀 Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}

package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"

	"phishmail/cache"
	"phishmail/config"
	controller "phishmail/controllers"
	"phishmail/mailclient"
	"phishmail/utils"
)

func SetupRoutes(app *fiber.App, mbox *cache.Mailbox, dial mailclient.Dialer) {
	// Initialize controllers with their respective loggers
	inboxController := controller.NewInboxController(mbox, log.New(os.Stdout, "INBOX: ", log.LstdFlags))
	mailer := utils.NewMailer(&config.AppConfig, dial, log.New(os.Stdout, "MAILER: ", log.LstdFlags))
	actionController := controller.NewActionController(mbox, dial, mailer, log.New(os.Stdout, "ACTION: ", log.LstdFlags))
	streamController := controller.NewStreamController(mbox, log.New(os.Stdout, "STREAM: ", log.LstdFlags))

	api := app.Group("", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		Next: func(c *fiber.Ctx) bool {
			// The SSE stream stays open for the connection lifetime;
			// logging it per-request is noise.
			return c.Path() == "/stream" || c.Path() == "/ws"
		},
	}))

	api.Get("/api/emails", inboxController.GetEmails)
	api.Post("/send", actionController.SendEmail)
	api.Post("/action", actionController.EmailAction)

	app.Get("/stream", streamController.Stream)
	app.Get("/ws", websocket.New(streamController.Socket))
}

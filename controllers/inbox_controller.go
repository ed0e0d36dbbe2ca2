package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"phishmail/cache"
	"phishmail/models"
)

type InboxController struct {
	cache  *cache.Mailbox
	logger *log.Logger
}

func NewInboxController(mbox *cache.Mailbox, logger *log.Logger) *InboxController {
	return &InboxController{
		cache:  mbox,
		logger: logger,
	}
}

// GetEmails returns the point-in-time snapshot of one folder. Unknown
// folder names fall back to the inbox.
func (ic *InboxController) GetEmails(c *fiber.Ctx) error {
	folder := c.Query("folder", "inbox")
	role, ok := models.ParseRole(folder)
	if !ok {
		role = models.RoleInbox
	}

	snapshot := ic.cache.Snapshot(role)
	if snapshot == nil {
		snapshot = []models.MessageSummary{}
	}
	return c.JSON(snapshot)
}

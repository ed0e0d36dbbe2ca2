package controller

import (
	"log"
	"time"

	"github.com/badoux/checkmail"
	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"

	"phishmail/cache"
	"phishmail/mailclient"
	"phishmail/models"
	"phishmail/utils"
)

type ActionController struct {
	cache  *cache.Mailbox
	dial   mailclient.Dialer
	mailer *utils.Mailer
	logger *log.Logger
}

func NewActionController(mbox *cache.Mailbox, dial mailclient.Dialer, mailer *utils.Mailer, logger *log.Logger) *ActionController {
	return &ActionController{
		cache:  mbox,
		dial:   dial,
		mailer: mailer,
		logger: logger,
	}
}

// SendEmail submits a composed message and archives a copy into the
// sent folder. The sent snapshot gets an optimistic local entry; the
// next full refetch is authoritative.
func (ac *ActionController) SendEmail(c *fiber.Ctx) error {
	var req struct {
		To      string `json:"to" form:"to_addr" validate:"required,email"`
		Subject string `json:"subject" form:"subject" validate:"required"`
		Body    string `json:"body" form:"body" validate:"required"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if err := checkmail.ValidateFormat(req.To); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "to must be a valid email",
		})
	}

	sent, err := ac.mailer.Send(req.To, req.Subject, req.Body)
	if err != nil {
		ac.logger.Printf("Send failed: %v", err)
		sentry.CaptureException(err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to send email",
		})
	}

	ac.cache.InsertTop(models.RoleSent, sent)
	return c.JSON(fiber.Map{"status": "ok"})
}

// EmailAction relocates a message out of the inbox or sent folder. The
// cache edit is optimistic for UI responsiveness; the real move runs
// in the background and the next authoritative refetch re-adds the
// message if it failed.
func (ac *ActionController) EmailAction(c *fiber.Ctx) error {
	var req struct {
		ID     uint32 `json:"id" validate:"required"`
		Folder string `json:"folder"`
		Action string `json:"action" validate:"required,oneof=trash archive"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	target, srcRole, found := ac.findMessage(req.ID, req.Folder)
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Email not found",
		})
	}

	ac.cache.Remove(srcRole, target.UID)
	if req.Action == "trash" {
		trashCopy := target
		trashCopy.Read = true
		ac.cache.InsertTop(models.RoleTrash, trashCopy)
	}

	go ac.relocate(target, srcRole, req.Action)

	return c.JSON(fiber.Map{"status": "ok"})
}

// findMessage locates the cached message the action refers to,
// searching the inbox then the sent folder when no folder was named.
func (ac *ActionController) findMessage(uid uint32, folder string) (models.MessageSummary, models.Role, bool) {
	roles := []models.Role{models.RoleInbox, models.RoleSent}
	if role, ok := models.ParseRole(folder); ok {
		roles = []models.Role{role}
	}
	for _, role := range roles {
		if msg, ok := ac.cache.Find(role, uid); ok {
			return msg, role, true
		}
	}
	return models.MessageSummary{}, "", false
}

// relocate performs the real server-side move. The cached UID may have
// drifted since the last sync, so it goes through the search fallback.
func (ac *ActionController) relocate(msg models.MessageSummary, srcRole models.Role, action string) {
	s, err := ac.dial()
	if err != nil {
		ac.logger.Printf("Relocation connect failed: %v", err)
		sentry.CaptureException(err)
		return
	}
	defer s.Logout() //nolint:errcheck

	src := mailclient.ResolveFolder(s, srcRole)
	var dst string
	if action == "trash" {
		dst = mailclient.ResolveFolder(s, models.RoleTrash)
	} else {
		dst = "Archive"
	}

	start := time.Now()
	if err := mailclient.MoveBySearch(s, msg, src, dst); err != nil {
		// The optimistic cache edit gets reverted by the next full
		// refetch, which is authoritative.
		ac.logger.Printf("Relocation of %q (%s to %s) failed: %v", msg.Subject, src, dst, err)
		if err != mailclient.ErrNotFound {
			sentry.CaptureException(err)
		}
		return
	}
	ac.logger.Printf("Relocated %q from %s to %s in %s", msg.Subject, src, dst, time.Since(start))
}

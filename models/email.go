package models

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Role is a logical folder purpose, independent of the provider's
// actual folder name.
type Role string

const (
	RoleInbox      Role = "inbox"
	RoleSent       Role = "sent"
	RoleTrash      Role = "trash"
	RoleQuarantine Role = "quarantine"
)

// Roles returns every role in a fixed order.
func Roles() []Role {
	return []Role{RoleInbox, RoleSent, RoleTrash, RoleQuarantine}
}

// roleAliases maps provider-flavoured folder names onto roles so the
// query surface accepts whatever a client happens to call a folder.
var roleAliases = map[string]Role{
	"inbox":             RoleInbox,
	"sent":              RoleSent,
	"sent mail":         RoleSent,
	"sent items":        RoleSent,
	"[gmail]/sent mail": RoleSent,
	"trash":             RoleTrash,
	"bin":               RoleTrash,
	"deleted":           RoleTrash,
	"[gmail]/trash":     RoleTrash,
	"quarantine":        RoleQuarantine,
	"phishing":          RoleQuarantine,
	"spam":              RoleQuarantine,
	"junk":              RoleQuarantine,
}

// ParseRole resolves a folder name or alias to a role.
func ParseRole(s string) (Role, bool) {
	role, ok := roleAliases[strings.ToLower(strings.TrimSpace(s))]
	return role, ok
}

const (
	VerdictPhishing = "phishing"
	VerdictLegit    = "legit"
)

// Verdict is a classification answer from the oracle.
type Verdict struct {
	Verdict    string   `json:"verdict"`
	Confidence string   `json:"confidence"`
	Reasons    []string `json:"reasons"`
}

// MessageSummary is one observed message, normalized for display.
//
// UID is assigned by the server and scoped to the message's current
// folder; it changes when the message is relocated and means nothing
// outside that folder.
type MessageSummary struct {
	UID             uint32   `json:"uid"`
	MessageID       string   `json:"message_id,omitempty"`
	SenderName      string   `json:"sender_name"`
	SenderEmail     string   `json:"sender_email"`
	RecipientName   string   `json:"recipient_name"`
	RecipientEmail  string   `json:"recipient_email"`
	Subject         string   `json:"subject"`
	Body            string   `json:"body"`
	AttachmentNames []string `json:"attachments,omitempty"`
	Date            string   `json:"date"`
	Timestamp       int64    `json:"timestamp"`
	Read            bool     `json:"read"`
	Verdict         *Verdict `json:"verdict,omitempty"`
}

// Key identifies a message across folder moves. UIDs drift when a
// message is relocated, so dedup state is keyed on the Message-Id
// header, with a content hash fallback for messages that lack one.
func (m MessageSummary) Key() string {
	if m.MessageID != "" {
		return m.MessageID
	}
	h := xxhash.Sum64String(m.SenderEmail + "|" + m.Subject + "|" + m.Date)
	return fmt.Sprintf("x%016x", h)
}

package mailclient

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"phishmail/models"
)

func TestResolveFolderGmailSent(t *testing.T) {
	s := newFakeSession("INBOX", "[Gmail]/Sent Mail", "[Gmail]/Trash", "[Gmail]/Spam")
	assert.Equal(t, "[Gmail]/Sent Mail", ResolveFolder(s, models.RoleSent))
	assert.Equal(t, "[Gmail]/Trash", ResolveFolder(s, models.RoleTrash))
	assert.Equal(t, "[Gmail]/Spam", ResolveFolder(s, models.RoleQuarantine))
}

func TestResolveFolderLocalizedVariants(t *testing.T) {
	s := newFakeSession("INBOX", "Gesendet", "Papierkorb")
	assert.Equal(t, "Gesendet", ResolveFolder(s, models.RoleSent))
	assert.Equal(t, "Papierkorb", ResolveFolder(s, models.RoleTrash))
}

func TestResolveFolderDefaultsWhenNoMatch(t *testing.T) {
	s := newFakeSession("INBOX", "Notes", "Receipts")
	assert.Equal(t, "Sent", ResolveFolder(s, models.RoleSent))
	assert.Equal(t, "Trash", ResolveFolder(s, models.RoleTrash))
	assert.Equal(t, "Phishing", ResolveFolder(s, models.RoleQuarantine))
}

func TestResolveFolderFailsSoftOnListError(t *testing.T) {
	s := newFakeSession()
	s.listErr = errors.New("LIST refused")
	assert.Equal(t, "Sent", ResolveFolder(s, models.RoleSent))
}

func TestResolveFolderInboxIsFixed(t *testing.T) {
	s := newFakeSession("Inbox-Like", "INBOX")
	assert.Equal(t, "INBOX", ResolveFolder(s, models.RoleInbox))
}

func TestResolveFolderIsDeterministic(t *testing.T) {
	s := newFakeSession("INBOX", "Sent Items", "[Gmail]/Sent Mail")
	first := ResolveFolder(s, models.RoleSent)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, ResolveFolder(s, models.RoleSent))
	}
	// The more specific candidate wins over plain "Sent".
	assert.Equal(t, "[Gmail]/Sent Mail", first)
}

func TestEnsureFolderIdempotent(t *testing.T) {
	s := newFakeSession("INBOX")
	EnsureFolder(s, "Phishing")
	// Second attempt hits "already exists" and is swallowed.
	EnsureFolder(s, "Phishing")
	assert.Equal(t, []string{"Phishing"}, s.created)
}

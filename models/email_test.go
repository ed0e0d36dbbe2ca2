package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		role Role
		ok   bool
	}{
		{"inbox", RoleInbox, true},
		{"Inbox", RoleInbox, true},
		{"[Gmail]/Sent Mail", RoleSent, true},
		{"sent items", RoleSent, true},
		{"bin", RoleTrash, true},
		{"phishing", RoleQuarantine, true},
		{"spam", RoleQuarantine, true},
		{"quarantine", RoleQuarantine, true},
		{"drafts", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		role, ok := ParseRole(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		if ok {
			assert.Equal(t, tt.role, role, "input %q", tt.in)
		}
	}
}

func TestMessageKeyPrefersMessageID(t *testing.T) {
	m := MessageSummary{MessageID: "abc@example.com", Subject: "hi"}
	assert.Equal(t, "abc@example.com", m.Key())
}

func TestMessageKeyStableAcrossMove(t *testing.T) {
	// Relocation changes the UID but not the key.
	a := MessageSummary{UID: 10, SenderEmail: "x@y.z", Subject: "hi", Date: "Mon, 02 Jan 2006 15:04:05 -0700"}
	b := a
	b.UID = 99
	assert.Equal(t, a.Key(), b.Key())

	c := a
	c.Subject = "other"
	assert.NotEqual(t, a.Key(), c.Key())
}

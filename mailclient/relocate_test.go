package mailclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phishmail/models"
)

func TestMoveUIDFastPath(t *testing.T) {
	s := newFakeSession("INBOX", "Phishing")
	m := s.add("INBOX", &fakeMail{subject: "Invoice Due"})

	require.NoError(t, MoveUID(s, m.uid, "INBOX", "Phishing"))

	assert.Empty(t, s.folders["INBOX"])
	require.Len(t, s.folders["Phishing"], 1)
	assert.Equal(t, "Invoice Due", s.folders["Phishing"][0].subject)
	// The relocated copy carries a fresh server-assigned UID.
	assert.NotEqual(t, m.uid, s.folders["Phishing"][0].uid)
}

func TestMoveUIDCreatesDestination(t *testing.T) {
	s := newFakeSession("INBOX")
	m := s.add("INBOX", &fakeMail{subject: "x"})

	require.NoError(t, MoveUID(s, m.uid, "INBOX", "Phishing"))
	assert.Contains(t, s.created, "Phishing")
	assert.Len(t, s.folders["Phishing"], 1)
}

func TestMoveBySearchWithDateNarrowing(t *testing.T) {
	s := newFakeSession("INBOX", "Trash")
	s.add("INBOX", &fakeMail{subject: "Receipt", date: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)})
	target := s.add("INBOX", &fakeMail{subject: "Receipt", date: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)})

	// The cached UID no longer matters; the search finds the message.
	cached := models.MessageSummary{
		UID:     9999,
		Subject: "Receipt",
		Date:    "Sat, 01 Jun 2024 00:00:00 +0000",
	}
	require.NoError(t, MoveBySearch(s, cached, "INBOX", "Trash"))

	require.Len(t, s.folders["INBOX"], 1)
	assert.NotEqual(t, target.uid, s.folders["INBOX"][0].uid)
	require.Len(t, s.folders["Trash"], 1)
	assert.Equal(t, "Receipt", s.folders["Trash"][0].subject)
}

func TestMoveBySearchSubjectOnlyFallback(t *testing.T) {
	s := newFakeSession("INBOX", "Trash")
	// Older than the cached date, so the narrowed search misses it.
	s.add("INBOX", &fakeMail{subject: "Old News", date: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)})

	cached := models.MessageSummary{
		Subject: "Old News",
		Date:    "Sat, 01 Jun 2024 00:00:00 +0000",
	}
	require.NoError(t, MoveBySearch(s, cached, "INBOX", "Trash"))
	assert.Empty(t, s.folders["INBOX"])
	assert.Len(t, s.folders["Trash"], 1)
	// Both the narrowed and the fallback search ran.
	assert.Equal(t, 2, s.searches)
}

func TestMoveBySearchTakesMostRecentMatch(t *testing.T) {
	s := newFakeSession("INBOX", "Trash")
	s.add("INBOX", &fakeMail{subject: "Same", date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)})
	last := s.add("INBOX", &fakeMail{subject: "Same", date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)})

	cached := models.MessageSummary{Subject: "Same"}
	require.NoError(t, MoveBySearch(s, cached, "INBOX", "Trash"))

	// The numerically last UID, the most recent match, was moved.
	require.Len(t, s.folders["INBOX"], 1)
	assert.NotEqual(t, last.uid, s.folders["INBOX"][0].uid)
}

func TestMoveBySearchNotFound(t *testing.T) {
	s := newFakeSession("INBOX", "Trash")
	s.add("INBOX", &fakeMail{subject: "Keep me"})

	cached := models.MessageSummary{Subject: "Gone"}
	err := MoveBySearch(s, cached, "INBOX", "Trash")
	assert.ErrorIs(t, err, ErrNotFound)

	// Nothing moved, nothing deleted.
	assert.Len(t, s.folders["INBOX"], 1)
	assert.Empty(t, s.folders["Trash"])
}

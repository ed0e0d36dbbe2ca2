package cache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phishmail/models"
)

func msg(uid uint32, subject string, ts int64) models.MessageSummary {
	return models.MessageSummary{
		UID:       uid,
		MessageID: fmt.Sprintf("<%d@test>", uid),
		Subject:   subject,
		Timestamp: ts,
	}
}

func TestReplaceSortsNewestFirst(t *testing.T) {
	m := New()
	m.Replace(models.RoleInbox, []models.MessageSummary{
		msg(1, "old", 100),
		msg(2, "new", 300),
		msg(3, "older", 50),
		msg(4, "undated", 0),
	})

	snap := m.Snapshot(models.RoleInbox)
	require.Len(t, snap, 4)
	assert.Equal(t, uint32(2), snap[0].UID)
	assert.Equal(t, uint32(1), snap[1].UID)
	assert.Equal(t, uint32(3), snap[2].UID)
	// Unparseable dates sort last.
	assert.Equal(t, uint32(4), snap[3].UID)
}

func TestReplaceCapsSnapshot(t *testing.T) {
	m := New()
	var msgs []models.MessageSummary
	for i := 0; i < SnapshotCap+50; i++ {
		msgs = append(msgs, msg(uint32(i+1), "m", int64(i)))
	}
	m.Replace(models.RoleInbox, msgs)
	assert.Equal(t, SnapshotCap, m.Len(models.RoleInbox))
	// The newest entries survive the cap.
	assert.Equal(t, uint32(SnapshotCap+50), m.LeadingUID(models.RoleInbox))
}

func TestReplaceCarriesVerdictsByKey(t *testing.T) {
	m := New()
	m.Replace(models.RoleInbox, []models.MessageSummary{msg(1, "a", 10)})
	m.AttachVerdict(models.RoleInbox, "<1@test>", models.Verdict{Verdict: models.VerdictLegit, Confidence: "high"})

	// Authoritative refetch with a drifted UID; same Message-Id.
	refetched := msg(7, "a", 10)
	refetched.MessageID = "<1@test>"
	m.Replace(models.RoleInbox, []models.MessageSummary{refetched})

	snap := m.Snapshot(models.RoleInbox)
	require.Len(t, snap, 1)
	require.NotNil(t, snap[0].Verdict)
	assert.Equal(t, models.VerdictLegit, snap[0].Verdict.Verdict)
}

func TestSnapshotIsACopy(t *testing.T) {
	m := New()
	m.Replace(models.RoleInbox, []models.MessageSummary{msg(1, "a", 10)})
	snap := m.Snapshot(models.RoleInbox)
	snap[0].Subject = "mutated"
	assert.Equal(t, "a", m.Snapshot(models.RoleInbox)[0].Subject)
}

func TestRemove(t *testing.T) {
	m := New()
	m.Replace(models.RoleInbox, []models.MessageSummary{msg(1, "a", 10), msg(2, "b", 20)})
	assert.True(t, m.Remove(models.RoleInbox, 1))
	assert.False(t, m.Remove(models.RoleInbox, 1))
	assert.Equal(t, 1, m.Len(models.RoleInbox))
}

func TestFingerprintDetectsRealChangeOnly(t *testing.T) {
	m := New()
	m.Replace(models.RoleInbox, []models.MessageSummary{msg(1, "a", 10)})
	fp := m.Fingerprint(models.RoleInbox)

	// Identical content, identical fingerprint.
	m.Replace(models.RoleInbox, []models.MessageSummary{msg(1, "a", 10)})
	assert.Equal(t, fp, m.Fingerprint(models.RoleInbox))

	m.Replace(models.RoleInbox, []models.MessageSummary{msg(1, "a", 10), msg(2, "b", 20)})
	assert.NotEqual(t, fp, m.Fingerprint(models.RoleInbox))

	// Folders fingerprint independently.
	assert.NotEqual(t, m.Fingerprint(models.RoleInbox), m.Fingerprint(models.RoleTrash))
}

func TestNotifierWakesAllWaiters(t *testing.T) {
	n := NewNotifier()
	first := n.Done()
	second := n.Done()

	select {
	case <-first:
		t.Fatal("waiter released before Wake")
	default:
	}

	n.Wake()
	<-first
	<-second

	// A fresh channel is armed for the next round.
	select {
	case <-n.Done():
		t.Fatal("new waiter released without a new Wake")
	default:
	}
}

func TestMutatorsWakeNotifier(t *testing.T) {
	m := New()
	done := m.Notifier().Done()
	m.Replace(models.RoleInbox, []models.MessageSummary{msg(1, "a", 10)})
	select {
	case <-done:
	default:
		t.Fatal("Replace did not wake the notifier")
	}

	done = m.Notifier().Done()
	m.InsertTop(models.RoleTrash, msg(2, "b", 20))
	select {
	case <-done:
	default:
		t.Fatal("InsertTop did not wake the notifier")
	}

	// Removing a UID that isn't cached is not a change.
	done = m.Notifier().Done()
	m.Remove(models.RoleInbox, 999)
	select {
	case <-done:
		t.Fatal("no-op Remove woke the notifier")
	default:
	}
}

func TestReadyFlag(t *testing.T) {
	m := New()
	assert.False(t, m.Ready())
	m.SetReady()
	assert.True(t, m.Ready())
}

package cache

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"

	"phishmail/models"
)

// SnapshotCap bounds every folder snapshot to the most recent entries.
const SnapshotCap = 200

// Mailbox is the in-memory mirror of one account's folders. It is
// created empty, populated by the initial full sync, and never
// persisted; a restart triggers a full resynchronization.
//
// Writes to a folder are mutually exclusive; reads return copies so
// they may run concurrently with any write.
type Mailbox struct {
	mu       sync.RWMutex
	folders  map[models.Role][]models.MessageSummary
	notifier *Notifier
	ready    bool
}

func New() *Mailbox {
	folders := make(map[models.Role][]models.MessageSummary, 4)
	for _, role := range models.Roles() {
		folders[role] = nil
	}
	return &Mailbox{
		folders:  folders,
		notifier: NewNotifier(),
	}
}

// Notifier returns the shared change broadcast.
func (m *Mailbox) Notifier() *Notifier {
	return m.notifier
}

// SetReady marks the initial full sync as complete.
func (m *Mailbox) SetReady() {
	m.mu.Lock()
	m.ready = true
	m.mu.Unlock()
}

func (m *Mailbox) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ready
}

// Snapshot returns a copy of the folder's current content.
func (m *Mailbox) Snapshot(role models.Role) []models.MessageSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.MessageSummary, len(m.folders[role]))
	copy(out, m.folders[role])
	return out
}

func (m *Mailbox) Len(role models.Role) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.folders[role])
}

// LeadingUID returns the newest message's UID, or 0 for an empty folder.
func (m *Mailbox) LeadingUID(role models.Role) uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.folders[role]) == 0 {
		return 0
	}
	return m.folders[role][0].UID
}

// UIDSet returns the set of UIDs currently cached for a folder.
func (m *Mailbox) UIDSet(role models.Role) map[uint32]struct{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set := make(map[uint32]struct{}, len(m.folders[role]))
	for _, msg := range m.folders[role] {
		set[msg.UID] = struct{}{}
	}
	return set
}

// Replace swaps in an authoritative snapshot for one folder: sorted
// newest-first, capped, last-writer-wins. Verdicts are engine-local
// annotations the server knows nothing about, so they are carried over
// from the previous snapshot by message key.
func (m *Mailbox) Replace(role models.Role, msgs []models.MessageSummary) {
	m.mu.Lock()
	verdicts := make(map[string]*models.Verdict)
	for _, old := range m.folders[role] {
		if old.Verdict != nil {
			verdicts[old.Key()] = old.Verdict
		}
	}
	for i := range msgs {
		if msgs[i].Verdict == nil {
			msgs[i].Verdict = verdicts[msgs[i].Key()]
		}
	}
	m.folders[role] = normalize(msgs)
	m.mu.Unlock()
	m.notifier.Wake()
}

// InsertTop adds an optimistic local entry pending server confirmation.
// The next authoritative Replace overwrites it either way.
func (m *Mailbox) InsertTop(role models.Role, msg models.MessageSummary) {
	m.mu.Lock()
	m.folders[role] = normalize(append([]models.MessageSummary{msg}, m.folders[role]...))
	m.mu.Unlock()
	m.notifier.Wake()
}

// Remove drops the entry with the given UID. Reports whether an entry
// was removed.
func (m *Mailbox) Remove(role models.Role, uid uint32) bool {
	m.mu.Lock()
	removed := false
	kept := m.folders[role][:0]
	for _, msg := range m.folders[role] {
		if msg.UID == uid {
			removed = true
			continue
		}
		kept = append(kept, msg)
	}
	m.folders[role] = kept
	m.mu.Unlock()
	if removed {
		m.notifier.Wake()
	}
	return removed
}

// Find locates a cached message by UID.
func (m *Mailbox) Find(role models.Role, uid uint32) (models.MessageSummary, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, msg := range m.folders[role] {
		if msg.UID == uid {
			return msg, true
		}
	}
	return models.MessageSummary{}, false
}

// AttachVerdict records a classification result on the cached entry
// with the given key.
func (m *Mailbox) AttachVerdict(role models.Role, key string, v models.Verdict) {
	m.mu.Lock()
	attached := false
	for i := range m.folders[role] {
		if m.folders[role][i].Key() == key {
			verdict := v
			m.folders[role][i].Verdict = &verdict
			attached = true
			break
		}
	}
	m.mu.Unlock()
	if attached {
		m.notifier.Wake()
	}
}

// Fingerprint is a deterministic hash of the folder's canonicalized
// content, used to suppress duplicate notifications.
func (m *Mailbox) Fingerprint(role models.Role) uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, err := json.Marshal(m.folders[role])
	if err != nil {
		return 0
	}
	return xxhash.Sum64(data)
}

// Fingerprints returns the current fingerprint of every folder.
func (m *Mailbox) Fingerprints() map[models.Role]uint64 {
	fps := make(map[models.Role]uint64, 4)
	for _, role := range models.Roles() {
		fps[role] = m.Fingerprint(role)
	}
	return fps
}

// normalize sorts newest-first (unparseable dates sort last) and caps
// the snapshot.
func normalize(msgs []models.MessageSummary) []models.MessageSummary {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp > msgs[j].Timestamp
	})
	if len(msgs) > SnapshotCap {
		msgs = msgs[:SnapshotCap]
	}
	return msgs
}

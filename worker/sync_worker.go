package worker

import (
	"context"
	"log"
	"time"

	"github.com/getsentry/sentry-go"

	"phishmail/cache"
	"phishmail/mailclient"
	"phishmail/models"
)

// Classifier judges one message. Satisfied by classifier.Client.
type Classifier interface {
	Classify(ctx context.Context, sum models.MessageSummary) models.Verdict
}

// SyncWorker owns the poll cycle: it detects folder-level change,
// fetches deltas, classifies newly observed messages, relocates
// phishing to quarantine and keeps the cache current. It is the single
// authoritative writer; optimistic edits from action handlers are
// overwritten by its next full refresh.
type SyncWorker struct {
	dial       mailclient.Dialer
	cache      *cache.Mailbox
	classifier Classifier
	logger     *log.Logger
	interval   time.Duration
	backoff    time.Duration

	// classified remembers every message key ever sent to the oracle.
	// A message is classified at most once, when first observed;
	// re-polling never re-classifies it, even after it moves.
	classified map[string]struct{}

	// lastInboxUIDNext is the server-observed next-assignable UID. The
	// message count side of the fast path compares against the cache
	// instead, so an optimistic local edit that the server never
	// confirmed forces a refetch and gets reverted.
	lastInboxUIDNext uint32
}

func NewSyncWorker(dial mailclient.Dialer, mbox *cache.Mailbox, cls Classifier, logger *log.Logger, interval, backoff time.Duration) *SyncWorker {
	return &SyncWorker{
		dial:       dial,
		cache:      mbox,
		classifier: cls,
		logger:     logger,
		interval:   interval,
		backoff:    backoff,
		classified: make(map[string]struct{}),
	}
}

// Start runs the worker for the life of the process: one mandatory
// full sync, then a fixed-interval poll loop. Nothing here is fatal;
// every failure degrades to retrying on the next cycle.
func (w *SyncWorker) Start(ctx context.Context) {
	w.logger.Println("Starting sync worker...")

	w.initialSync(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.RunCycle(ctx)
		case <-ctx.Done():
			w.logger.Println("Stopping sync worker...")
			return
		}
	}
}

// initialSync retries the full sync until it succeeds. The cache is
// not marked ready before then; subscribers connected earlier see
// empty snapshots.
func (w *SyncWorker) initialSync(ctx context.Context) {
	for {
		if err := w.fullSync(ctx); err != nil {
			w.logger.Printf("Initial sync failed: %v", err)
			sentry.CaptureException(err)
			select {
			case <-time.After(w.backoff):
				continue
			case <-ctx.Done():
				return
			}
		}
		w.cache.SetReady()
		w.logger.Println("Initial sync complete, inbox ready")
		return
	}
}

// fullSync refetches every folder. Messages already present are
// treated as triaged: classification applies only to messages that
// arrive after this baseline.
func (w *SyncWorker) fullSync(ctx context.Context) error {
	s, err := w.dial()
	if err != nil {
		return err
	}
	defer s.Logout() //nolint:errcheck

	folders := mailclient.ResolveFolders(s)
	for _, role := range models.Roles() {
		msgs, err := mailclient.FetchFolder(s, folders[role])
		if err != nil {
			// The quarantine folder may simply not exist yet.
			if role == models.RoleQuarantine {
				w.cache.Replace(role, nil)
				continue
			}
			return err
		}
		w.cache.Replace(role, msgs)
		if role == models.RoleInbox {
			for _, msg := range msgs {
				w.classified[msg.Key()] = struct{}{}
			}
		}
	}

	if _, uidNext, err := mailclient.FolderStatus(s, folders[models.RoleInbox]); err == nil {
		w.lastInboxUIDNext = uidNext
	}
	return nil
}

// RunCycle executes one poll cycle: connect, sync the inbox on its
// fast-path check, count-compare the remaining folders, disconnect.
func (w *SyncWorker) RunCycle(ctx context.Context) {
	s, err := w.dial()
	if err != nil {
		w.logger.Printf("Poll cycle connect failed: %v", err)
		sentry.CaptureException(err)
		time.Sleep(w.backoff)
		return
	}
	defer s.Logout() //nolint:errcheck

	folders := mailclient.ResolveFolders(s)

	w.syncInbox(ctx, s, folders)

	for _, role := range []models.Role{models.RoleSent, models.RoleTrash, models.RoleQuarantine} {
		w.syncCounted(s, role, folders[role])
	}
}

// syncInbox skips all inbox work when the server's message count and
// next-assignable UID both match the last observation. On change it
// refetches the window, set-diffs UIDs against the previous snapshot
// to find genuinely new messages, and runs each through classification
// exactly once.
func (w *SyncWorker) syncInbox(ctx context.Context, s mailclient.Session, folders map[models.Role]string) {
	inbox := folders[models.RoleInbox]

	count, uidNext, err := mailclient.FolderStatus(s, inbox)
	if err != nil {
		w.logger.Printf("Inbox status failed: %v", err)
		return
	}
	if int(count) == w.cache.Len(models.RoleInbox) && uidNext == w.lastInboxUIDNext {
		return
	}

	prev := w.cache.UIDSet(models.RoleInbox)

	msgs, err := mailclient.FetchFolder(s, inbox)
	if err != nil {
		w.logger.Printf("Inbox fetch failed: %v", err)
		return
	}
	w.cache.Replace(models.RoleInbox, msgs)
	w.lastInboxUIDNext = uidNext

	// Oldest-first so classification follows arrival order.
	for i := len(msgs) - 1; i >= 0; i-- {
		msg := msgs[i]
		if _, ok := prev[msg.UID]; ok {
			continue
		}
		if _, seen := w.classified[msg.Key()]; seen {
			continue
		}
		w.classified[msg.Key()] = struct{}{}
		w.classify(ctx, s, folders, msg)
	}
}

// classify runs one new message through the oracle and quarantines it
// on a phishing verdict, refreshing both affected snapshots.
func (w *SyncWorker) classify(ctx context.Context, s mailclient.Session, folders map[models.Role]string, msg models.MessageSummary) {
	verdict := w.classifier.Classify(ctx, msg)
	w.logger.Printf("Classified %q from %s: %s (%s)", msg.Subject, msg.SenderEmail, verdict.Verdict, verdict.Confidence)

	if verdict.Verdict != models.VerdictPhishing {
		w.cache.AttachVerdict(models.RoleInbox, msg.Key(), verdict)
		return
	}

	quarantine := folders[models.RoleQuarantine]
	if err := mailclient.MoveUID(s, msg.UID, folders[models.RoleInbox], quarantine); err != nil {
		w.logger.Printf("Failed to quarantine %q: %v", msg.Subject, err)
		sentry.CaptureException(err)
		w.cache.AttachVerdict(models.RoleInbox, msg.Key(), verdict)
		return
	}

	if inboxMsgs, err := mailclient.FetchFolder(s, folders[models.RoleInbox]); err == nil {
		w.cache.Replace(models.RoleInbox, inboxMsgs)
	}
	if _, uidNext, err := mailclient.FolderStatus(s, folders[models.RoleInbox]); err == nil {
		w.lastInboxUIDNext = uidNext
	}
	if qMsgs, err := mailclient.FetchFolder(s, quarantine); err == nil {
		w.cache.Replace(models.RoleQuarantine, qMsgs)
	}
	w.cache.AttachVerdict(models.RoleQuarantine, msg.Key(), verdict)
}

// syncCounted is the coarser check for the non-critical folders: a
// bare message-count comparison, accepting that same-count content
// changes go undetected until the count moves.
func (w *SyncWorker) syncCounted(s mailclient.Session, role models.Role, folder string) {
	count, _, err := mailclient.FolderStatus(s, folder)
	if err != nil {
		// The quarantine folder appears only after the first
		// relocation creates it.
		if role != models.RoleQuarantine {
			w.logger.Printf("Status of %q failed: %v", folder, err)
		}
		return
	}
	if int(count) == w.cache.Len(role) {
		return
	}

	msgs, err := mailclient.FetchFolder(s, folder)
	if err != nil {
		w.logger.Printf("Fetch of %q failed: %v", folder, err)
		return
	}
	w.cache.Replace(role, msgs)
}

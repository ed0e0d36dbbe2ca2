package mailclient

import (
	"errors"
	"fmt"
	netmail "net/mail"

	"github.com/emersion/go-imap"

	"phishmail/models"
)

// ErrNotFound reports that a search-based relocation matched nothing
// in the source folder. The caller leaves the cache unchanged.
var ErrNotFound = errors.New("no matching message in source folder")

// MoveUID relocates a message whose UID is freshly known, the fast
// path used right after a new message is detected. go-imap v1 exposes
// no distinct MOVE command, so the portable copy, mark deleted, purge
// sequence is used throughout.
func MoveUID(s Session, uid uint32, src, dst string) error {
	if _, err := s.Select(src, false); err != nil {
		return err
	}
	EnsureFolder(s, dst)
	return moveSelected(s, uid, dst)
}

// MoveBySearch relocates a cached message whose UID may have drifted
// since the last full sync. It searches the source folder by subject,
// narrowed by SINCE when the cached date parses, retries with subject
// alone, and takes the numerically last match: a deliberate
// most-recent-match heuristic when several messages share a subject.
func MoveBySearch(s Session, msg models.MessageSummary, src, dst string) error {
	if _, err := s.Select(src, false); err != nil {
		return err
	}

	criteria := imap.NewSearchCriteria()
	criteria.Header.Add("Subject", msg.Subject)
	if t, err := netmail.ParseDate(msg.Date); err == nil {
		criteria.Since = t
	}

	uids, err := s.UIDSearch(criteria)
	if err != nil || len(uids) == 0 {
		fallback := imap.NewSearchCriteria()
		fallback.Header.Add("Subject", msg.Subject)
		uids, err = s.UIDSearch(fallback)
		if err != nil {
			return fmt.Errorf("failed to search for message: %w", err)
		}
	}
	if len(uids) == 0 {
		return ErrNotFound
	}

	EnsureFolder(s, dst)
	return moveSelected(s, uids[len(uids)-1], dst)
}

func moveSelected(s Session, uid uint32, dst string) error {
	set := new(imap.SeqSet)
	set.AddNum(uid)

	if err := s.UIDCopy(set, dst); err != nil {
		return fmt.Errorf("failed to copy message %d to %q: %w", uid, dst, err)
	}
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := s.UIDStore(set, item, []interface{}{imap.DeletedFlag}); err != nil {
		return fmt.Errorf("failed to mark message %d deleted: %w", uid, err)
	}
	if err := s.Expunge(); err != nil {
		return fmt.Errorf("failed to expunge source folder: %w", err)
	}
	return nil
}

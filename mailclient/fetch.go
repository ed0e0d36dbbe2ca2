package mailclient

import (
	"fmt"
	"io"
	"sort"

	"github.com/emersion/go-imap"

	"phishmail/models"
)

// FetchWindow is the visible window per folder: the most recent UIDs
// fetched on every full refresh.
const FetchWindow = 200

var fetchItems = []imap.FetchItem{
	imap.FetchUid,
	imap.FetchFlags,
	imap.FetchItem("BODY.PEEK[]"),
}

// FetchFolder fetches the folder's visible window and returns
// summaries sorted newest-first.
func FetchFolder(s Session, folder string) ([]models.MessageSummary, error) {
	if _, err := s.Select(folder, true); err != nil {
		return nil, err
	}

	uids, err := s.UIDSearch(imap.NewSearchCriteria())
	if err != nil {
		return nil, fmt.Errorf("failed to search %q: %w", folder, err)
	}
	if len(uids) == 0 {
		return nil, nil
	}
	if len(uids) > FetchWindow {
		uids = uids[len(uids)-FetchWindow:]
	}

	set := new(imap.SeqSet)
	set.AddNum(uids...)

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- s.UIDFetch(set, fetchItems, messages)
	}()

	var out []models.MessageSummary
	for msg := range messages {
		sum := Summarize(msg.Uid, rawBody(msg))
		sum.Read = hasFlag(msg.Flags, imap.SeenFlag)
		out = append(out, sum)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch %q: %w", folder, err)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp > out[j].Timestamp
	})
	return out, nil
}

// FolderStatus reports the folder's message count and next-assignable
// UID without fetching any content.
func FolderStatus(s Session, folder string) (messages, uidNext uint32, err error) {
	status, err := s.Status(folder, []imap.StatusItem{imap.StatusMessages, imap.StatusUidNext})
	if err != nil {
		return 0, 0, err
	}
	return status.Messages, status.UidNext, nil
}

// rawBody extracts the full RFC822 content from whichever body section
// the server answered with.
func rawBody(msg *imap.Message) []byte {
	for _, literal := range msg.Body {
		if literal == nil {
			continue
		}
		b, err := io.ReadAll(literal)
		if err != nil {
			continue
		}
		if len(b) > 0 {
			return b
		}
	}
	return nil
}

func hasFlag(flags []string, flag string) bool {
	for _, f := range flags {
		if f == flag {
			return true
		}
	}
	return false
}

package mailclient

import (
	"bytes"
	"errors"
	"time"

	"github.com/emersion/go-imap"
)

// fakeMail is one message on the fake server.
type fakeMail struct {
	uid     uint32
	subject string
	date    time.Time
	raw     []byte
	flags   []string
	deleted bool
}

// fakeSession is an in-memory Session for tests.
type fakeSession struct {
	folders  map[string][]*fakeMail
	names    []string
	listErr  error
	uidNext  uint32
	selected string
	created  []string
	searches int
}

func newFakeSession(names ...string) *fakeSession {
	s := &fakeSession{
		folders: make(map[string][]*fakeMail),
		names:   names,
		uidNext: 1000,
	}
	for _, name := range names {
		s.folders[name] = nil
	}
	return s
}

func (s *fakeSession) add(folder string, m *fakeMail) *fakeMail {
	if m.uid == 0 {
		s.uidNext++
		m.uid = s.uidNext
	}
	s.folders[folder] = append(s.folders[folder], m)
	return m
}

func (s *fakeSession) Select(name string, readOnly bool) (*imap.MailboxStatus, error) {
	if _, ok := s.folders[name]; !ok {
		return nil, errors.New("no such folder: " + name)
	}
	s.selected = name
	return &imap.MailboxStatus{Name: name, Messages: uint32(len(s.folders[name]))}, nil
}

func (s *fakeSession) Status(name string, items []imap.StatusItem) (*imap.MailboxStatus, error) {
	mails, ok := s.folders[name]
	if !ok {
		return nil, errors.New("no such folder: " + name)
	}
	return &imap.MailboxStatus{
		Name:     name,
		Messages: uint32(len(mails)),
		UidNext:  s.uidNext + 1,
	}, nil
}

func (s *fakeSession) List() ([]string, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.names, nil
}

func (s *fakeSession) UIDSearch(criteria *imap.SearchCriteria) ([]uint32, error) {
	s.searches++
	subject := ""
	if criteria != nil && criteria.Header != nil {
		subject = criteria.Header.Get("Subject")
	}
	var uids []uint32
	for _, m := range s.folders[s.selected] {
		if m.deleted {
			continue
		}
		if subject != "" && m.subject != subject {
			continue
		}
		if criteria != nil && !criteria.Since.IsZero() && m.date.Before(criteria.Since) {
			continue
		}
		uids = append(uids, m.uid)
	}
	return uids, nil
}

func (s *fakeSession) UIDFetch(set *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error {
	defer close(ch)
	for _, m := range s.folders[s.selected] {
		if !set.Contains(m.uid) {
			continue
		}
		section := &imap.BodySectionName{}
		msg := &imap.Message{
			Uid:   m.uid,
			Flags: m.flags,
			Body:  map[*imap.BodySectionName]imap.Literal{section: bufferFor(m.raw)},
		}
		ch <- msg
	}
	return nil
}

func (s *fakeSession) UIDCopy(set *imap.SeqSet, dest string) error {
	if _, ok := s.folders[dest]; !ok {
		return errors.New("no such folder: " + dest)
	}
	for _, m := range s.folders[s.selected] {
		if set.Contains(m.uid) {
			s.uidNext++
			s.folders[dest] = append(s.folders[dest], &fakeMail{
				uid:     s.uidNext,
				subject: m.subject,
				date:    m.date,
				raw:     m.raw,
				flags:   m.flags,
			})
		}
	}
	return nil
}

func (s *fakeSession) UIDStore(set *imap.SeqSet, item imap.StoreItem, value interface{}) error {
	for _, m := range s.folders[s.selected] {
		if set.Contains(m.uid) {
			m.deleted = true
		}
	}
	return nil
}

func (s *fakeSession) Expunge() error {
	kept := s.folders[s.selected][:0]
	for _, m := range s.folders[s.selected] {
		if !m.deleted {
			kept = append(kept, m)
		}
	}
	s.folders[s.selected] = kept
	return nil
}

func (s *fakeSession) Create(name string) error {
	if _, ok := s.folders[name]; ok {
		return errors.New("folder already exists")
	}
	s.folders[name] = nil
	s.names = append(s.names, name)
	s.created = append(s.created, name)
	return nil
}

func (s *fakeSession) Append(folder string, date time.Time, msg []byte) error {
	if _, ok := s.folders[folder]; !ok {
		return errors.New("no such folder: " + folder)
	}
	s.uidNext++
	s.folders[folder] = append(s.folders[folder], &fakeMail{uid: s.uidNext, raw: msg, date: date})
	return nil
}

func (s *fakeSession) Logout() error { return nil }

// bufferFor wraps raw bytes as an imap.Literal.
func bufferFor(b []byte) imap.Literal { return bytes.NewBuffer(b) }

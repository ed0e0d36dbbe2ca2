package mailclient

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/sirupsen/logrus"

	"phishmail/config"
)

// Session is the slice of the mail protocol the engine consumes. The
// sync loop, relocator and mailer are written against it so tests can
// substitute a fake server.
type Session interface {
	Select(name string, readOnly bool) (*imap.MailboxStatus, error)
	Status(name string, items []imap.StatusItem) (*imap.MailboxStatus, error)
	List() ([]string, error)
	UIDSearch(criteria *imap.SearchCriteria) ([]uint32, error)
	UIDFetch(set *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error
	UIDCopy(set *imap.SeqSet, dest string) error
	UIDStore(set *imap.SeqSet, item imap.StoreItem, value interface{}) error
	Expunge() error
	Create(name string) error
	Append(folder string, date time.Time, msg []byte) error
	Logout() error
}

// Dialer opens a fresh authenticated session. Each poll cycle and each
// action handler dials its own connection and logs out when done.
type Dialer func() (Session, error)

// Conn adapts go-imap's client to the Session interface.
type Conn struct {
	c      *client.Client
	logger *logrus.Logger
}

// NewDialer builds a Dialer for the configured server.
func NewDialer(cfg *config.Config, logger *logrus.Logger) Dialer {
	return func() (Session, error) {
		return Dial(cfg, logger)
	}
}

// Dial connects and authenticates according to the configured
// encryption mode.
func Dial(cfg *config.Config, logger *logrus.Logger) (Session, error) {
	addr := fmt.Sprintf("%s:%d", cfg.IMAPHost, cfg.IMAPPort)

	var c *client.Client
	var err error
	switch strings.ToUpper(cfg.IMAPEncryption) {
	case "SSL", "TLS":
		c, err = client.DialTLS(addr, &tls.Config{
			ServerName: cfg.IMAPHost,
			MinVersion: tls.VersionTLS12,
		})
	case "STARTTLS":
		c, err = client.Dial(addr)
		if err == nil {
			err = c.StartTLS(&tls.Config{
				ServerName: cfg.IMAPHost,
				MinVersion: tls.VersionTLS12,
			})
		}
	default:
		c, err = client.Dial(addr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}

	if err := c.Login(cfg.IMAPUser, cfg.IMAPPass); err != nil {
		logger.WithError(err).Error("Failed to login to IMAP server")
		c.Logout() //nolint:errcheck
		return nil, fmt.Errorf("failed to login to IMAP server: %w", err)
	}

	logger.WithField("host", cfg.IMAPHost).Debug("Connected to IMAP server")
	return &Conn{c: c, logger: logger}, nil
}

func (s *Conn) Select(name string, readOnly bool) (*imap.MailboxStatus, error) {
	mbox, err := s.c.Select(name, readOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to select %q: %w", name, err)
	}
	return mbox, nil
}

func (s *Conn) Status(name string, items []imap.StatusItem) (*imap.MailboxStatus, error) {
	status, err := s.c.Status(name, items)
	if err != nil {
		return nil, fmt.Errorf("failed to get status of %q: %w", name, err)
	}
	return status, nil
}

func (s *Conn) List() ([]string, error) {
	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)
	go func() {
		done <- s.c.List("", "*", mailboxes)
	}()

	var names []string
	for m := range mailboxes {
		names = append(names, m.Name)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	return names, nil
}

func (s *Conn) UIDSearch(criteria *imap.SearchCriteria) ([]uint32, error) {
	return s.c.UidSearch(criteria)
}

func (s *Conn) UIDFetch(set *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error {
	return s.c.UidFetch(set, items, ch)
}

func (s *Conn) UIDCopy(set *imap.SeqSet, dest string) error {
	return s.c.UidCopy(set, dest)
}

func (s *Conn) UIDStore(set *imap.SeqSet, item imap.StoreItem, value interface{}) error {
	return s.c.UidStore(set, item, value, nil)
}

func (s *Conn) Expunge() error {
	return s.c.Expunge(nil)
}

func (s *Conn) Create(name string) error {
	return s.c.Create(name)
}

func (s *Conn) Append(folder string, date time.Time, msg []byte) error {
	return s.c.Append(folder, nil, date, bytes.NewBuffer(msg))
}

func (s *Conn) Logout() error {
	return s.c.Logout()
}

package remote

import (
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/sirupsen/logrus"

	"github.com/craftdesk/mailroom/internal/config"
	"github.com/craftdesk/mailroom/pkg/types"
)

// Session is a single authenticated connection to a remote mail store.
// Every orchestrator operation opens its own session and closes it when
// done; there is no pooling or reuse. All methods are blocking remote
// round-trips and perform no retries.
type Session struct {
	client *client.Client
	host   string
	logger *logrus.Logger
}

// Dial connects and authenticates against the remote mailbox described
// by cfg. The authentication timeout bounds both the TCP dial and every
// subsequent command round-trip.
func Dial(cfg *config.MailboxConfig, logger *logrus.Logger) (*Session, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	dialer := &net.Dialer{Timeout: cfg.AuthTimeout}

	var cl *client.Client
	var err error
	if cfg.UseTLS {
		cl, err = client.DialWithDialerTLS(dialer, addr, &tls.Config{
			ServerName:         cfg.Host,
			InsecureSkipVerify: cfg.TLSInsecure,
			MinVersion:         tls.VersionTLS12,
		})
	} else {
		cl, err = client.DialWithDialer(dialer, addr)
	}
	if err != nil {
		return nil, &ConnectionError{Host: cfg.Host, Err: err}
	}

	cl.Timeout = cfg.AuthTimeout

	if err := cl.Login(cfg.User, cfg.Password); err != nil {
		logger.WithError(err).WithField("host", cfg.Host).Error("Failed to login to mail server")
		cl.Logout() //nolint:errcheck
		return nil, &ConnectionError{Host: cfg.Host, Err: err}
	}

	logger.WithField("host", cfg.Host).Debug("Connected to mail server")
	return &Session{client: cl, host: cfg.Host, logger: logger}, nil
}

// Close logs out and drops the connection.
func (s *Session) Close() error {
	if s.client == nil {
		return nil
	}
	err := s.client.Logout()
	s.client = nil
	return err
}

// OpenFolder selects a folder for subsequent operations.
func (s *Session) OpenFolder(name string, readOnly bool) error {
	if _, err := s.client.Select(name, readOnly); err != nil {
		return &OpError{Op: "select", Err: err}
	}
	return nil
}

// Search returns the UIDs in the open folder matching the criteria.
// A zero since and unseenOnly=false matches all messages.
func (s *Session) Search(since time.Time, unseenOnly bool) ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	if !since.IsZero() {
		criteria.Since = since
	}
	if unseenOnly {
		criteria.WithoutFlags = []string{imap.SeenFlag}
	}

	uids, err := s.client.UidSearch(criteria)
	if err != nil {
		return nil, &OpError{Op: "search", Err: err}
	}
	return uids, nil
}

// Fetch retrieves the given UIDs from the open folder. The fetch profile
// controls whether the raw RFC822 body is downloaded alongside the
// envelope.
func (s *Session) Fetch(uids []uint32, profile types.FetchProfile) ([]*imap.Message, error) {
	if len(uids) == 0 {
		return nil, nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchFlags, imap.FetchInternalDate, imap.FetchUid}
	if profile != types.ProfileHeaders {
		items = append(items, imap.FetchRFC822)
	}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)

	go func() {
		done <- s.client.UidFetch(seqSet, items, messages)
	}()

	var out []*imap.Message
	for msg := range messages {
		out = append(out, msg)
	}

	if err := <-done; err != nil {
		return nil, &OpError{Op: "fetch", Err: err}
	}

	return out, nil
}

// SetFlag adds or removes a flag on a single message in the open folder.
func (s *Session) SetFlag(uid uint32, flag string, add bool) error {
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	op := imap.FlagsOp(imap.AddFlags)
	if !add {
		op = imap.FlagsOp(imap.RemoveFlags)
	}
	item := imap.FormatFlagsOp(op, true)

	if err := s.client.UidStore(seqSet, item, []interface{}{flag}, nil); err != nil {
		return &OpError{Op: "store", Err: err}
	}
	return nil
}

// Move moves a single message from the open folder to destFolder.
// Servers without MOVE support are handled by go-imap with a
// copy/flag/expunge sequence.
func (s *Session) Move(uid uint32, destFolder string) error {
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	if err := s.client.UidMove(seqSet, destFolder); err != nil {
		return &OpError{Op: "move", Err: err}
	}
	return nil
}

// CreateFolder creates a folder on the server.
func (s *Session) CreateFolder(name string) error {
	if err := s.client.Create(name); err != nil {
		return &OpError{Op: "create", Err: err}
	}
	return nil
}

// Expunge permanently removes messages flagged \Deleted from the open
// folder.
func (s *Session) Expunge() error {
	if err := s.client.Expunge(nil); err != nil {
		return &OpError{Op: "expunge", Err: err}
	}
	return nil
}

// ListFolders lists all folder names on the server.
func (s *Session) ListFolders() ([]string, error) {
	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)

	go func() {
		done <- s.client.List("", "*", mailboxes)
	}()

	var folders []string
	for m := range mailboxes {
		folders = append(folders, m.Name)
	}

	if err := <-done; err != nil {
		return nil, &OpError{Op: "list", Err: err}
	}

	return folders, nil
}

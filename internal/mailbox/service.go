// Package mailbox is the public face of the mail access layer. Each
// operation resolves the user's connection configuration, attempts the
// remote mailbox, and falls back to the simulated store on failure, so
// read operations never surface a hard error to the caller.
package mailbox

import (
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/sirupsen/logrus"

	"github.com/craftdesk/mailroom/internal/config"
	"github.com/craftdesk/mailroom/internal/normalize"
	"github.com/craftdesk/mailroom/internal/remote"
	"github.com/craftdesk/mailroom/internal/simstore"
	"github.com/craftdesk/mailroom/pkg/types"
)

const (
	seenFlag    = "\\Seen"
	deletedFlag = "\\Deleted"

	defaultRecentTTL = time.Minute
)

// RemoteSession is the per-operation connection surface the service
// depends on, satisfied by *remote.Session.
type RemoteSession interface {
	OpenFolder(name string, readOnly bool) error
	Search(since time.Time, unseenOnly bool) ([]uint32, error)
	Fetch(uids []uint32, profile types.FetchProfile) ([]*imap.Message, error)
	SetFlag(uid uint32, flag string, add bool) error
	Move(uid uint32, destFolder string) error
	CreateFolder(name string) error
	Expunge() error
	ListFolders() ([]string, error)
	Close() error
}

// DialFunc opens a session against a resolved mailbox configuration.
type DialFunc func(cfg *config.MailboxConfig) (RemoteSession, error)

// Service orchestrates mailbox operations across the remote client and
// the fallback store.
type Service struct {
	resolver *config.Resolver
	store    *simstore.Store
	norm     *normalize.Normalizer
	dial     DialFunc
	logger   *logrus.Logger

	recentMu  sync.Mutex
	recent    map[recentKey]*recentEntry
	recentTTL time.Duration
	now       func() time.Time
}

// NewService creates the orchestrator wired to the real remote client.
func NewService(resolver *config.Resolver, store *simstore.Store, norm *normalize.Normalizer, logger *logrus.Logger) *Service {
	return &Service{
		resolver: resolver,
		store:    store,
		norm:     norm,
		logger:   logger,
		dial: func(cfg *config.MailboxConfig) (RemoteSession, error) {
			return remote.Dial(cfg, logger)
		},
		recent:    make(map[recentKey]*recentEntry),
		recentTTL: defaultRecentTTL,
		now:       time.Now,
	}
}

// SetDialer replaces the session dialer.
func (s *Service) SetDialer(dial DialFunc) {
	s.dial = dial
}

// useCache reports whether an operation should skip the remote path
// entirely: simulated mode, or the spam folder, which is always served
// from the store to avoid remote cost.
func useCache(cfg *config.MailboxConfig, folder string) bool {
	return cfg.UseSimulated || types.SameFolder(folder, types.FolderSpam)
}

func defaultFolder(folder string) string {
	if folder == "" {
		return types.FolderInbox
	}
	return folder
}

// ListMessages returns messages for a folder. On remote failure it
// falls back to the seeded store; the primary support mailbox gets one
// simplified headers-only retry before falling back.
func (s *Service) ListMessages(userID string, opts types.FetchOptions) []*types.EmailMessage {
	opts.Folder = defaultFolder(opts.Folder)
	cfg := s.resolver.Resolve(userID)

	if useCache(cfg, opts.Folder) {
		return s.listFromStore(userID, opts)
	}

	msgs, err := s.fetchRemote(cfg, opts)
	if err == nil {
		return msgs
	}
	s.logger.WithError(err).WithFields(logrus.Fields{
		"user_id": userID,
		"folder":  opts.Folder,
	}).Warn("Remote mailbox fetch failed")

	if userID == config.PrimarySupportUserID {
		simplified := types.FetchOptions{Folder: opts.Folder, Profile: types.ProfileHeaders, Limit: opts.Limit}
		if msgs, err := s.fetchRemote(cfg, simplified); err == nil {
			return msgs
		}
		s.logger.WithField("user_id", userID).Warn("Simplified support mailbox retry failed")
	}

	return s.listFromStore(userID, opts)
}

// fetchRemote is the remote list pipeline: dial, select, search, fetch,
// normalize. Failures are returned, never recovered here.
func (s *Service) fetchRemote(cfg *config.MailboxConfig, opts types.FetchOptions) ([]*types.EmailMessage, error) {
	sess, err := s.dial(cfg)
	if err != nil {
		return nil, err
	}
	defer sess.Close() //nolint:errcheck

	if err := sess.OpenFolder(opts.Folder, true); err != nil {
		return nil, err
	}

	uids, err := sess.Search(opts.Since, opts.UnseenOnly)
	if err != nil {
		return nil, err
	}
	if opts.Limit > 0 && len(uids) > opts.Limit {
		uids = uids[len(uids)-opts.Limit:]
	}

	raw, err := sess.Fetch(uids, opts.Profile)
	if err != nil {
		return nil, err
	}

	msgs := make([]*types.EmailMessage, 0, len(raw))
	for _, m := range raw {
		msgs = append(msgs, s.norm.FromIMAP(m, opts.Folder, opts.Profile))
	}
	sortNewestFirst(msgs)
	return msgs, nil
}

// listFromStore serves a list operation from the fallback dataset,
// honoring the same filters as the remote path.
func (s *Service) listFromStore(userID string, opts types.FetchOptions) []*types.EmailMessage {
	msgs := s.store.GetOrInit(userID, opts.Folder)

	out := make([]*types.EmailMessage, 0, len(msgs))
	for _, m := range msgs {
		if opts.UnseenOnly && m.IsRead {
			continue
		}
		if !opts.Since.IsZero() && m.Date.Before(opts.Since) {
			continue
		}
		out = append(out, m)
	}
	sortNewestFirst(out)
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}

// ListFolders returns the folder names for the user's mailbox, or the
// fixed well-known set when the remote is unavailable.
func (s *Service) ListFolders(userID string) []string {
	cfg := s.resolver.Resolve(userID)
	if !cfg.UseSimulated {
		if sess, err := s.dial(cfg); err == nil {
			defer sess.Close() //nolint:errcheck
			if folders, err := sess.ListFolders(); err == nil {
				return folders
			} else {
				s.logger.WithError(err).WithField("user_id", userID).Warn("Remote folder listing failed")
			}
		} else {
			s.logger.WithError(err).WithField("user_id", userID).Warn("Remote mailbox connection failed")
		}
	}
	return []string{types.FolderInbox, types.FolderSent, types.FolderSpam, types.FolderTrash}
}

// MarkMessage sets the read state of a message. Remote failures fall
// back to the store.
func (s *Service) MarkMessage(userID, messageID string, isRead bool, folder string) bool {
	folder = defaultFolder(folder)
	cfg := s.resolver.Resolve(userID)

	if !useCache(cfg, folder) {
		if uid, ok := parseUID(messageID); ok {
			done, fellBack := s.markRemote(cfg, folder, uid, isRead)
			if !fellBack {
				return done
			}
			s.logger.WithField("user_id", userID).Warn("Remote mark failed, using fallback store")
		}
	}

	return s.store.MarkRead(userID, folder, messageID, isRead)
}

// markRemote returns (result, fellBack). fellBack is true only for
// connection-level failures; a protocol failure is a final false.
func (s *Service) markRemote(cfg *config.MailboxConfig, folder string, uid uint32, isRead bool) (bool, bool) {
	sess, err := s.dial(cfg)
	if err != nil {
		return false, true
	}
	defer sess.Close() //nolint:errcheck

	if err := sess.OpenFolder(folder, false); err != nil {
		return false, isConnectionError(err)
	}
	if err := sess.SetFlag(uid, seenFlag, isRead); err != nil {
		s.logger.WithError(err).Warn("Remote flag update failed")
		return false, isConnectionError(err)
	}
	return true, false
}

// MoveMessage moves a message between folders. A failed remote move is
// retried after creating the destination folder; connection failures
// fall back to the store.
func (s *Service) MoveMessage(userID, messageID, destFolder, sourceFolder string) bool {
	sourceFolder = defaultFolder(sourceFolder)
	cfg := s.resolver.Resolve(userID)

	if !useCache(cfg, sourceFolder) {
		if uid, ok := parseUID(messageID); ok {
			done, fellBack := s.moveRemote(cfg, sourceFolder, uid, destFolder)
			if !fellBack {
				return done
			}
			s.logger.WithField("user_id", userID).Warn("Remote move failed, using fallback store")
		}
	}

	return s.store.Move(userID, sourceFolder, messageID, destFolder)
}

func (s *Service) moveRemote(cfg *config.MailboxConfig, folder string, uid uint32, destFolder string) (bool, bool) {
	sess, err := s.dial(cfg)
	if err != nil {
		return false, true
	}
	defer sess.Close() //nolint:errcheck

	if err := sess.OpenFolder(folder, false); err != nil {
		return false, isConnectionError(err)
	}

	err = sess.Move(uid, destFolder)
	if err == nil {
		return true, false
	}
	if isConnectionError(err) {
		return false, true
	}

	// The destination may not exist yet; create it and retry once.
	if cerr := sess.CreateFolder(destFolder); cerr == nil {
		if err := sess.Move(uid, destFolder); err == nil {
			return true, false
		}
	}

	// Last alternative, trash-bound moves only: flag deleted and
	// expunge from the source. A generic move must never destroy the
	// message without landing it in the destination.
	if types.SameFolder(destFolder, types.FolderTrash) {
		if err := sess.SetFlag(uid, deletedFlag, true); err == nil {
			if err := sess.Expunge(); err == nil {
				return true, false
			}
		}
	}

	s.logger.WithError(err).WithField("dest", destFolder).Warn("All remote move strategies failed")
	return false, false
}

// DeleteMessage soft-deletes into trash, or permanently removes when
// the message is already in trash.
func (s *Service) DeleteMessage(userID, messageID, folder string) bool {
	folder = defaultFolder(folder)
	cfg := s.resolver.Resolve(userID)

	if !useCache(cfg, folder) {
		if uid, ok := parseUID(messageID); ok {
			done, fellBack := s.deleteRemote(cfg, folder, uid)
			if !fellBack {
				return done
			}
			s.logger.WithField("user_id", userID).Warn("Remote delete failed, using fallback store")
		}
	}

	return s.store.Delete(userID, folder, messageID)
}

func (s *Service) deleteRemote(cfg *config.MailboxConfig, folder string, uid uint32) (bool, bool) {
	if types.SameFolder(folder, types.FolderTrash) {
		// Already in trash: flag deleted and expunge for good.
		sess, err := s.dial(cfg)
		if err != nil {
			return false, true
		}
		defer sess.Close() //nolint:errcheck

		if err := sess.OpenFolder(folder, false); err != nil {
			return false, isConnectionError(err)
		}
		if err := sess.SetFlag(uid, deletedFlag, true); err != nil {
			return false, isConnectionError(err)
		}
		if err := sess.Expunge(); err != nil {
			return false, isConnectionError(err)
		}
		return true, false
	}

	return s.moveRemote(cfg, folder, uid, types.FolderTrash)
}

// GetMessageContent retrieves a single full message, marking it read as
// a side effect. Returns nil when the message cannot be found anywhere.
func (s *Service) GetMessageContent(userID, messageID, folder string) *types.EmailMessage {
	folder = defaultFolder(folder)
	cfg := s.resolver.Resolve(userID)

	if !useCache(cfg, folder) {
		if uid, ok := parseUID(messageID); ok {
			if msg, err := s.contentRemote(cfg, folder, uid); err == nil {
				return msg
			} else {
				s.logger.WithError(err).WithFields(logrus.Fields{
					"user_id":    userID,
					"message_id": messageID,
				}).Warn("Remote content fetch failed")
			}
		}
	}

	return s.store.GetContent(userID, folder, messageID)
}

func (s *Service) contentRemote(cfg *config.MailboxConfig, folder string, uid uint32) (*types.EmailMessage, error) {
	sess, err := s.dial(cfg)
	if err != nil {
		return nil, err
	}
	defer sess.Close() //nolint:errcheck

	if err := sess.OpenFolder(folder, false); err != nil {
		return nil, err
	}

	raw, err := sess.Fetch([]uint32{uid}, types.ProfileFull)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, &remote.OpError{Op: "fetch", Err: errors.New("message not found")}
	}

	msg := s.norm.FromIMAP(raw[0], folder, types.ProfileFull)
	// A non-peek body fetch marks the message seen on the server.
	msg.IsRead = true
	msg.AddFlag(seenFlag)
	return msg, nil
}

func parseUID(messageID string) (uint32, bool) {
	uid, err := strconv.ParseUint(messageID, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(uid), true
}

func isConnectionError(err error) bool {
	var connErr *remote.ConnectionError
	return errors.As(err, &connErr)
}

func sortNewestFirst(msgs []*types.EmailMessage) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Date.After(msgs[j].Date)
	})
}

package mailbox

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/craftdesk/mailroom/pkg/types"
)

type recentKey struct {
	userID string
	folder string
}

type recentEntry struct {
	messages  []*types.EmailMessage
	fetchedAt time.Time
}

// SetRecentTTL adjusts the staleness window of the recent-messages
// read-through cache.
func (s *Service) SetRecentTTL(ttl time.Duration) {
	s.recentTTL = ttl
}

// ListRecentMessages is the polling-oriented list variant. Frequent
// callers are served from a short-lived read-through cache; on remote
// failure a stale previous result is preferred over the synthetic
// dataset, which is used only when no successful fetch ever happened.
func (s *Service) ListRecentMessages(userID, folder string, limit int) []*types.EmailMessage {
	folder = defaultFolder(folder)
	k := recentKey{userID: userID, folder: strings.ToLower(folder)}

	s.recentMu.Lock()
	entry := s.recent[k]
	if entry != nil && s.now().Sub(entry.fetchedAt) < s.recentTTL {
		msgs := entry.messages
		s.recentMu.Unlock()
		return msgs
	}
	s.recentMu.Unlock()

	cfg := s.resolver.Resolve(userID)
	if useCache(cfg, folder) {
		return s.listFromStore(userID, types.FetchOptions{Folder: folder, Limit: limit})
	}

	opts := types.FetchOptions{Folder: folder, Profile: types.ProfileHeaders, Limit: limit}
	msgs, err := s.fetchRemote(cfg, opts)
	if err == nil {
		s.recentMu.Lock()
		s.recent[k] = &recentEntry{messages: msgs, fetchedAt: s.now()}
		s.recentMu.Unlock()
		return msgs
	}

	s.logger.WithError(err).WithFields(logrus.Fields{
		"user_id": userID,
		"folder":  folder,
	}).Warn("Recent messages fetch failed")

	if entry != nil {
		return entry.messages
	}
	return s.listFromStore(userID, types.FetchOptions{Folder: folder, Limit: limit})
}

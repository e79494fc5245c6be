// Package simstore is the process-wide fallback dataset for mailbox
// operations: a per-user, per-folder in-memory message store seeded with
// synthetic data on first access. It backs simulated mode and serves as
// the last-resort data source when the remote mailbox is unreachable.
package simstore

import (
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/craftdesk/mailroom/pkg/types"
)

type folderKey struct {
	userID string
	folder string
}

// Store owns the (userID, folder) -> message sequence mapping. Entries
// are created lazily, mutated in place, and live for the process
// lifetime; there is no eviction.
type Store struct {
	mu      sync.Mutex
	folders map[folderKey][]*types.EmailMessage
	rng     *rand.Rand
	now     func() time.Time
	logger  *logrus.Logger
}

// New creates a store with time-derived randomness for seed data.
func New(logger *logrus.Logger) *Store {
	return NewWithSeed(logger, time.Now().UnixNano())
}

// NewWithSeed creates a store whose synthetic datasets derive from a
// fixed seed, making the generated content exactly reproducible.
func NewWithSeed(logger *logrus.Logger, seed int64) *Store {
	return &Store{
		folders: make(map[folderKey][]*types.EmailMessage),
		rng:     rand.New(rand.NewSource(seed)),
		now:     time.Now,
		logger:  logger,
	}
}

func key(userID, folder string) folderKey {
	return folderKey{userID: userID, folder: strings.ToLower(strings.TrimSpace(folder))}
}

// GetOrInit returns the messages for a user folder, seeding a synthetic
// dataset on first access. The returned slice is a snapshot; the
// message records themselves stay live and mutable.
func (s *Store) GetOrInit(userID, folder string) []*types.EmailMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.getOrInitLocked(userID, folder)
	out := make([]*types.EmailMessage, len(msgs))
	copy(out, msgs)
	return out
}

func (s *Store) getOrInitLocked(userID, folder string) []*types.EmailMessage {
	k := key(userID, folder)
	if msgs, ok := s.folders[k]; ok {
		return msgs
	}

	msgs := s.seedFolder(userID, folder)
	s.folders[k] = msgs
	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"folder":  folder,
		"count":   len(msgs),
	}).Debug("Seeded fallback folder")
	return msgs
}

// findLocked locates a message by its id within a folder. Both the
// stable id and the string form of the UID are accepted.
func (s *Store) findLocked(userID, folder, messageID string) (int, *types.EmailMessage) {
	for i, m := range s.getOrInitLocked(userID, folder) {
		if m.ID == messageID || strconv.FormatUint(uint64(m.UID), 10) == messageID {
			return i, m
		}
	}
	return -1, nil
}

// MarkRead sets the read state of a message, keeping the flag set in
// sync. Returns false when the message is not in the folder.
func (s *Store) MarkRead(userID, folder, messageID string, isRead bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, msg := s.findLocked(userID, folder, messageID)
	if msg == nil {
		return false
	}

	msg.IsRead = isRead
	if isRead {
		msg.AddFlag(seenFlag)
	} else {
		msg.RemoveFlag(seenFlag)
	}
	return true
}

// Move removes a message from the source folder and prepends it to the
// destination folder, so moved messages surface newest-first. Returns
// false when the message is not in the source folder.
func (s *Store) Move(userID, folder, messageID, destFolder string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moveLocked(userID, folder, messageID, destFolder)
}

func (s *Store) moveLocked(userID, folder, messageID, destFolder string) bool {
	i, msg := s.findLocked(userID, folder, messageID)
	if msg == nil {
		return false
	}

	src := key(userID, folder)
	s.folders[src] = append(s.folders[src][:i], s.folders[src][i+1:]...)

	msg.Folder = destFolder
	dst := key(userID, destFolder)
	dstMsgs := s.getOrInitLocked(userID, destFolder)
	s.folders[dst] = append([]*types.EmailMessage{msg}, dstMsgs...)
	return true
}

// Delete removes a message. Inside the trash folder the removal is
// permanent; anywhere else it is a soft delete into trash.
func (s *Store) Delete(userID, folder, messageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if types.SameFolder(folder, types.FolderTrash) {
		i, msg := s.findLocked(userID, folder, messageID)
		if msg == nil {
			return false
		}
		k := key(userID, folder)
		s.folders[k] = append(s.folders[k][:i], s.folders[k][i+1:]...)
		return true
	}

	return s.moveLocked(userID, folder, messageID, types.FolderTrash)
}

// GetContent returns a single message by id and, mirroring remote
// mailbox semantics where opening a message marks it seen, flips it to
// read as a side effect.
func (s *Store) GetContent(userID, folder, messageID string) *types.EmailMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, msg := s.findLocked(userID, folder, messageID)
	if msg == nil {
		return nil
	}

	msg.IsRead = true
	msg.AddFlag(seenFlag)
	return msg
}

// Package normalize converts raw protocol/MIME fragments into canonical
// email message records. Every field resolution has a terminal fallback:
// a malformed message degrades to placeholders, it never fails the batch.
package normalize

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/craftdesk/mailroom/pkg/types"
)

const (
	seenFlag    = "\\Seen"
	flaggedFlag = "\\Flagged"

	snippetLength = 200
)

// junkFlags are provider-specific spam markers.
var junkFlags = []string{"junk", "$junk", "\\junk", "$phishing"}

// Normalizer builds canonical message records from raw fragments.
type Normalizer struct {
	logger *logrus.Logger
	now    func() time.Time
}

// New creates a normalizer.
func New(logger *logrus.Logger) *Normalizer {
	return &Normalizer{
		logger: logger,
		now:    time.Now,
	}
}

// Normalize resolves a raw message into a canonical record. It never
// fails: sender, subject and date all terminate in fixed fallbacks.
func (n *Normalizer) Normalize(raw *RawMessage, profile types.FetchProfile) *types.EmailMessage {
	msg := &types.EmailMessage{
		UID:        raw.UID,
		Folder:     raw.Folder,
		From:       resolveSender(raw.Sender),
		To:         addressList(raw.To),
		Cc:         addressList(raw.Cc),
		Subject:    resolveSubject(raw.Subject),
		Date:       resolveDate(raw.DateStrings, raw.InternalDate, raw.Body, n.now),
		Flags:      append([]string(nil), raw.Flags...),
		ThreadID:   raw.MessageID,
		InReplyTo:  raw.InReplyTo,
		References: append([]string(nil), raw.References...),
	}

	msg.ID = stableID(raw)
	msg.IsRead = msg.HasFlag(seenFlag)
	msg.IsSpam = isSpam(msg)

	if profile != types.ProfileHeaders && len(raw.Body) > 0 {
		n.parseBody(msg, raw.Body, profile)
	}

	return msg
}

// stableID derives an id that is stable per folder: the Message-ID when
// one exists, otherwise folder-qualified UID.
func stableID(raw *RawMessage) string {
	if raw.MessageID != "" {
		return raw.MessageID
	}
	return raw.Folder + ":" + strconv.FormatUint(uint64(raw.UID), 10)
}

func addressList(entries []RawEntry) []types.Address {
	if len(entries) == 0 {
		return nil
	}
	return senderFromList(RawValue{List: entries})
}

// isSpam applies the spam heuristic: a flagged/junk protocol flag, or
// the literal token "spam" in the normalized subject.
func isSpam(msg *types.EmailMessage) bool {
	for _, f := range msg.Flags {
		lf := strings.ToLower(f)
		if lf == strings.ToLower(flaggedFlag) {
			return true
		}
		for _, junk := range junkFlags {
			if lf == junk {
				return true
			}
		}
	}
	return strings.Contains(strings.ToLower(msg.Subject), "spam")
}

// Snippet derives a short preview from a text body. Truncation happens
// on a rune boundary so the preview stays valid UTF-8.
func Snippet(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= snippetLength {
		return text
	}
	cut := snippetLength
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}

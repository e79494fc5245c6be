package types

import (
	"strings"
	"time"
)

// Well-known folder names. Provider-reported names are matched
// case-insensitively, so comparisons must go through SameFolder.
const (
	FolderInbox = "INBOX"
	FolderSent  = "[Gmail]/Sent Mail"
	FolderSpam  = "Spam"
	FolderTrash = "Trash"
)

// SameFolder compares two folder names the way providers report them.
func SameFolder(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// FetchProfile selects which parts of a message are retrieved.
type FetchProfile int

const (
	// ProfileHeaders fetches envelope, flags and dates only.
	ProfileHeaders FetchProfile = iota
	// ProfileBody additionally fetches and parses the message body.
	ProfileBody
	// ProfileFull fetches everything, including attachment content.
	ProfileFull
)

// FetchOptions are the per-call parameters for a list operation.
type FetchOptions struct {
	Folder     string       `json:"folder"`
	UnseenOnly bool         `json:"unseen_only"`
	Since      time.Time    `json:"since,omitempty"`
	Profile    FetchProfile `json:"profile"`
	Limit      int          `json:"limit"`
}

// Address is a single mailbox identity.
type Address struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Attachment describes one attachment of a message. Content is populated
// only on full single-message retrieval, never on list operations.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	ContentID   string `json:"content_id,omitempty"`
	Content     []byte `json:"-"`
}

// EmailMessage is the canonical message record exchanged with callers.
//
// Normalization guarantees: Subject is never empty, From always has at
// least one entry, and Date is always a resolved timestamp.
type EmailMessage struct {
	ID             string       `json:"id"`
	UID            uint32       `json:"uid"`
	Folder         string       `json:"folder"`
	Subject        string       `json:"subject"`
	From           []Address    `json:"from"`
	To             []Address    `json:"to,omitempty"`
	Cc             []Address    `json:"cc,omitempty"`
	Date           time.Time    `json:"date"`
	Text           string       `json:"text,omitempty"`
	HTML           string       `json:"html,omitempty"`
	Snippet        string       `json:"snippet,omitempty"`
	HasAttachments bool         `json:"has_attachments"`
	Attachments    []Attachment `json:"attachments,omitempty"`
	IsRead         bool         `json:"is_read"`
	IsSpam         bool         `json:"is_spam"`
	Flags          []string     `json:"flags,omitempty"`
	ThreadID       string       `json:"thread_id,omitempty"`
	InReplyTo      string       `json:"in_reply_to,omitempty"`
	References     []string     `json:"references,omitempty"`
}

// HasFlag reports whether the message carries the given protocol flag.
func (m *EmailMessage) HasFlag(flag string) bool {
	for _, f := range m.Flags {
		if strings.EqualFold(f, flag) {
			return true
		}
	}
	return false
}

// AddFlag adds a protocol flag if not already present.
func (m *EmailMessage) AddFlag(flag string) {
	if !m.HasFlag(flag) {
		m.Flags = append(m.Flags, flag)
	}
}

// RemoveFlag removes a protocol flag if present.
func (m *EmailMessage) RemoveFlag(flag string) {
	out := m.Flags[:0]
	for _, f := range m.Flags {
		if !strings.EqualFold(f, flag) {
			out = append(out, f)
		}
	}
	m.Flags = out
}

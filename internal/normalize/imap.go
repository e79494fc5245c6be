package normalize

import (
	"bytes"
	"io"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/jaytaylor/html2text"
	"github.com/jhillyerd/enmime"

	"github.com/craftdesk/mailroom/pkg/types"
)

// FromIMAP converts a fetched IMAP message into a canonical record. A
// message with a missing or unparseable envelope still normalizes; the
// field fallbacks fill the gaps.
func (n *Normalizer) FromIMAP(msg *imap.Message, folder string, profile types.FetchProfile) *types.EmailMessage {
	raw := &RawMessage{
		UID:          msg.Uid,
		Folder:       folder,
		InternalDate: msg.InternalDate,
		Flags:        msg.Flags,
	}

	if env := msg.Envelope; env != nil {
		raw.Sender = RawValue{List: imapEntries(env.From)}
		if len(raw.Sender.List) == 0 {
			raw.Sender = RawValue{List: imapEntries(env.Sender)}
		}
		raw.To = imapEntries(env.To)
		raw.Cc = imapEntries(env.Cc)
		raw.Subject = RawValue{Text: env.Subject}
		if !env.Date.IsZero() {
			raw.InternalDate = env.Date
		}
		raw.MessageID = env.MessageId
		raw.InReplyTo = env.InReplyTo
	}

	if profile != types.ProfileHeaders {
		raw.Body = readBodySection(msg, n)
	}

	return n.Normalize(raw, profile)
}

func imapEntries(addrs []*imap.Address) []RawEntry {
	var out []RawEntry
	for _, a := range addrs {
		if a == nil {
			continue
		}
		out = append(out, RawEntry{Name: a.PersonalName, Address: a.Address()})
	}
	return out
}

// readBodySection pulls the raw RFC822 bytes out of the fetch response.
// Servers disagree on which section key carries the literal, so probe
// the nil key, the empty section name, then anything available.
func readBodySection(msg *imap.Message, n *Normalizer) []byte {
	if msg.Body == nil {
		return nil
	}

	if literal, ok := msg.Body[nil]; ok {
		return readLiteral(literal, n)
	}

	emptySection := &imap.BodySectionName{}
	if literal, ok := msg.Body[emptySection]; ok {
		return readLiteral(literal, n)
	}

	for _, literal := range msg.Body {
		if b := readLiteral(literal, n); len(b) > 0 {
			return b
		}
	}
	return nil
}

func readLiteral(literal imap.Literal, n *Normalizer) []byte {
	if literal == nil {
		return nil
	}
	body, err := io.ReadAll(literal)
	if err != nil {
		n.logger.WithError(err).Error("Error reading message literal")
	}
	return body
}

// parseBody parses the raw RFC822 bytes with enmime and fills the body
// and attachment fields. A MIME parse failure degrades to treating the
// bytes as plain text.
func (n *Normalizer) parseBody(msg *types.EmailMessage, body []byte, profile types.FetchProfile) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(body))
	if err != nil {
		n.logger.WithError(err).WithField("id", msg.ID).Debug("Failed to parse MIME, using raw body")
		msg.Text = string(body)
		msg.Snippet = Snippet(msg.Text)
		return
	}

	msg.Text = env.Text
	msg.HTML = env.HTML

	if msg.Text == "" && msg.HTML != "" {
		if text, err := html2text.FromString(msg.HTML, html2text.Options{TextOnly: true}); err == nil {
			msg.Text = text
		}
	}
	msg.Snippet = Snippet(msg.Text)

	if refs := env.GetHeader("References"); refs != "" && len(msg.References) == 0 {
		msg.References = splitReferences(refs)
	}

	for _, part := range env.Attachments {
		att := types.Attachment{
			Filename:    part.FileName,
			ContentType: part.ContentType,
			Size:        len(part.Content),
			ContentID:   part.ContentID,
		}
		if att.Filename == "" {
			att.Filename = "unnamed"
		}
		if att.ContentType == "" {
			att.ContentType = "application/octet-stream"
		}
		// Content bytes travel only on full single-message retrieval.
		if profile == types.ProfileFull {
			att.Content = part.Content
		}
		msg.Attachments = append(msg.Attachments, att)
	}
	msg.HasAttachments = len(msg.Attachments) > 0
}

func splitReferences(header string) []string {
	return strings.Fields(header)
}

package normalize

import (
	"mime"
	"regexp"
	"strings"
	"time"

	"github.com/craftdesk/mailroom/pkg/types"
)

// Raw message fragments arrive in several loosely typed shapes depending
// on protocol, provider and MIME quality. RawValue models exactly those
// shapes: a structured address list, a bare string, or a generic field
// map probed for well-known sub-fields. An empty RawValue means the
// fragment was absent.
type RawValue struct {
	Text   string
	List   []RawEntry
	Fields map[string]string
}

// RawEntry is one entry of a structured address list.
type RawEntry struct {
	Name    string
	Address string
}

// RawMessage carries everything pulled off the wire for one message
// before normalization.
type RawMessage struct {
	UID          uint32
	Folder       string
	Sender       RawValue
	To           []RawEntry
	Cc           []RawEntry
	Subject      RawValue
	DateStrings  []string // candidate date headers, in resolution order
	InternalDate time.Time
	Body         []byte // raw RFC822 bytes, may be nil
	Flags        []string
	MessageID    string
	InReplyTo    string
	References   []string
}

const (
	placeholderSubject = "(no subject)"
	placeholderName    = "Unknown Sender"
	placeholderAddress = "no-reply@unknown.invalid"
)

// senderExtractor attempts to produce a sender list from one raw shape.
// Returning an empty slice means "try the next extractor".
type senderExtractor func(RawValue) []types.Address

var senderExtractors = []senderExtractor{
	senderFromList,
	senderFromText,
	senderFromFields,
}

// resolveSender runs the ordered extractor chain; the terminal fallback
// is a single placeholder identity, so the result is never empty.
func resolveSender(raw RawValue) []types.Address {
	for _, extract := range senderExtractors {
		if out := extract(raw); len(out) > 0 {
			return out
		}
	}
	return []types.Address{{Name: placeholderName, Address: placeholderAddress}}
}

func senderFromList(raw RawValue) []types.Address {
	var out []types.Address
	for _, e := range raw.List {
		addr := strings.TrimSpace(e.Address)
		if addr == "" && strings.TrimSpace(e.Name) == "" {
			continue
		}
		name := strings.TrimSpace(e.Name)
		if name == "" {
			name = nameFromAddress(addr)
		}
		if addr == "" {
			addr = placeholderAddress
		}
		out = append(out, types.Address{Name: name, Address: addr})
	}
	return out
}

func senderFromText(raw RawValue) []types.Address {
	addr := strings.TrimSpace(raw.Text)
	if addr == "" {
		return nil
	}
	// "Name <addr>" forms show up in malformed headers too.
	if i := strings.IndexByte(addr, '<'); i >= 0 {
		name := strings.TrimSpace(strings.Trim(addr[:i], `" `))
		inner := strings.TrimSpace(strings.Trim(addr[i:], "<>"))
		if inner != "" {
			if name == "" {
				name = nameFromAddress(inner)
			}
			return []types.Address{{Name: name, Address: inner}}
		}
	}
	return []types.Address{{Name: nameFromAddress(addr), Address: addr}}
}

func senderFromFields(raw RawValue) []types.Address {
	if raw.Fields == nil {
		return nil
	}
	for _, key := range []string{"address", "value", "text"} {
		if v := strings.TrimSpace(raw.Fields[key]); v != "" {
			return []types.Address{{Name: nameFromAddress(v), Address: v}}
		}
	}
	return nil
}

// nameFromAddress synthesizes a display name from the local part of an
// address, capitalized.
func nameFromAddress(addr string) string {
	local := addr
	if i := strings.IndexByte(addr, '@'); i >= 0 {
		local = addr[:i]
	}
	local = strings.TrimSpace(local)
	if local == "" {
		return placeholderName
	}
	return strings.ToUpper(local[:1]) + local[1:]
}

// encodedWordRE matches MIME encoded-word tokens (RFC 2047).
var encodedWordRE = regexp.MustCompile(`=\?[^? ]+\?[bqBQ]\?[^? ]*\?=`)

// decodeEncodedWords opportunistically decodes encoded-word tokens in a
// subject. Tokens that fail to decode are left intact rather than
// failing the whole subject.
func decodeEncodedWords(s string) string {
	dec := new(mime.WordDecoder)
	return encodedWordRE.ReplaceAllStringFunc(s, func(token string) string {
		decoded, err := dec.Decode(token)
		if err != nil {
			return token
		}
		return decoded
	})
}

// resolveSubject runs the subject resolution chain: plain string with
// opportunistic encoded-word decoding, then field probing, then the
// fixed placeholder. The result is never empty.
func resolveSubject(raw RawValue) string {
	if s := strings.TrimSpace(raw.Text); s != "" {
		if decoded := strings.TrimSpace(decodeEncodedWords(s)); decoded != "" {
			return decoded
		}
	}
	if raw.Fields != nil {
		for _, key := range []string{"text", "value"} {
			if v := strings.TrimSpace(raw.Fields[key]); v != "" {
				if decoded := strings.TrimSpace(decodeEncodedWords(v)); decoded != "" {
					return decoded
				}
			}
		}
	}
	return placeholderSubject
}

// bodyDateRE finds a "Date:" header line inside a raw message body, the
// last-resort date source.
var bodyDateRE = regexp.MustCompile(`(?mi)^Date:\s*(.+?)\s*$`)

var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
	"2006-01-02 15:04:05",
}

// parseDate parses one date candidate, skipping values that produce an
// invalid timestamp.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil && !t.IsZero() {
			return t, true
		}
	}
	return time.Time{}, false
}

// resolveDate tries, in order: the candidate header strings, the
// protocol-assigned internal date, and a scan of the raw body for a
// Date: line. A nil result from every source yields now().
func resolveDate(candidates []string, internal time.Time, body []byte, now func() time.Time) time.Time {
	for _, c := range candidates {
		if t, ok := parseDate(c); ok {
			return t
		}
	}
	if !internal.IsZero() {
		return internal
	}
	if len(body) > 0 {
		if m := bodyDateRE.FindSubmatch(body); m != nil {
			if t, ok := parseDate(string(m[1])); ok {
				return t
			}
		}
	}
	return now()
}

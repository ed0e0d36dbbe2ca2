package mailclient

import (
	"bytes"
	"io"
	netmail "net/mail"
	"strings"

	"github.com/emersion/go-message/mail"
	"github.com/jhillyerd/enmime"

	"phishmail/models"
)

// Placeholders for headers a malformed message failed to provide. A
// message is never dropped from a snapshot because it didn't parse.
const (
	NoSubject     = "(no subject)"
	UnknownSender = "Unknown"
)

// Summarize converts one raw protocol message into a normalized
// summary. It is total and deterministic: the same bytes always
// produce the same summary for a given UID, and it never fails:
// unparseable fields degrade to placeholders.
func Summarize(uid uint32, raw []byte) models.MessageSummary {
	sum := models.MessageSummary{
		UID:        uid,
		SenderName: UnknownSender,
		Subject:    NoSubject,
	}

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		// go-message rejected the message outright; fall back to the
		// more forgiving enmime parse before giving up on the fields.
		summarizeLenient(&sum, raw)
		return sum
	}

	header := mr.Header
	if subject, err := header.Subject(); err == nil && subject != "" {
		sum.Subject = subject
	}
	if from, err := header.Text("From"); err == nil && from != "" {
		sum.SenderName, sum.SenderEmail = splitAddress(from)
	} else if from := header.Get("From"); from != "" {
		sum.SenderName, sum.SenderEmail = splitAddress(from)
	}
	if to, err := header.Text("To"); err == nil && to != "" {
		sum.RecipientName, sum.RecipientEmail = splitAddress(firstAddress(to))
	}
	if id, err := header.MessageID(); err == nil {
		sum.MessageID = id
	}
	sum.Date = header.Get("Date")
	sum.Timestamp = parseTimestamp(sum.Date)

	ct, _, _ := header.ContentType()
	multipart := strings.HasPrefix(ct, "multipart/")

	var firstInline string
	haveInline := false
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		} else if err != nil {
			// A broken part doesn't discard what was already read.
			break
		}

		switch h := p.Header.(type) {
		case *mail.InlineHeader:
			partType, _, _ := h.ContentType()
			b, err := io.ReadAll(p.Body)
			if err != nil {
				continue
			}
			if !haveInline {
				firstInline = string(b)
				haveInline = true
			}
			if sum.Body == "" && strings.Contains(partType, "text/plain") {
				sum.Body = string(b)
			}
		case *mail.AttachmentHeader:
			if filename, err := h.Filename(); err == nil && filename != "" {
				sum.AttachmentNames = append(sum.AttachmentNames, filename)
			}
		}
	}

	// A non-multipart message's entire content is the body even when
	// its content type isn't text/plain.
	if sum.Body == "" && !multipart && haveInline {
		sum.Body = firstInline
	}

	return sum
}

// summarizeLenient fills in whatever enmime can still recover from a
// message go-message refused to read.
func summarizeLenient(sum *models.MessageSummary, raw []byte) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return
	}
	if subject := env.GetHeader("Subject"); subject != "" {
		sum.Subject = subject
	}
	if from := env.GetHeader("From"); from != "" {
		sum.SenderName, sum.SenderEmail = splitAddress(from)
	}
	if to := env.GetHeader("To"); to != "" {
		sum.RecipientName, sum.RecipientEmail = splitAddress(firstAddress(to))
	}
	sum.MessageID = strings.Trim(env.GetHeader("Message-Id"), "<>")
	sum.Date = env.GetHeader("Date")
	sum.Timestamp = parseTimestamp(sum.Date)
	sum.Body = env.Text
	for _, att := range env.Attachments {
		if att.FileName != "" {
			sum.AttachmentNames = append(sum.AttachmentNames, att.FileName)
		}
	}
}

// splitAddress separates a display name from an address on the first
// angle-bracket pair. Without brackets the whole value is the address
// and the display name is derived from its local part.
func splitAddress(value string) (name, addr string) {
	value = strings.TrimSpace(value)
	if i := strings.Index(value, "<"); i >= 0 {
		name = strings.Trim(strings.TrimSpace(value[:i]), `"`)
		rest := value[i+1:]
		if j := strings.Index(rest, ">"); j >= 0 {
			addr = strings.TrimSpace(rest[:j])
		} else {
			addr = strings.TrimSpace(rest)
		}
	} else {
		addr = value
	}
	if name == "" {
		name = displayNameFor(addr)
	}
	return name, addr
}

// firstAddress keeps only the first recipient of a comma-separated
// address list, respecting quoted display names.
func firstAddress(value string) string {
	depth := 0
	inQuote := false
	for i, r := range value {
		switch r {
		case '"':
			inQuote = !inQuote
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 && !inQuote {
				return strings.TrimSpace(value[:i])
			}
		}
	}
	return strings.TrimSpace(value)
}

// displayNameFor derives a readable name from an address local part:
// dots become spaces, each word is title-cased.
func displayNameFor(addr string) string {
	local := addr
	if i := strings.Index(addr, "@"); i >= 0 {
		local = addr[:i]
	}
	if local == "" {
		return UnknownSender
	}
	words := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_'
	})
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	if len(words) == 0 {
		return UnknownSender
	}
	return strings.Join(words, " ")
}

// parseTimestamp derives the ordering timestamp from a raw Date
// header. Parse failure yields 0, which sorts last.
func parseTimestamp(date string) int64 {
	if date == "" {
		return 0
	}
	t, err := netmail.ParseDate(date)
	if err != nil {
		return 0
	}
	return t.Unix()
}

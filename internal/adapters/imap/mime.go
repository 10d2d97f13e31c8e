package imap

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"

	// Register extended charsets for non-UTF-8 message decoding.
	_ "github.com/emersion/go-message/charset"

	"github.com/mikey/email-onebox/internal/core"
)

// messageFromBuffer maps a fetched IMAP message onto the domain
// message type.
func messageFromBuffer(buf *imapclient.FetchMessageBuffer, section *imap.FetchItemBodySection) core.Message {
	msg := core.Message{
		Cursor: uint32(buf.UID),
	}

	if buf.Envelope != nil {
		msg.ExternalID = buf.Envelope.MessageID
		msg.Subject = buf.Envelope.Subject
		msg.ReceivedAt = buf.Envelope.Date
		if len(buf.Envelope.From) > 0 {
			msg.Sender = formatAddress(buf.Envelope.From[0])
		}
	}
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = buf.InternalDate
	}
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now()
	}

	if raw := buf.FindBodySection(section); raw != nil {
		msg.RawBody = extractBody(raw)
	}

	return msg
}

// formatAddress renders an IMAP address as "Name <addr>" or a bare
// address when no display name is set.
func formatAddress(addr imap.Address) string {
	if addr.Name != "" {
		return fmt.Sprintf("%s <%s>", addr.Name, addr.Addr())
	}
	return addr.Addr()
}

// extractBody parses a raw RFC 2822 message and returns the text/plain
// part, falling back to text/html, falling back to the raw bytes when
// MIME parsing fails entirely.
func extractBody(raw []byte) string {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return string(raw)
	}
	defer mr.Close()

	var textBody, htmlBody string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := header.ContentType()
		body, readErr := io.ReadAll(part.Body)
		if readErr != nil {
			continue
		}

		switch {
		case strings.HasPrefix(contentType, "text/plain"):
			textBody = string(body)
		case strings.HasPrefix(contentType, "text/html"):
			htmlBody = string(body)
		}
	}

	if textBody != "" {
		return textBody
	}
	return htmlBody
}

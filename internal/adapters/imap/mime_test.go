package imap

import (
	"strings"
	"testing"

	"github.com/emersion/go-imap/v2"
	"github.com/stretchr/testify/assert"
)

func crlf(lines ...string) []byte {
	return []byte(strings.Join(lines, "\r\n"))
}

// TestExtractBodyPlainText verifies a simple text/plain message yields
// its body
func TestExtractBodyPlainText(t *testing.T) {
	raw := crlf(
		"From: alice@example.com",
		"To: sales@example.com",
		"Subject: pricing question",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"What does your pricing look like?",
		"",
	)

	body := extractBody(raw)
	assert.Equal(t, "What does your pricing look like?", strings.TrimSpace(body))
}

// TestExtractBodyPrefersPlainOverHTML verifies the text/plain
// alternative wins when both parts are present
func TestExtractBodyPrefersPlainOverHTML(t *testing.T) {
	raw := crlf(
		"From: alice@example.com",
		"Subject: hello",
		"MIME-Version: 1.0",
		`Content-Type: multipart/alternative; boundary="frontier"`,
		"",
		"--frontier",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"plain version",
		"--frontier",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<p>html version</p>",
		"--frontier--",
		"",
	)

	body := extractBody(raw)
	assert.Equal(t, "plain version", strings.TrimSpace(body))
}

// TestExtractBodyFallsBackToHTML verifies html-only messages are not
// dropped
func TestExtractBodyFallsBackToHTML(t *testing.T) {
	raw := crlf(
		"From: alice@example.com",
		"Subject: hello",
		"MIME-Version: 1.0",
		`Content-Type: multipart/alternative; boundary="frontier"`,
		"",
		"--frontier",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<p>html only</p>",
		"--frontier--",
		"",
	)

	body := extractBody(raw)
	assert.Equal(t, "<p>html only</p>", strings.TrimSpace(body))
}

// TestExtractBodyUnparseableFallsBackToRaw verifies malformed input is
// passed through rather than discarded
func TestExtractBodyUnparseableFallsBackToRaw(t *testing.T) {
	raw := []byte("not a mime message at all")
	assert.Equal(t, "not a mime message at all", extractBody(raw))
}

func TestFormatAddress(t *testing.T) {
	withName := imap.Address{Name: "Alice Example", Mailbox: "alice", Host: "example.com"}
	assert.Equal(t, "Alice Example <alice@example.com>", formatAddress(withName))

	bare := imap.Address{Mailbox: "bob", Host: "example.com"}
	assert.Equal(t, "bob@example.com", formatAddress(bare))
}

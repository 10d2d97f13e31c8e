package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Category is one of the closed set of outreach categories a message
// can be classified into.
type Category string

const (
	CategoryInterested    Category = "Interested"
	CategoryMeetingBooked Category = "Meeting Booked"
	CategoryNotInterested Category = "Not Interested"
	CategorySpam          Category = "Spam"
	CategoryOutOfOffice   Category = "Out of Office"
	CategoryUncategorized Category = "Uncategorized"
)

// Categories lists every category the classifier can assign.
var Categories = []Category{
	CategoryInterested,
	CategoryMeetingBooked,
	CategoryNotInterested,
	CategorySpam,
	CategoryOutOfOffice,
	CategoryUncategorized,
}

// Normalized returns the lowercase form of the category used as the
// filterable key in the store. It is always derived from the category
// value so the two can never fall out of sync.
func (c Category) Normalized() string {
	return strings.ToLower(string(c))
}

// ParseCategory maps a normalized category string back to a Category.
// Unknown values resolve to CategoryUncategorized.
func ParseCategory(s string) Category {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, c := range Categories {
		if c.Normalized() == s {
			return c
		}
	}
	return CategoryUncategorized
}

// Message is a raw email fetched from the mailbox. It is immutable
// once fetched.
type Message struct {
	// ExternalID is the stable identifier from the source mailbox
	// (Message-ID header). It may be empty; use StableID for a key.
	ExternalID string
	Subject    string
	Sender     string
	RawBody    string
	ReceivedAt time.Time
	// Cursor is the session-relative watermark token (IMAP UID).
	// Zero when the message did not come from a live session.
	Cursor uint32
}

// StableID returns the identifier used to key the message in the
// store. When the mailbox did not supply one, a synthetic id is
// derived deterministically from content and receipt time so that
// re-ingesting the same message overwrites rather than duplicates.
func (m *Message) StableID() string {
	if m.ExternalID != "" {
		return m.ExternalID
	}
	sum := sha256.Sum256([]byte(m.Sender + "\x00" + m.Subject + "\x00" + m.ReceivedAt.UTC().Format(time.RFC3339)))
	return hex.EncodeToString(sum[:16])
}

// ClassifiedRecord is a message enriched with its category. It is the
// unit persisted to the store, keyed by ID.
type ClassifiedRecord struct {
	ID         string
	Subject    string
	Sender     string
	Body       string
	Category   Category
	ReceivedAt time.Time
}

// NewClassifiedRecord promotes a message to a classified record. The
// body is the possibly truncated form prepared by the pipeline.
func NewClassifiedRecord(msg Message, body string, category Category) *ClassifiedRecord {
	return &ClassifiedRecord{
		ID:         msg.StableID(),
		Subject:    msg.Subject,
		Sender:     msg.Sender,
		Body:       body,
		Category:   category,
		ReceivedAt: msg.ReceivedAt,
	}
}

// CategoryNormalized returns the lowercase category key stored
// alongside the record.
func (r *ClassifiedRecord) CategoryNormalized() string {
	return r.Category.Normalized()
}

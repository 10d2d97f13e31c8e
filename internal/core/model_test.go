package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCategoryNormalized(t *testing.T) {
	assert.Equal(t, "meeting booked", CategoryMeetingBooked.Normalized())
	assert.Equal(t, "interested", CategoryInterested.Normalized())
	assert.Equal(t, "uncategorized", CategoryUncategorized.Normalized())
}

func TestParseCategory(t *testing.T) {
	assert.Equal(t, CategoryMeetingBooked, ParseCategory("Meeting Booked"))
	assert.Equal(t, CategoryMeetingBooked, ParseCategory("meeting booked"))
	assert.Equal(t, CategorySpam, ParseCategory(" spam "))
	assert.Equal(t, CategoryUncategorized, ParseCategory("nonsense"))
}

// TestStableIDPrefersExternalID verifies the mailbox identifier wins
// when present
func TestStableIDPrefersExternalID(t *testing.T) {
	msg := Message{ExternalID: "<abc@mail.example>", Subject: "hi"}
	assert.Equal(t, "<abc@mail.example>", msg.StableID())
}

// TestStableIDSyntheticDeterminism verifies the synthetic id is
// stable across re-ingestion of the same message
func TestStableIDSyntheticDeterminism(t *testing.T) {
	received := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	a := Message{Sender: "alice@example.com", Subject: "hello", ReceivedAt: received}
	b := Message{Sender: "alice@example.com", Subject: "hello", ReceivedAt: received}
	c := Message{Sender: "bob@example.com", Subject: "hello", ReceivedAt: received}

	assert.NotEmpty(t, a.StableID())
	assert.Equal(t, a.StableID(), b.StableID())
	assert.NotEqual(t, a.StableID(), c.StableID())
}

// TestRecordCategoryNormalizedDerived verifies the normalized key can
// never drift from the category
func TestRecordCategoryNormalizedDerived(t *testing.T) {
	msg := Message{ExternalID: "id-1", Subject: "hi", Sender: "a@b.c", ReceivedAt: time.Now()}
	record := NewClassifiedRecord(msg, "body", CategoryMeetingBooked)
	assert.Equal(t, "meeting booked", record.CategoryNormalized())

	record.Category = CategorySpam
	assert.Equal(t, "spam", record.CategoryNormalized())
}

package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/email-onebox/internal/core"
)

func record(id string, category core.Category, receivedAt time.Time) *core.ClassifiedRecord {
	return &core.ClassifiedRecord{
		ID:         id,
		Subject:    "subject " + id,
		Sender:     id + "@example.com",
		Body:       "body",
		Category:   category,
		ReceivedAt: receivedAt,
	}
}

// TestMemoryStoreUpsertIdempotent verifies re-ingesting the same ID
// replaces the record instead of duplicating it
func TestMemoryStoreUpsertIdempotent(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.Upsert(ctx, record("m1", core.CategoryUncategorized, now)))
	require.NoError(t, s.Upsert(ctx, record("m1", core.CategoryInterested, now)))

	assert.Equal(t, 1, s.Len())

	results, err := s.SearchByCategory(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, core.CategoryInterested, results[0].Category, "the latest write wins")
}

// TestMemoryStoreSearchOrdering verifies newest-first ordering
func TestMemoryStoreSearchOrdering(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.Upsert(ctx, record("oldest", core.CategoryInterested, now.Add(-2*time.Hour))))
	require.NoError(t, s.Upsert(ctx, record("newest", core.CategoryInterested, now)))
	require.NoError(t, s.Upsert(ctx, record("middle", core.CategoryInterested, now.Add(-time.Hour))))

	results, err := s.SearchByCategory(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "newest", results[0].ID)
	assert.Equal(t, "middle", results[1].ID)
	assert.Equal(t, "oldest", results[2].ID)
}

// TestMemoryStoreSearchByCategory verifies filtering on the normalized
// category key
func TestMemoryStoreSearchByCategory(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.Upsert(ctx, record("m1", core.CategoryMeetingBooked, now)))
	require.NoError(t, s.Upsert(ctx, record("m2", core.CategorySpam, now)))
	require.NoError(t, s.Upsert(ctx, record("m3", core.CategoryMeetingBooked, now)))

	results, err := s.SearchByCategory(ctx, "meeting booked", 0)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, core.CategoryMeetingBooked, r.Category)
	}

	results, err = s.SearchByCategory(ctx, "not interested", 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

// TestMemoryStoreDefaultLimit verifies a zero limit falls back to the
// default bound
func TestMemoryStoreDefaultLimit(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < DefaultSearchLimit+20; i++ {
		id := fmt.Sprintf("m%03d", i)
		require.NoError(t, s.Upsert(ctx, record(id, core.CategoryInterested, now.Add(time.Duration(i)*time.Second))))
	}

	results, err := s.SearchByCategory(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, results, DefaultSearchLimit)

	results, err = s.SearchByCategory(ctx, "", 5)
	require.NoError(t, err)
	assert.Len(t, results, 5)
}

// TestMemoryStoreReturnsCopies verifies callers cannot mutate stored
// records through search results
func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, record("m1", core.CategoryInterested, time.Now())))

	results, err := s.SearchByCategory(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	results[0].Category = core.CategorySpam

	again, err := s.SearchByCategory(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, core.CategoryInterested, again[0].Category)
}

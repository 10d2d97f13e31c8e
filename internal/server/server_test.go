package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/email-onebox/internal/adapters/store"
	"github.com/mikey/email-onebox/internal/core"
	"github.com/mikey/email-onebox/internal/server"
)

type staticLLM struct {
	response string
}

func (l *staticLLM) Complete(ctx context.Context, req core.CompletionRequest) (string, error) {
	return l.response, nil
}

func newTestServer(t *testing.T, llm core.CompletionClient) (*server.Server, *store.MemoryStore) {
	t.Helper()
	return newTestServerWithLimit(t, llm, store.DefaultSearchLimit)
}

func newTestServerWithLimit(t *testing.T, llm core.CompletionClient, defaultLimit int) (*server.Server, *store.MemoryStore) {
	t.Helper()
	logger := zap.NewNop()
	st := store.NewMemoryStore(logger)
	replies := core.NewReplyService(llm, logger, core.ReplyOptions{
		Temperature: 0.75,
		MaxTokens:   300,
		Timeout:     time.Second,
	})
	return server.New(st, replies, nil, "127.0.0.1:0", defaultLimit, logger), st
}

func seed(t *testing.T, st *store.MemoryStore, id string, category core.Category, receivedAt time.Time) {
	t.Helper()
	require.NoError(t, st.Upsert(context.Background(), &core.ClassifiedRecord{
		ID:         id,
		Subject:    "subject " + id,
		Sender:     id + "@example.com",
		Body:       "body",
		Category:   category,
		ReceivedAt: receivedAt,
	}))
}

// TestHealthEndpoint verifies the root endpoint reports ingestion
// state
func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &staticLLM{response: "ok"})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "disabled", resp["ingestion"])
}

// TestListEmails verifies category filtering and response shape
func TestListEmails(t *testing.T) {
	srv, st := newTestServer(t, &staticLLM{response: "ok"})
	now := time.Now()
	seed(t, st, "m1", core.CategoryMeetingBooked, now)
	seed(t, st, "m2", core.CategorySpam, now.Add(-time.Hour))
	seed(t, st, "m3", core.CategoryMeetingBooked, now.Add(-2*time.Hour))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/emails?category=meeting+booked", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, "m1", resp[0]["id"], "newest first")
	assert.Equal(t, "Meeting Booked", resp[0]["category"])
	assert.Equal(t, "meeting booked", resp[0]["category_lower"])
	assert.Equal(t, "m3", resp[1]["id"])
}

// TestListEmailsLimit verifies limit handling, including rejection of
// malformed values
func TestListEmailsLimit(t *testing.T) {
	srv, st := newTestServer(t, &staticLLM{response: "ok"})
	now := time.Now()
	seed(t, st, "m1", core.CategoryInterested, now)
	seed(t, st, "m2", core.CategoryInterested, now.Add(-time.Hour))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/emails?limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp, 1)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/emails?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/emails?limit=-1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestListEmailsConfiguredDefaultLimit verifies the configured search
// limit bounds requests that carry no explicit limit
func TestListEmailsConfiguredDefaultLimit(t *testing.T) {
	srv, st := newTestServerWithLimit(t, &staticLLM{response: "ok"}, 1)
	now := time.Now()
	seed(t, st, "m1", core.CategoryInterested, now)
	seed(t, st, "m2", core.CategoryInterested, now.Add(-time.Hour))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/emails", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "m1", resp[0]["id"])

	// An explicit limit still overrides the configured default.
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/emails?limit=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	resp = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp, 2)
}

// TestSuggestReply verifies the happy path returns the drafted reply
func TestSuggestReply(t *testing.T) {
	srv, _ := newTestServer(t, &staticLLM{response: "Thanks for reaching out, Friday at 2pm works."})

	payload := `{"subject":"Let's connect this Friday","body":"Does 2pm work for you?"}`
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/suggest-reply", strings.NewReader(payload)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Thanks for reaching out, Friday at 2pm works.", resp["reply"])
}

// TestSuggestReplyValidation verifies malformed requests are rejected
func TestSuggestReplyValidation(t *testing.T) {
	srv, _ := newTestServer(t, &staticLLM{response: "ok"})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/suggest-reply", strings.NewReader("{not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/suggest-reply", strings.NewReader(`{"subject":"hi"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "an empty body has nothing to reply to")
}

// TestSuggestReplyWithoutProvider verifies the endpoint degrades to
// 503 when no completion provider is configured
func TestSuggestReplyWithoutProvider(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	payload := `{"subject":"hi","body":"hello there"}`
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/suggest-reply", strings.NewReader(payload)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/mikey/email-onebox/internal/utils"
	"go.uber.org/zap"
)

// fakeCompletionClient returns a canned response and records calls
type fakeCompletionClient struct {
	response string
	err      error
	calls    int
	lastReq  CompletionRequest
}

func (f *fakeCompletionClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func newTestClassifier(llm CompletionClient) *ClassifierService {
	logger := zap.NewNop()
	return NewClassifierService(llm, utils.NewTextProcessor(logger), logger, ClassifierOptions{
		TruncateLength: 1500,
		Temperature:    0.3,
		MaxTokens:      20,
		Timeout:        time.Second,
	})
}

// TestClassifyOutOfOfficeRule verifies the rule match short-circuits
// before any model call
func TestClassifyOutOfOfficeRule(t *testing.T) {
	llm := &fakeCompletionClient{response: "Interested"}
	classifier := newTestClassifier(llm)

	tests := []struct {
		subject string
		body    string
	}{
		{"Re: proposal", "I am out of office until next Monday"},
		{"Automatic Reply: your email", "thanks for reaching out"},
		{"away", "I am on vacation, returning on the 15th"},
	}
	for _, tc := range tests {
		category := classifier.Classify(context.Background(), tc.subject, tc.body)
		assert.Equal(t, CategoryOutOfOffice, category, "subject=%q", tc.subject)
	}
	assert.Equal(t, 0, llm.calls, "rule matches must not invoke the model")
}

// TestClassifySpamRule verifies promotional content is caught by rules
func TestClassifySpamRule(t *testing.T) {
	llm := &fakeCompletionClient{response: "Interested"}
	classifier := newTestClassifier(llm)

	category := classifier.Classify(context.Background(), "50% off now!", "Buy now, limited time offer")
	assert.Equal(t, CategorySpam, category)
	assert.Equal(t, 0, llm.calls)
}

// TestClassifyModelContainment verifies parsing of model responses by
// case- and space-insensitive containment
func TestClassifyModelContainment(t *testing.T) {
	tests := []struct {
		response string
		want     Category
	}{
		{"this looks like Meeting Booked to me", CategoryMeetingBooked},
		{"Meeting Booked", CategoryMeetingBooked},
		{"meetingbooked\n", CategoryMeetingBooked},
		{"Interested", CategoryInterested},
		{"The sender is clearly not interested.", CategoryNotInterested},
		{"NOT INTERESTED", CategoryNotInterested},
		{"Out of Office", CategoryOutOfOffice},
		{"Spam", CategorySpam},
		{"I cannot decide", CategoryUncategorized},
		{"", CategoryUncategorized},
	}

	for _, tc := range tests {
		llm := &fakeCompletionClient{response: tc.response}
		classifier := newTestClassifier(llm)

		category := classifier.Classify(context.Background(), "Quick question", "What does your pricing look like?")
		assert.Equal(t, tc.want, category, "response=%q", tc.response)
		assert.Equal(t, 1, llm.calls)
	}
}

// TestClassifyDegradesOnError verifies model failures never propagate
func TestClassifyDegradesOnError(t *testing.T) {
	llm := &fakeCompletionClient{err: errors.New("connection refused")}
	classifier := newTestClassifier(llm)

	category := classifier.Classify(context.Background(), "Quick question", "What does your pricing look like?")
	assert.Equal(t, CategoryUncategorized, category)
}

// TestClassifyWithoutProvider verifies the classifier still works in
// rules-only mode when no completion provider is configured
func TestClassifyWithoutProvider(t *testing.T) {
	classifier := newTestClassifier(nil)

	assert.Equal(t, CategoryOutOfOffice,
		classifier.Classify(context.Background(), "", "automatic reply: I am away"))
	assert.Equal(t, CategoryUncategorized,
		classifier.Classify(context.Background(), "Quick question", "What does your pricing look like?"))
}

// TestClassifyTruncatesBody verifies the body is bounded before it
// reaches the model
func TestClassifyTruncatesBody(t *testing.T) {
	llm := &fakeCompletionClient{response: "Interested"}
	classifier := newTestClassifier(llm)

	long := make([]byte, 10000)
	for i := range long {
		long[i] = 'a'
	}
	classifier.Classify(context.Background(), "hello", string(long))

	assert.Equal(t, 1, llm.calls)
	assert.Less(t, len(llm.lastReq.Prompt), 4000, "prompt must carry a truncated body")
}

func TestParseModelCategoryOrder(t *testing.T) {
	// "Not Interested" contains "Interested"; order matters
	assert.Equal(t, CategoryNotInterested, parseModelCategory("not interested"))
	assert.Equal(t, CategoryInterested, parseModelCategory("interested"))
}

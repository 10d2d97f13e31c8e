package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// replyGuidelines is the outreach knowledge base folded into the
// reply prompt.
var replyGuidelines = []string{
	"Always maintain a professional and courteous tone in email responses.",
	"Address the specific points mentioned in the email you're replying to.",
	"Keep responses clear, concise, and relevant to the email context.",
}

const replySystemFormat = `You are an intelligent email assistant that writes contextual, professional email replies.

Your approach:
1. Read the email carefully to understand its purpose and tone
2. Identify what type of email it is (job-related, business inquiry, personal, newsletter, invitation, etc.)
3. Craft a reply that matches the context and addresses the key points
4. Adapt your tone to match the email (formal for business, friendly for casual, enthusiastic for opportunities)

Guidelines:
%s

- For job/application emails: Express gratitude and interest
- For meeting invites: Confirm or provide availability
- For questions: Answer directly and helpfully
- For requests: Respond with yes/no and any needed details
- Keep responses natural, relevant, and 2-4 sentences unless more detail is needed

DO NOT force generic templates. Each reply should feel personalized to THIS specific email.`

const replyPromptFormat = `Email to reply to:

Subject: %s
Body: %s

Write an appropriate, contextual reply:`

// ReplyOptions holds the tunable knobs for reply generation.
type ReplyOptions struct {
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// ReplyService drafts replies for persisted emails on demand. Unlike
// classification, failures propagate to the caller; there is no
// sensible degraded reply.
type ReplyService struct {
	llm    CompletionClient
	logger *zap.Logger
	opts   ReplyOptions
}

// NewReplyService creates a new reply suggestion service. llm may be
// nil when no completion provider is configured.
func NewReplyService(llm CompletionClient, logger *zap.Logger, opts ReplyOptions) *ReplyService {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &ReplyService{
		llm:    llm,
		logger: logger,
		opts:   opts,
	}
}

// SuggestReply generates a reply draft for the given email content.
func (s *ReplyService) SuggestReply(ctx context.Context, subject, body string) (string, error) {
	if s.llm == nil {
		return "", ErrLLMDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	reply, err := s.llm.Complete(ctx, CompletionRequest{
		System:      fmt.Sprintf(replySystemFormat, strings.Join(replyGuidelines, "\n")),
		Prompt:      fmt.Sprintf(replyPromptFormat, subject, body),
		Temperature: s.opts.Temperature,
		MaxTokens:   s.opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate reply: %w", err)
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", fmt.Errorf("empty reply from completion backend")
	}

	s.logger.Debug("Suggested reply generated", zap.Int("length", len(reply)))
	return reply, nil
}

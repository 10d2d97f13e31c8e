package core

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mikey/email-onebox/internal/utils"
	"go.uber.org/zap"
)

// Rule patterns for the two high-volume categories that never need a
// model call.
var (
	outOfOfficePattern = regexp.MustCompile(`out of office|automatic reply|i am away|on vacation|returning on`)
	promotionPattern   = regexp.MustCompile(`unsubscribe|buy now|discount|offer|free trial|limited time|promotion|click here`)
)

// parseOrder is the containment-match order for model responses.
// "Not Interested" must be tested before "Interested" because its
// name contains the latter.
var parseOrder = []Category{
	CategoryNotInterested,
	CategoryMeetingBooked,
	CategoryOutOfOffice,
	CategorySpam,
	CategoryInterested,
}

const classifyPromptFormat = `You are an email classification assistant.
Classify the following email into ONE category:
["Interested", "Meeting Booked", "Not Interested", "Spam", "Out of Office"]

Guidelines:
- "Interested": The sender shows positive interest, asks for info, pricing, or demo.
- "Meeting Booked": A specific meeting time or calendar invite is confirmed.
- "Not Interested": Sender declines, rejects, or says they're not interested.
- "Spam": Promotional, irrelevant, or bulk marketing content.
- "Out of Office": Sender says they are away, on vacation, or sends an automatic reply.

Examples:
"Let's connect this Friday" -> Meeting Booked
"Please send details of your service" -> Interested
"Not interested at the moment" -> Not Interested
"Buy followers now! Limited time offer!" -> Spam
"I am out of office until next Monday" -> Out of Office

Respond only with: Interested, Meeting Booked, Not Interested, Spam, or Out of Office.

Subject: %s
Body: %s

Category:`

// ClassifierOptions holds the tunable knobs for classification.
type ClassifierOptions struct {
	TruncateLength int
	Temperature    float32
	MaxTokens      int
	Timeout        time.Duration
}

// ClassifierService maps (subject, body) to one category. Fast
// deterministic rules run first; everything else goes to the
// configured completion backend. Classification never fails outward:
// any internal error degrades to CategoryUncategorized so a broken
// model can never block ingestion.
type ClassifierService struct {
	llm    CompletionClient
	text   *utils.TextProcessor
	logger *zap.Logger
	opts   ClassifierOptions
}

// NewClassifierService creates a new classifier service. llm may be
// nil when no completion provider is configured; rule matches still
// work and everything else resolves to CategoryUncategorized.
func NewClassifierService(llm CompletionClient, text *utils.TextProcessor, logger *zap.Logger, opts ClassifierOptions) *ClassifierService {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &ClassifierService{
		llm:    llm,
		text:   text,
		logger: logger,
		opts:   opts,
	}
}

// Classify assigns a category to the message. The classifier owns no
// retry policy; one shot, degrade on failure.
func (s *ClassifierService) Classify(ctx context.Context, subject, body string) Category {
	subject = strings.TrimSpace(subject)
	body = s.text.ProcessText(body, s.opts.TruncateLength)

	text := strings.ToLower(subject + " " + body)
	if outOfOfficePattern.MatchString(text) {
		return CategoryOutOfOffice
	}
	if promotionPattern.MatchString(text) {
		return CategorySpam
	}

	if s.llm == nil {
		return CategoryUncategorized
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	resp, err := s.llm.Complete(ctx, CompletionRequest{
		System:      "You are an email classification assistant. Respond only with the category name.",
		Prompt:      fmt.Sprintf(classifyPromptFormat, subject, body),
		Temperature: s.opts.Temperature,
		MaxTokens:   s.opts.MaxTokens,
	})
	if err != nil {
		s.logger.Warn("Classification degraded to Uncategorized", zap.Error(err))
		return CategoryUncategorized
	}

	return parseModelCategory(resp)
}

// parseModelCategory maps a raw model response onto a category by
// case- and space-insensitive containment. First match wins; no match
// resolves to CategoryUncategorized.
func parseModelCategory(resp string) Category {
	resp = strings.ToLower(strings.TrimSpace(resp))
	resp = strings.ReplaceAll(resp, "\n", " ")

	for _, c := range parseOrder {
		name := c.Normalized()
		if strings.Contains(resp, name) || strings.Contains(resp, strings.ReplaceAll(name, " ", "")) {
			return c
		}
	}
	return CategoryUncategorized
}

package factory

import (
	"context"
	"fmt"

	"github.com/mikey/email-onebox/internal/adapters/llm"
	"github.com/mikey/email-onebox/internal/config"
	"github.com/mikey/email-onebox/internal/core"
	"go.uber.org/zap"
)

// LLMFactory creates completion clients based on configuration
type LLMFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger) *LLMFactory {
	return &LLMFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateCompletionClient creates a completion client for the
// configured provider. A missing credential disables the provider
// (nil client) instead of failing startup: classification degrades to
// Uncategorized and reply suggestion reports itself unavailable.
func (f *LLMFactory) CreateCompletionClient() (core.CompletionClient, error) {
	llmConfig := f.cfg.GetLLM()

	switch llmConfig.Provider {
	case "openai":
		openaiCfg := f.cfg.GetOpenAI()
		if openaiCfg.APIKey == "" {
			f.logger.Warn("OpenAI API key missing, completion features disabled")
			return nil, nil
		}
		return llm.NewOpenAIClient(openaiCfg.APIKey, openaiCfg.ModelName, openaiCfg.TopP, f.logger), nil
	case "bedrock":
		bedrockCfg := f.cfg.GetBedrock()
		return llm.NewBedrockClient(context.Background(), bedrockCfg.Region, bedrockCfg.ModelID, bedrockCfg.TopP, f.logger)
	case "gemini":
		geminiCfg := f.cfg.GetGemini()
		if geminiCfg.APIKey == "" {
			f.logger.Warn("Gemini API key missing, completion features disabled")
			return nil, nil
		}
		return llm.NewGeminiClient(context.Background(), geminiCfg.APIKey, geminiCfg.ModelName, geminiCfg.TopP, f.logger)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmConfig.Provider)
	}
}

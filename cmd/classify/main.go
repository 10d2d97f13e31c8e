package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/mikey/email-onebox/internal/config"
	"github.com/mikey/email-onebox/internal/core"
	"github.com/mikey/email-onebox/internal/factory"
	"github.com/mikey/email-onebox/internal/logging"
	"github.com/mikey/email-onebox/internal/utils"
	"go.uber.org/zap"
)

var (
	// LLM provider flags
	provider    = flag.String("provider", "openai", "LLM provider (openai, bedrock, gemini)")
	maxTokens   = flag.Int("max-tokens", 20, "Maximum tokens for the category response")
	temperature = flag.Float64("temperature", 0.3, "Temperature for LLM generation")
	truncateLen = flag.Int("truncate-length", 1500, "Maximum email body size sent to the classifier")

	// OpenAI flags
	openaiAPIKey    = flag.String("openai-api-key", "", "API key for OpenAI")
	openaiModelName = flag.String("openai-model", "gpt-4o-mini", "OpenAI model name")

	// Bedrock flags
	bedrockRegion  = flag.String("bedrock-region", "us-east-1", "AWS region for Bedrock")
	bedrockModelID = flag.String("bedrock-model", "anthropic.claude-v2", "Bedrock model ID")

	// Gemini flags
	geminiAPIKey    = flag.String("gemini-api-key", "", "API key for Google Gemini")
	geminiModelName = flag.String("gemini-model", "gemini-pro", "Gemini model name")

	// Input flags
	inputFile  = flag.String("file", "", "Input email file (use stdin if not specified)")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog    = flag.Bool("json-log", false, "Output logs in JSON format")
	configFile = flag.Bool("config", false, "Load configuration from the config file instead of flags")
)

func main() {
	flag.Parse()

	// Initialize logger
	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	var cfg *config.Config
	if *configFile {
		cfg, err = config.New()
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}
	} else {
		cfg = createConfigFromFlags()
	}

	// Initialize completion client
	llmFactory := factory.NewLLMFactory(cfg, logger)
	llmClient, err := llmFactory.CreateCompletionClient()
	if err != nil {
		logger.Fatal("Failed to create completion client", zap.Error(err))
	}

	text := utils.NewTextProcessor(logger)
	classifier := core.NewClassifierService(llmClient, text, logger, core.ClassifierOptions{
		TruncateLength: *truncateLen,
		Temperature:    float32(*temperature),
		MaxTokens:      *maxTokens,
		Timeout:        30 * time.Second,
	})

	// Read the email
	subject, sender, body, err := readEmail(*inputFile)
	if err != nil {
		logger.Fatal("Failed to read email", zap.Error(err))
	}

	if *verbose {
		fmt.Printf("\n=== Email Summary ===\n")
		fmt.Printf("From: %s\n", sender)
		fmt.Printf("Subject: %s\n", subject)
		fmt.Printf("Body length: %d bytes\n\n", len(body))
	}

	startTime := time.Now()
	category := classifier.Classify(context.Background(), subject, body)
	duration := time.Since(startTime)

	fmt.Printf("Category: %s\n", category)
	if *verbose {
		fmt.Printf("Processing time: %v\n", duration)
	}

	if closer, ok := llmClient.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
}

// readEmail parses an RFC 2822 message from the input file or stdin
func readEmail(path string) (subject, sender, body string, err error) {
	var input io.Reader
	if path != "" {
		f, openErr := os.Open(path)
		if openErr != nil {
			return "", "", "", fmt.Errorf("failed to open %s: %w", path, openErr)
		}
		defer f.Close()
		input = f
	} else {
		input = os.Stdin
	}

	msg, err := mail.ReadMessage(bufio.NewReader(input))
	if err != nil {
		return "", "", "", fmt.Errorf("failed to parse email: %w", err)
	}

	raw, err := io.ReadAll(msg.Body)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to read email body: %w", err)
	}

	return msg.Header.Get("Subject"), msg.Header.Get("From"), strings.TrimSpace(string(raw)), nil
}

// createConfigFromFlags builds a configuration from command line flags
func createConfigFromFlags() *config.Config {
	v := config.NewEmptyViper()

	v.Set("llm.provider", *provider)
	v.Set("openai.api_key", *openaiAPIKey)
	v.Set("openai.model_name", *openaiModelName)
	v.Set("bedrock.region", *bedrockRegion)
	v.Set("bedrock.model_id", *bedrockModelID)
	v.Set("gemini.api_key", *geminiAPIKey)
	v.Set("gemini.model_name", *geminiModelName)
	v.Set("classify.temperature", *temperature)
	v.Set("classify.max_tokens", *maxTokens)
	v.Set("ingest.truncate_length", *truncateLen)

	return config.NewFromViper(v)
}

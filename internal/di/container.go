package di

import (
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/email-onebox/internal/config"
	"github.com/mikey/email-onebox/internal/core"
	"github.com/mikey/email-onebox/internal/factory"
	"github.com/mikey/email-onebox/internal/logging"
	"github.com/mikey/email-onebox/internal/server"
	"github.com/mikey/email-onebox/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewNotifierFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewSessionFactory); err != nil {
		return nil, err
	}

	// Register completion client
	if err := container.Provide(func(f *factory.LLMFactory) (core.CompletionClient, error) {
		return f.CreateCompletionClient()
	}); err != nil {
		return nil, err
	}

	// Register email store
	if err := container.Provide(func(f *factory.StoreFactory) (core.EmailStore, error) {
		return f.CreateEmailStore()
	}); err != nil {
		return nil, err
	}

	// Register notifier
	if err := container.Provide(func(f *factory.NotifierFactory) core.Notifier {
		return f.CreateNotifier()
	}); err != nil {
		return nil, err
	}

	// Register mailbox session (nil when credentials are missing)
	if err := container.Provide(func(f *factory.SessionFactory) core.MailboxSession {
		return f.CreateMailboxSession()
	}); err != nil {
		return nil, err
	}

	// Register classifier service
	if err := container.Provide(func(llm core.CompletionClient, text *utils.TextProcessor, cfg *config.Config, logger *zap.Logger) *core.ClassifierService {
		ingestCfg := cfg.GetIngest()
		return core.NewClassifierService(llm, text, logger, core.ClassifierOptions{
			TruncateLength: ingestCfg.TruncateLength,
			Temperature:    float32(cfg.GetFloat64("classify.temperature")),
			MaxTokens:      cfg.GetInt("classify.max_tokens"),
			Timeout:        completionTimeout(cfg),
		})
	}); err != nil {
		return nil, err
	}

	// Register reply service
	if err := container.Provide(func(llm core.CompletionClient, cfg *config.Config, logger *zap.Logger) *core.ReplyService {
		return core.NewReplyService(llm, logger, core.ReplyOptions{
			Temperature: float32(cfg.GetFloat64("reply.temperature")),
			MaxTokens:   cfg.GetInt("reply.max_tokens"),
			Timeout:     completionTimeout(cfg),
		})
	}); err != nil {
		return nil, err
	}

	// Register ingestion pipeline (nil when the mailbox session is disabled)
	if err := container.Provide(func(
		session core.MailboxSession,
		classifier *core.ClassifierService,
		store core.EmailStore,
		notifier core.Notifier,
		text *utils.TextProcessor,
		cfg *config.Config,
		logger *zap.Logger,
	) *core.IngestionPipeline {
		if session == nil {
			return nil
		}
		imapCfg := cfg.GetIMAP()
		ingestCfg := cfg.GetIngest()
		notifyCategories := make([]core.Category, 0, len(ingestCfg.NotifyCategories))
		for _, name := range ingestCfg.NotifyCategories {
			notifyCategories = append(notifyCategories, core.ParseCategory(name))
		}
		return core.NewIngestionPipeline(session, classifier, store, notifier, text, logger, core.PipelineOptions{
			Folder:           imapCfg.Folder,
			BackfillWindow:   imapCfg.BackfillWindow,
			TruncateLength:   ingestCfg.TruncateLength,
			UpsertRetries:    ingestCfg.UpsertRetries,
			RetryBackoff:     ingestCfg.RetryBackoff,
			NotifyCategories: notifyCategories,
		})
	}); err != nil {
		return nil, err
	}

	// Register API server
	if err := container.Provide(func(
		store core.EmailStore,
		replies *core.ReplyService,
		pipeline *core.IngestionPipeline,
		cfg *config.Config,
		logger *zap.Logger,
	) *server.Server {
		return server.New(store, replies, pipeline, cfg.GetString("server.listen_address"), cfg.GetStore().SearchLimit, logger)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// completionTimeout resolves the request timeout of the configured
// LLM provider.
func completionTimeout(cfg *config.Config) time.Duration {
	switch cfg.GetLLM().Provider {
	case "bedrock":
		return cfg.GetBedrock().Timeout
	case "gemini":
		return cfg.GetGemini().Timeout
	default:
		return cfg.GetOpenAI().Timeout
	}
}

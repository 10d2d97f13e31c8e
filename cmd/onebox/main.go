package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mikey/email-onebox/internal/core"
	"github.com/mikey/email-onebox/internal/di"
	"github.com/mikey/email-onebox/internal/server"
	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	store core.EmailStore,
	llmClient core.CompletionClient,
	pipeline *core.IngestionPipeline,
	srv *server.Server,
) error {
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Prepare the store schema. A failure here degrades the store
	// operations, it does not take down API serving.
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Error("Failed to ensure store schema", zap.Error(err))
	}

	// Start ingestion when a mailbox is configured
	pipelineDone := make(chan struct{})
	if pipeline != nil {
		go func() {
			defer close(pipelineDone)
			if err := pipeline.Run(ctx); err != nil {
				logger.Error("Ingestion terminated, continuing without email syncing", zap.Error(err))
			}
		}()
	} else {
		close(pipelineDone)
		logger.Info("Running without email syncing")
	}

	// Start the API server
	srv.Start()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")
	cancel()

	// Let the in-flight message and the HTTP server drain
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to stop API server", zap.Error(err))
	}

	select {
	case <-pipelineDone:
	case <-shutdownCtx.Done():
		logger.Warn("Timed out waiting for ingestion to stop")
	}

	// Close any resources that need closing
	if closer, ok := llmClient.(interface{ Close() error }); ok && llmClient != nil {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close completion client", zap.Error(err))
		}
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close store", zap.Error(err))
		}
	}

	logger.Info("Shutdown complete")
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"giftmatch/internal/api"
	"giftmatch/internal/core"
	"giftmatch/internal/llm"
	"giftmatch/internal/logger"
	"giftmatch/internal/nodes"
	"giftmatch/internal/services"
	"giftmatch/internal/storage"

	"github.com/cloudwego/eino/components/model"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

// app holds everything the commands share once configuration is loaded
type app struct {
	chatModel   model.ToolCallingChatModel
	catalog     *services.CatalogStore
	recommender *services.Recommender
	redis       *storage.RedisStorage
}

func newApp(ctx context.Context, cfg core.Config) (*app, error) {
	cm, err := llm.NewChatModel(ctx, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	catalog := services.NewFileCatalogStore(cfg.Catalog.Path)
	if entries, err := catalog.Load(); err != nil {
		// requests retry the load; the service keeps running without gifts
		logger.Error().Err(err).Str("path", cfg.Catalog.Path).Msg("Failed to load gift catalog")
	} else {
		logger.Info().Int("gifts", len(entries)).Str("path", cfg.Catalog.Path).Msg("Gift catalog loaded")
	}

	recommender, err := services.NewRecommender(ctx, cm, catalog, cfg.LLM.Temperature)
	if err != nil {
		return nil, err
	}

	a := &app{chatModel: cm, catalog: catalog, recommender: recommender}
	if cfg.Redis.URL != "" && (cfg.Session.Backend == "redis" || cfg.Retrieval.Enabled) {
		a.redis, err = storage.NewRedisStorage(ctx, cfg.Redis.URL, cfg.Redis.KeyPrefix)
		if err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *app) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close redis client")
		}
	}
}

func (a *app) classifier(cfg core.ModerationConfig) services.Classifier {
	if !cfg.Enabled {
		logger.Warn().Msg("Moderation disabled, every message is allowed")
		return services.NoopClassifier{}
	}
	return services.NewOpenAIModerator(cfg.APIKey, cfg.BaseURL, cfg.Model)
}

func (a *app) sessions(cfg core.SessionConfig) storage.SessionManager {
	if cfg.Backend == "redis" {
		return storage.NewRedisSessionManager(a.redis, cfg.TTL, cfg.MaxMessages)
	}
	return storage.NewMemorySessionManager(cfg.TTL, cfg.MaxMessages)
}

// documentStore shares the redis client under the retrieval key prefix
func (a *app) documentStore(cfg core.RetrievalConfig) *storage.DocumentStore {
	return storage.NewDocumentStore(storage.NewRedisStorageFromClient(a.redis.Client(), cfg.KeyPrefix))
}

func (a *app) assistant(ctx context.Context, cfg core.RetrievalConfig) (*services.Assistant, error) {
	searcher := services.NewDocumentSearcher(a.documentStore(cfg), cfg.TopK)
	tools, err := nodes.DocumentTools(searcher)
	if err != nil {
		return nil, err
	}
	return services.NewAssistant(ctx, a.chatModel, tools, cfg.MaxToolIterations)
}

func serve(ctx context.Context, cfg core.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	processor, err := nodes.NewChatProcessor(cfg.Graph, nodes.ChatDeps{
		Classifier:  a.classifier(cfg.Moderation),
		Catalog:     a.catalog,
		Recommender: a.recommender,
	})
	if err != nil {
		return fmt.Errorf("failed to build chat flow: %w", err)
	}

	deps := api.Deps{
		Processor: processor,
		Responder: services.NewResponder(a.chatModel, cfg.LLM.Temperature),
		Wizard:    a.recommender,
		Sessions:  a.sessions(cfg.Session),
		Catalog:   a.catalog,
	}
	if cfg.Retrieval.Enabled {
		assistant, err := a.assistant(ctx, cfg.Retrieval)
		if err != nil {
			return fmt.Errorf("failed to build assistant: %w", err)
		}
		deps.Assistant = assistant
	}

	httpServer := &http.Server{
		Addr:        cfg.Server.Addr,
		Handler:     api.NewServer(deps, cfg.Server),
		ReadTimeout: 30 * time.Second,
		// streamed replies can outlive the request timeout of the JSON routes
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.Server.Addr).
			Str("provider", cfg.LLM.Provider).
			Str("model", cfg.LLM.Model).
			Str("sessions", cfg.Session.Backend).
			Bool("moderation", cfg.Moderation.Enabled).
			Bool("assistant", deps.Assistant != nil).
			Msg("Starting GiftMatch")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"

	"github.com/Vovarama1992/wazzup-ai-bridge/internal/ai"
	"github.com/Vovarama1992/wazzup-ai-bridge/internal/config"
	"github.com/Vovarama1992/wazzup-ai-bridge/internal/threads"
	"github.com/Vovarama1992/wazzup-ai-bridge/internal/wazzup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(envFile)
		if err != nil {
			return err
		}
		logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
		slog.SetDefault(logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return serve(ctx, cfg, logger)
	},
}

func newAIClient(cfg config.Config, logger *slog.Logger) *ai.OpenAIClient {
	return ai.NewOpenAIClient(ai.OpenAIConfig{
		APIKey:       cfg.OpenAIAPIKey,
		BaseURL:      cfg.OpenAIBaseURL,
		AssistantID:  cfg.AssistantID,
		PollInterval: cfg.RunPollInterval,
		RunTimeout:   cfg.RunTimeout,
	}, logger)
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (threads.Store, error) {
	if cfg.DatabaseDriver == "redis" {
		return threads.OpenRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
	}
	return threads.OpenSQLStore(ctx, cfg.DatabaseDriver, cfg.DatabaseURL, logger)
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	// --- Assistant ---
	aiClient := newAIClient(cfg, logger)
	assistantID, created, err := aiClient.EnsureAssistant(ctx, cfg.OpenAIModel, cfg.Instructions)
	if err != nil {
		return fmt.Errorf("assistant bootstrap: %w", err)
	}
	if created {
		if err := saveAssistantID(envFile, assistantID); err != nil {
			logger.Warn("could not persist ASSISTANT_ID", "env_file", envFile, "error", err)
		}
	}

	// --- DB ---
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	// --- Wazzup module wiring ---
	registry := threads.NewRegistry(store, aiClient, cfg.FirstMessage(logger), logger)
	outbound := wazzup.NewWazzupOutbound(wazzup.OutboundConfig{
		BaseURL:   cfg.WazzupBaseURL,
		APIKey:    cfg.WazzupAPIKey,
		ChannelID: cfg.WazzupChannelID,
		ChatType:  cfg.WazzupChatType,
	}, logger)
	svc := wazzup.NewService(registry, aiClient, outbound, logger)
	handler := wazzup.NewHandler(svc, cfg.WebhookMaxConcurrency, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr, "assistant_id", assistantID)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace())
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newRouter(h *wazzup.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	wazzup.RegisterRoutes(r, h)

	// --- health ---
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	return r
}

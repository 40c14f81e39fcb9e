package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ggproduction/onboarding/internal/ai"
	"github.com/ggproduction/onboarding/internal/api"
	"github.com/ggproduction/onboarding/internal/auth"
	"github.com/ggproduction/onboarding/internal/content"
	"github.com/ggproduction/onboarding/internal/curriculum"
	"github.com/ggproduction/onboarding/internal/learner"
	"github.com/ggproduction/onboarding/internal/learning"
	"github.com/ggproduction/onboarding/internal/platform/cache"
	"github.com/ggproduction/onboarding/internal/platform/config"
	"github.com/ggproduction/onboarding/internal/platform/database"
	"github.com/ggproduction/onboarding/internal/quizgen"
	"github.com/ggproduction/onboarding/internal/realtime"
	"github.com/ggproduction/onboarding/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger, err := newLogger(cfg.Log, os.Stdout)
	if err != nil {
		slog.Error("invalid log config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return err
	}

	st, err := store.NewPostgresStore(db.Pool)
	if err != nil {
		return err
	}
	if cfg.CurriculumPath != "" {
		if err := seedCurriculum(ctx, cfg.CurriculumPath, st); err != nil {
			return err
		}
	}

	checks := map[string]api.Checker{"database": db}
	var (
		bus         realtime.Bus = realtime.NewMemoryBus()
		budget      ai.Budget    = ai.NewMemoryBudget(int64(cfg.AI.DailyTokenBudget))
		leaderboard learning.Cache
	)
	if cfg.Cache.URL != "" {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			slog.Warn("cache unavailable, running without it", "error", err)
		} else {
			defer c.Close()
			checks["cache"] = c
			leaderboard = c
			budget = ai.NewRedisBudget(c.Client, int64(cfg.AI.DailyTokenBudget))
			rb, err := realtime.NewRedisBus(c.Client)
			if err != nil {
				return err
			}
			bus = rb
		}
	}
	defer bus.Close()

	svc, err := learning.NewService(learning.Config{
		Store:          st,
		Cache:          leaderboard,
		Publisher:      bus,
		Events:         learning.NewPostgresEventLogger(db.Pool),
		TopK:           cfg.Leaderboard.TopK,
		RankedRole:     learner.Role(cfg.Leaderboard.RankedRole),
		LeaderboardTTL: cfg.Cache.LeaderboardTTL,
	})
	if err != nil {
		return err
	}

	lib, err := content.NewLibrary(st)
	if err != nil {
		return err
	}

	var gen *quizgen.Generator
	if cfg.HasAIProvider() {
		router := newAIRouter(cfg.AI)
		gen, err = quizgen.New(st, router, quizgen.WithBudget(budget))
		if err != nil {
			return err
		}
		slog.Info("AI authoring enabled", "providers", router.Providers())
	} else {
		slog.Warn("no AI provider configured, quiz generation and content processing disabled")
	}

	hub := realtime.NewHub(bus, func(ctx context.Context, viewerID string) (any, error) {
		return svc.Leaderboard(ctx, viewerID)
	})
	if err := hub.Start(ctx); err != nil {
		return fmt.Errorf("start leaderboard hub: %w", err)
	}

	verifier, err := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if err != nil {
		return err
	}
	handler, err := api.NewServer(api.Config{
		Learning: svc,
		Content:  lib,
		Quizzes:  gen,
		Hub:      hub,
		Verifier: verifier,
		Checks:   checks,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	return nil
}

func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return slog.New(slog.NewJSONHandler(w, opts)), nil
}

// newAIRouter registers every provider with credentials, in fallback order.
func newAIRouter(cfg config.AIConfig) *ai.Router {
	router := ai.NewRouter()
	if cfg.OpenAIKey != "" {
		router.Register("openai", ai.NewOpenAIProvider(cfg.OpenAIKey))
	}
	if cfg.AnthropicKey != "" {
		p, err := ai.NewAnthropicProvider(cfg.AnthropicKey)
		if err != nil {
			slog.Warn("skipping anthropic provider", "error", err)
		} else {
			router.Register("anthropic", p)
		}
	}
	if cfg.GoogleKey != "" {
		router.Register("google", ai.NewGoogleProvider(cfg.GoogleKey))
	}
	if cfg.DeepSeekKey != "" {
		router.Register("deepseek", ai.NewDeepSeekProvider(cfg.DeepSeekKey))
	}
	if cfg.OpenRouterKey != "" {
		router.Register("openrouter", ai.NewOpenRouterProvider(cfg.OpenRouterKey))
	}
	if cfg.OllamaEnabled {
		router.Register("ollama", ai.NewOllamaProvider(cfg.OllamaURL))
	}
	if cfg.QuizModel != "" {
		router.SetTaskModel(ai.TaskQuizGeneration, cfg.QuizModel)
	}
	if cfg.ContentModel != "" {
		router.SetTaskModel(ai.TaskContentReview, cfg.ContentModel)
	}
	return router
}

func seedCurriculum(ctx context.Context, path string, s curriculum.Seeder) error {
	loader, err := curriculum.NewLoader(path)
	if err != nil {
		return fmt.Errorf("load curriculum: %w", err)
	}
	if err := loader.Seed(ctx, s); err != nil {
		return err
	}
	slog.Info("curriculum seeded", "path", path, "days", len(loader.Days()))
	return nil
}

// Package app assembles the long-lived components shared by the HTTP server
// and the terminal client: config -> chat model -> generation -> sessions.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zhouzirui/wp-fixit/backend/internal/config"
	"github.com/zhouzirui/wp-fixit/backend/internal/model/preset"
	chatService "github.com/zhouzirui/wp-fixit/backend/internal/service/chat"
	"github.com/zhouzirui/wp-fixit/backend/internal/service/generation"
)

// App holds the wired services.
type App struct {
	Presets    preset.Store
	Chat       *chatService.Service
	Generation *generation.Service
}

// Options controls assembly.
type Options struct {
	// RequireGeneration turns a missing or broken model into an error instead
	// of a warning.
	RequireGeneration bool
}

// New builds the services described by cfg.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*App, error) {
	presets, err := preset.Load(cfg.Presets.File)
	if err != nil {
		return nil, fmt.Errorf("load presets: %w", err)
	}
	if cfg.Presets.File != "" {
		logger.Info("preset catalog loaded", "file", cfg.Presets.File, "issues", len(presets.List()))
	}

	gen, err := newGeneration(ctx, cfg.Generation, logger)
	if err != nil {
		if opts.RequireGeneration {
			return nil, err
		}
		logger.Warn("continuing without generation", "error", err)
	}

	// A nil *generation.Service must not become a non-nil Generator.
	var generator chatService.Generator
	if gen != nil {
		generator = gen
	}

	chatSvc := chatService.NewService(generator, logger, chatService.Options{Timeout: cfg.Generation.Timeout})
	return &App{Presets: presets, Chat: chatSvc, Generation: gen}, nil
}

// Close releases session subscribers.
func (a *App) Close() {
	a.Chat.Close()
}

func newGeneration(ctx context.Context, cfg config.GenerationConfig, logger *slog.Logger) (*generation.Service, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("%s credentials not configured", cfg.Provider)
	}

	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}

	svc, err := generation.NewService(ctx, chatModel, generation.Options{HistoryLimit: cfg.HistoryLimit}, logger)
	if err != nil {
		return nil, fmt.Errorf("create generation service: %w", err)
	}

	logger.Info("generation ready",
		"provider", cfg.Provider,
		"model", cfg.Model,
		"grounding", cfg.Grounding,
		"history_limit", cfg.HistoryLimit,
		"timeout", cfg.Timeout)
	return svc, nil
}

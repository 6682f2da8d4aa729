package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-telegram/bot"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/set-night/mindchat/internal/bootstrap"
	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/handler"
	"github.com/set-night/mindchat/internal/middleware"
	"github.com/set-night/mindchat/internal/service"
	"github.com/set-night/mindchat/internal/telegram"
)

func main() {
	// A missing .env is fine, the environment may already be populated
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	bootstrap.SetupLogging(cfg.LogLevel)

	if cfg.BotToken == "" {
		slog.Error("BOT_TOKEN is required")
		os.Exit(1)
	}

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	factory, closeFactory, err := bootstrap.NewFactory(ctx, cfg)
	if err != nil {
		slog.Error("failed to prepare data backend", "error", err)
		os.Exit(1)
	}
	defer closeFactory()

	// One chat client per Telegram chat
	registry := service.NewRegistry(factory.NewClient, cfg.ClientIdleTTL)

	tgLogger := telegram.NewTelegramLogger(cfg)

	opts := []bot.Option{
		bot.WithMiddlewares(
			middleware.Recover(tgLogger),
			middleware.RateLimit(middleware.NewChatLimiter(cfg.RateLimitPerMin)),
			middleware.ClientLoader(registry),
			middleware.Logging(),
		),
	}
	b, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		slog.Error("failed to create bot", "error", err)
		os.Exit(1)
	}
	tgLogger.SetBot(b)

	if cfg.DropPendingUpdates {
		if _, err := b.DeleteWebhook(ctx, &bot.DeleteWebhookParams{DropPendingUpdates: true}); err != nil {
			slog.Warn("failed to drop pending updates", "error", err)
		}
	}

	me, err := b.GetMe(ctx)
	if err != nil {
		slog.Error("failed to get bot info", "error", err)
		os.Exit(1)
	}

	h := handler.New(handler.Deps{
		Bot:      b,
		Cfg:      cfg,
		TgLogger: tgLogger,
	})
	h.Register()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return registry.Run(gctx)
	})
	g.Go(func() error {
		slog.Info("starting bot", "username", me.Username, "id", me.ID)
		b.Start(gctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("bot stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("bot stopped gracefully")
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/AnshRaj112/mooddrop-backend/internal/community"
	"github.com/AnshRaj112/mooddrop-backend/internal/config"
	"github.com/AnshRaj112/mooddrop-backend/internal/handlers"
	"github.com/AnshRaj112/mooddrop-backend/internal/messages"
	"github.com/AnshRaj112/mooddrop-backend/internal/middleware"
	"github.com/AnshRaj112/mooddrop-backend/internal/routes"
	"github.com/AnshRaj112/mooddrop-backend/internal/services"
	"github.com/AnshRaj112/mooddrop-backend/pkg/clientip"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	envErr := godotenv.Load()

	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if envErr != nil {
		logger.Info("No .env file found")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	be, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer be.close()

	hub := community.NewHub(logger)
	if be.redis != nil {
		go hub.RunRedisRelay(ctx, be.redis, uuid.NewString())
	}
	feed := community.NewFeed(be.store, community.WithFeedLogger(logger), community.WithPublisher(hub.Publish))

	shared := messages.NewClient(cfg.MessagesAPIURL, logger)
	if shared.Enabled() {
		logger.Info("✅ Sharing to messages API enabled", "url", cfg.MessagesAPIURL)
	} else {
		logger.Info("Warning: MESSAGES_API_URL not set. Shared echoes stay on this server")
	}

	devices := services.NewDevices(be.store, services.DevicesConfig{
		GracePeriod:   cfg.UndoGrace,
		PostCooldown:  cfg.PostCooldown,
		ReplyCooldown: cfg.ReplyCooldown,
		Messages:      shared,
		Logger:        logger,
	})
	devices.StartCleanup(ctx)
	defer devices.Shutdown()

	clientip.TrustProxy(cfg.TrustProxy)

	r := chi.NewRouter()

	// Custom CORS: set headers and respond to OPTIONS with 200 so preflight never gets 403
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Production: SecurityHeaders → HostCheck → GlobalRateLimit → CommunityWriteRateLimit
	// Non-production: Redis-based rate limit when Redis is the store, community limit only otherwise
	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity(cfg.AllowedHost) {
			r.Use(mw)
		}
		logger.Info("✅ Production security enabled (security headers, per-IP + community write rate limiting)")
	} else {
		if be.redis != nil {
			r.Use(middleware.RedisRateLimit(be.redis))
		}
		r.Use(middleware.CommunityWriteRateLimit)
	}

	api := handlers.NewAPI(devices, feed, hub, logger)
	routes.SetupRoutes(r, api)

	logger.Info("📋 Registered routes:")
	_ = chi.Walk(r, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		logger.Info(fmt.Sprintf("  %-6s %s", method, strings.TrimSuffix(route, "/*")))
		return nil
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info(fmt.Sprintf("🚀 MoodDrop backend running on :%s", cfg.Port), "store", cfg.StoreDriver, "env", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server exited with error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

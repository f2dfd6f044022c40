package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/bert4lyf/chit-chat/internal/api"
	"github.com/bert4lyf/chit-chat/internal/bus"
	"github.com/bert4lyf/chit-chat/internal/chat"
	"github.com/bert4lyf/chit-chat/internal/config"
	"github.com/bert4lyf/chit-chat/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Select store backend
	var st store.Store
	switch cfg.Store {
	case "redis":
		redisStore, err := store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		st = redisStore
		logger.Info().Msg("connected to Redis")
	default:
		st = store.NewMemoryStore()
		logger.Info().Msg("using in-memory store")
	}
	defer st.Close()

	// Wire up the core
	eventBus := bus.New()
	svc := chat.NewService(st, eventBus, logger, cfg.RoomTTL)
	sweeper := chat.NewSweeper(svc, st, cfg.SweepInterval, logger)
	go sweeper.Run(ctx)

	// Create router
	router := api.NewRouter(logger, svc, eventBus, st)

	// Create server. No WriteTimeout: event streams stay open until the room
	// dies, which can be the full room TTL.
	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Str("store", cfg.Store).
			Dur("room_ttl", cfg.RoomTTL).
			Msg("starting chit-chat server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Stop the sweeper, then drain HTTP with a 30 second timeout
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}

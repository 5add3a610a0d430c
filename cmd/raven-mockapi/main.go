package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	appconfig "github.com/wolfman30/raven-widget/internal/config"
	"github.com/wolfman30/raven-widget/internal/mockapi"
	"github.com/wolfman30/raven-widget/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found, using environment variables")
	}

	cfg, err := appconfig.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logger.Info("starting raven mock chat API",
		"env", cfg.Env,
		"port", cfg.MockAPIPort,
		"reply_delay", cfg.MockAPIReplyDelay.String(),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.MockAPIPort,
		Handler:      newHandler(cfg, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// newHandler serves the demo profile for every business id.
func newHandler(cfg *appconfig.Config, logger *logging.Logger) http.Handler {
	demo := mockapi.DemoProfile()
	return mockapi.New(mockapi.Config{
		Logger:             logger,
		Fallback:           &demo,
		ReplyDelay:         cfg.MockAPIReplyDelay,
		CORSAllowedOrigins: cfg.MockAPICORSOrigins,
		ChatRatePerMinute:  cfg.MockAPIChatRate,
	}).Routes()
}

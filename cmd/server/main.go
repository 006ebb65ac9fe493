package main

import (
	"context"
	"log/slog"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/joho/godotenv"

	"github.com/Tyrowin/lobby/internal/server"
)

func main() {
	envErr := godotenv.Load()

	config := server.NewConfigFromEnv()
	logger := setupLogger(config.LogLevel, config.LogFormat)
	if envErr != nil {
		logger.Debug("no .env file loaded", "error", envErr)
	}

	logger.Info("starting lobby server",
		"port", config.Port,
		"origins", config.AllowedOrigins,
		"delivery_timeout", config.DeliveryTimeout,
		"fanout_concurrency", config.FanoutConcurrency)

	srv := server.New(*config, logger)
	srv.Start()

	go func() {
		if err := srv.ListenAndServe(); err != nil {
			logger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		config.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"lobby-server": func(ctx context.Context) error {
				logger.Info("graceful shutdown initiated")
				return srv.Shutdown(ctx)
			},
		},
	)

	exitCode := <-wait
	logger.Info("server exited", "code", exitCode)
	os.Exit(exitCode)
}

func setupLogger(levelName, format string) *slog.Logger {
	level := slog.LevelInfo
	switch levelName {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"routerdash/backend/rdashd/internal/config"
	"routerdash/backend/rdashd/internal/server"
	"routerdash/backend/rdashd/internal/session"
	"routerdash/backend/rdashd/internal/traffic"
)

const defaultConfigPath = "/etc/rdashd/config.yaml"

func main() {
	path := os.Getenv("RDASH_CONFIG")
	if path == "" {
		path = defaultConfigPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("config load failed")
	}
	cfg = config.FromEnv(cfg)
	if cfg.DeviceURL == "" {
		log.Fatal().Msg("RDASH_DEVICE_URL (or device_url in config) is required")
	}

	zerolog.TimeFieldFormat = time.RFC3339
	logger := log.Logger.Level(cfg.LogLevel).With().Timestamp().Logger()

	var history *traffic.History
	if cfg.HistoryPath != "" {
		history, err = traffic.NewHistory(logger, cfg.HistoryPath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.HistoryPath).Msg("traffic history open failed")
		}
		defer history.Close()
	}

	registry := session.NewRegistry(logger, session.Config{
		DeviceURL:    cfg.DeviceURL,
		InsecureTLS:  cfg.InsecureTLS,
		IdleTTL:      cfg.SessionTTL,
		PollBaseline: cfg.PollBaseline,
		WindowSize:   cfg.WindowSize,
	}, nil, history)
	if err := registry.StartJanitor(); err != nil {
		logger.Fatal().Err(err).Msg("janitor start failed")
	}
	defer registry.Close()

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port),
		Handler: server.New(logger, cfg, registry, history).Routes(),
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		logger.Info().Msg("shutting down")
		_ = srv.Close()
	}()

	logger.Info().Str("device", cfg.DeviceURL).Msgf("rdashd listening on http://%s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("server exited")
	}
}

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"

	"github.com/andy6609/room-chat-server/internal/chat"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	srv := chat.NewServer(cfg, logger, chat.SlogSink{Logger: logger})
	if err := srv.Start(); err != nil {
		logger.Error("failed to start server", "error", err)
		os.Exit(1)
	}

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logger.Error("metrics listener failed", "error", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	srv.Stop()
}

// loadConfig reads settings from an optional config.yaml and CHAT_* env vars,
// falling back to the package defaults.
func loadConfig() (chat.Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("CHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := chat.DefaultConfig()
	v.SetDefault("addr", def.Addr)
	v.SetDefault("metrics_addr", def.MetricsAddr)
	v.SetDefault("idle_timeout", def.IdleTimeout)
	v.SetDefault("sweep_interval", def.SweepInterval)
	v.SetDefault("outbound_queue", def.OutboundQueue)
	v.SetDefault("read_buffer", def.ReadBuffer)
	v.SetDefault("event_buffer", def.EventBuffer)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return chat.Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	return chat.Config{
		Addr:          v.GetString("addr"),
		MetricsAddr:   v.GetString("metrics_addr"),
		IdleTimeout:   v.GetDuration("idle_timeout"),
		SweepInterval: v.GetDuration("sweep_interval"),
		OutboundQueue: v.GetInt("outbound_queue"),
		ReadBuffer:    v.GetInt("read_buffer"),
		EventBuffer:   v.GetInt("event_buffer"),
	}, nil
}

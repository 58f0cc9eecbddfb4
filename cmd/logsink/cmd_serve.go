package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/buession/buession-logging-sub001/internal/ingest"
	"github.com/buession/buession-logging-sub001/internal/platform/config"
	"github.com/buession/buession-logging-sub001/internal/platform/httpserver"
	"github.com/buession/buession-logging-sub001/internal/platform/logger"
	"github.com/buession/buession-logging-sub001/internal/platform/metrics"
	"github.com/buession/buession-logging-sub001/pkg/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Accept events over HTTP and deliver them to the configured sinks",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "Listen address")
	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	m := metrics.New()
	sinks, err := openSinks(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer sinks.Close()

	dispatcher := logging.NewDispatcher(sinks.handlers,
		logging.WithDispatchLogger(log),
		logging.WithObserver(m),
	)

	opts := []ingest.Option{
		ingest.WithRecorder(m),
		ingest.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
	}
	for name, check := range sinks.checks {
		opts = append(opts, ingest.WithHealthCheck(name, check))
	}
	h, err := ingest.New(dispatcher, log, opts...)
	if err != nil {
		return err
	}

	log.Info("starting logsink", "addr", cfg.Server.Addr, "sinks", dispatcher.Names())
	srv := httpserver.New(cfg.Server.Addr, ingest.NewRouter(h, m.Handler()))
	return httpserver.Run(ctx, srv, cfg.Server.ShutdownTimeout, log)
}

// loadConfig reads configuration and installs the process logger as the
// slog default.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	file, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(viper.GetViper(), file)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return config.Config{}, nil, err
	}
	slog.SetDefault(log)
	return cfg, log, nil
}


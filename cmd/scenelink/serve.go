package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/scenelink-dev/scenelink/internal/config"
	"github.com/scenelink-dev/scenelink/pkg/server"
)

func serveCmd() *cobra.Command {
	var (
		configPath string
		listen     string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scene receiver",
		Long: `Run the scene receiver.

Producers connect on /scenelink; /healthz and /metrics serve the
operational surface.

Examples:
  scenelink serve
  scenelink serve --config /etc/scenelink.toml
  scenelink serve --listen :9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, listen)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to TOML config file")
	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Bind address (overrides config)")

	return cmd
}

func runServe(configPath, listen string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Server.Listen = listen
	}

	log := newLogger(cfg.Log)
	slog.SetDefault(log)

	opts, err := screenshotOptions(cfg.Screenshot)
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		Name:              cfg.Server.Name,
		ReadTimeout:       cfg.Server.ReadTimeout.Duration,
		WriteTimeout:      cfg.Server.WriteTimeout.Duration,
		HeartbeatInterval: cfg.Server.HeartbeatInterval.Duration,
		RequestQueue:      cfg.Server.RequestQueue,
		Logger:            log,
	}, opts...)

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	go srv.Run(ctx)

	httpSrv := &http.Server{
		Addr:    cfg.Server.Listen,
		Handler: srv.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Server.Listen, "name", cfg.Server.Name)
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// screenshotOptions wires the configured screenshot store. S3 wins when a
// bucket is set; a directory store otherwise; none when neither is set.
func screenshotOptions(cfg config.ScreenshotConfig) ([]server.Option, error) {
	switch {
	case cfg.S3Bucket != "":
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
		if err != nil {
			return nil, err
		}
		store := server.NewS3Store(s3.NewFromConfig(awsCfg), cfg.S3Bucket, cfg.S3Prefix)
		return []server.Option{server.WithScreenshotStore(store)}, nil
	case cfg.Dir != "":
		return []server.Option{server.WithScreenshotStore(&server.DirStore{Dir: cfg.Dir})}, nil
	default:
		return nil, nil
	}
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.JSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

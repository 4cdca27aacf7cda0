package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newthinker/tradelab/internal/api"
	"github.com/newthinker/tradelab/internal/app"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tradelab HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app.App, log *zap.Logger) error {
		cfg := a.Config()

		log.Info("starting tradelab server",
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
			zap.String("provider", a.Provider().Name()),
		)

		metricsPath := ""
		if cfg.Metrics.Enabled {
			metricsPath = cfg.Metrics.Path
		}

		server, err := api.NewServer(api.Config{
			Host:            cfg.Server.Host,
			Port:            cfg.Server.Port,
			APIKey:          cfg.Server.APIKey,
			JobTTL:          time.Duration(cfg.Server.JobTTLHours) * time.Hour,
			MaxJobs:         cfg.Server.MaxJobs,
			BacktestTimeout: cfg.Backtest.Timeout,
			MetricsPath:     metricsPath,
		}, api.Dependencies{
			Backtester: a.Backtester(),
			Strategies: a.Strategies(),
			Metrics:    a.Metrics(),
		}, log)
		if err != nil {
			return fmt.Errorf("creating server: %w", err)
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start()
		}()

		// Wait for shutdown signal
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
		case err := <-errCh:
			return err
		}

		log.Info("shutting down tradelab server")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		return server.Shutdown(ctx)
	})
}

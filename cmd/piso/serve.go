package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/piso3/piso/internal/api"
	"github.com/piso3/piso/internal/metrics"
	"github.com/piso3/piso/internal/reminder"
	"github.com/piso3/piso/internal/web"
)

func serveCommand(c *cli) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				c.cfg.Addr = addr
			}
			return serve(cmd.Context(), c)
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (overrides config)")
	return cmd
}

func serve(ctx context.Context, c *cli) error {
	cfg := c.cfg

	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	secret, err := sessionSecret(ctx, cfg, database)
	if err != nil {
		return err
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}
	sweeper := newSweeper(cfg, database, m)

	apiRouter := api.NewRouter(api.Options{
		DB:         database,
		JWTSecret:  secret,
		SessionTTL: cfg.SessionTTL,
		CronSecret: cfg.CronSecret,
		Location:   cfg.Location(),
		Sweeper:    sweeper,
		Metrics:    m,
	})
	webRouter, err := web.NewRouter(web.Options{
		DB:         database,
		JWTSecret:  secret,
		SessionTTL: cfg.SessionTTL,
		Location:   cfg.Location(),
		Metrics:    m,
	})
	if err != nil {
		return err
	}

	// API routes take priority, web routes handle the rest.
	mux := http.NewServeMux()
	mux.Handle("/api/", apiRouter)
	if m != nil {
		mux.Handle("GET /metrics", m.Handler())
	}
	mux.Handle("/", webRouter)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.LoggingMiddleware(m, mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.CronSecret == "" {
		slog.Warn("cron_secret not set, /api/cron/notifications is disabled")
	}
	var scheduler *reminder.Scheduler
	if cfg.Reminder.Interval > 0 {
		scheduler = reminder.NewScheduler(sweeper, cfg.Reminder.Interval)
		scheduler.Start(ctx)
		slog.Info("reminder scheduler started", "interval", cfg.Reminder.Interval)
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Addr, "timezone", cfg.Location().String())
	err = server.ListenAndServe()
	if scheduler != nil {
		scheduler.Stop()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	slog.Info("server stopped, closing database")
	return nil
}

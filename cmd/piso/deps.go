package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/piso3/piso/internal/config"
	"github.com/piso3/piso/internal/db"
	"github.com/piso3/piso/internal/mail"
	"github.com/piso3/piso/internal/metrics"
	"github.com/piso3/piso/internal/reminder"
	"github.com/piso3/piso/internal/store"
)

// openDatabase opens the configured database and brings its schema up to date.
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	database, err := db.Open(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(database); err != nil {
		database.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	slog.Info("database ready", "path", cfg.DatabasePath)
	return database, nil
}

// sessionSecret returns the configured signing secret, or the one generated
// and stored in the database on first use.
func sessionSecret(ctx context.Context, cfg *config.Config, database *sql.DB) (string, error) {
	if cfg.JWTSecret != "" {
		return cfg.JWTSecret, nil
	}
	secret, err := store.GetSessionSecret(ctx, database)
	if err != nil {
		return "", fmt.Errorf("loading session secret: %w", err)
	}
	return secret, nil
}

// newMailer returns the Resend client when an API key is configured and a
// logging stand-in otherwise.
func newMailer(cfg *config.Config) mail.Mailer {
	if cfg.Mail.APIKey == "" {
		slog.Warn("mail.api_key not set, reminder emails will only be logged")
		return mail.LogMailer{}
	}
	return mail.NewResend(cfg.Mail.BaseURL, cfg.Mail.APIKey, cfg.Mail.From, cfg.Mail.Timeout)
}

func newSweeper(cfg *config.Config, database *sql.DB, m *metrics.Metrics) *reminder.Sweeper {
	return reminder.New(database, newMailer(cfg), reminder.Options{
		Workers:       cfg.Reminder.Workers,
		Location:      cfg.Location(),
		DashboardURL:  cfg.AppURL,
		OverduePolicy: reminder.OverduePolicy(cfg.Reminder.OverduePolicy),
		Metrics:       m,
	})
}

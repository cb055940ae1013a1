// Package reminder implements the notification sweep: for every restocked
// supply it emails the current holder when the supply is about to run out
// and when it runs out, at most once per calendar day and kind.
package reminder

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/piso3/piso/internal/mail"
	"github.com/piso3/piso/internal/metrics"
	"github.com/piso3/piso/internal/model"
	"github.com/piso3/piso/internal/rotation"
	"github.com/piso3/piso/internal/store"
)

// OverduePolicy decides on which days an overdue notice is sent.
type OverduePolicy string

const (
	// PolicyDueDay sends the overdue notice only on the day the supply runs out.
	PolicyDueDay OverduePolicy = "due_day"
	// PolicyDaily keeps sending it every day until the turn is completed.
	PolicyDaily OverduePolicy = "daily"
)

// Outcome statuses.
const (
	StatusSent    = "sent"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// Options configures a Sweeper.
type Options struct {
	Workers       int
	Location      *time.Location
	DashboardURL  string
	OverduePolicy OverduePolicy
	Metrics       *metrics.Metrics
	Logger        *slog.Logger
}

// Outcome is the result of one notification considered by a sweep.
type Outcome struct {
	SupplyID      int64  `json:"supply_id"`
	Supply        string `json:"supply"`
	RoommateID    int64  `json:"roommate_id"`
	Roommate      string `json:"user"`
	Kind          string `json:"type"`
	DaysRemaining int    `json:"days_remaining"`
	Status        string `json:"status"`
	Error         string `json:"error,omitempty"`
}

// Report summarizes a sweep.
type Report struct {
	Day           string    `json:"day"`
	Sent          int       `json:"sent"`
	Failed        int       `json:"failed"`
	Skipped       int       `json:"skipped"`
	Notifications []Outcome `json:"notifications"`
	Timestamp     time.Time `json:"timestamp"`
}

// Sweeper runs reminder sweeps against the database.
type Sweeper struct {
	db     *sql.DB
	mailer mail.Mailer
	opts   Options
}

// New creates a Sweeper. Zero options fall back to one worker, UTC and the
// due-day overdue policy.
func New(db *sql.DB, mailer mail.Mailer, opts Options) *Sweeper {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.OverduePolicy == "" {
		opts.OverduePolicy = PolicyDueDay
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Sweeper{db: db, mailer: mailer, opts: opts}
}

// Run performs one sweep at now. A failure for one supply or one send never
// stops the others; the error return is reserved for failing to read the
// ledger at all.
func (s *Sweeper) Run(ctx context.Context, now time.Time) (*Report, error) {
	start := time.Now()
	defer func() { s.opts.Metrics.ObserveSweep(time.Since(start)) }()

	supplies, err := store.ListSupplies(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("loading supplies: %w", err)
	}
	roommates, err := store.ListRoommates(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("loading roommates: %w", err)
	}
	byID := make(map[int64]model.Roommate, len(roommates))
	for _, r := range roommates {
		byID[r.ID] = r
	}

	report := &Report{
		Day:           now.In(s.opts.Location).Format(model.DateLayout),
		Notifications: []Outcome{},
		Timestamp:     now.UTC(),
	}

	jobs := make(chan model.Supply)
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for range min(s.opts.Workers, max(len(supplies), 1)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for supply := range jobs {
				outcomes := s.sweepSupply(ctx, supply, byID, report.Day, now)
				mu.Lock()
				report.Notifications = append(report.Notifications, outcomes...)
				mu.Unlock()
			}
		}()
	}

	for _, supply := range supplies {
		if supply.LastRestock == nil {
			continue
		}
		select {
		case jobs <- supply:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(jobs)
	wg.Wait()

	slices.SortFunc(report.Notifications, func(a, b Outcome) int {
		return cmp.Or(cmp.Compare(a.SupplyID, b.SupplyID), cmp.Compare(a.Kind, b.Kind))
	})
	for _, o := range report.Notifications {
		switch o.Status {
		case StatusSent:
			report.Sent++
		case StatusError:
			report.Failed++
		default:
			report.Skipped++
		}
	}

	s.opts.Logger.Info("reminder sweep finished",
		"day", report.Day,
		"sent", report.Sent,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"duration", time.Since(start),
	)
	return report, ctx.Err()
}

func (s *Sweeper) sweepSupply(ctx context.Context, supply model.Supply, roommates map[int64]model.Roommate, day string, now time.Time) []Outcome {
	holder, ok := roommates[supply.CurrentHolderID]
	if !ok {
		s.opts.Logger.Warn("supply holder not found", "supply", supply.ID, "holder", supply.CurrentHolderID)
		return nil
	}

	status := rotation.StatusAt(supply, now)
	remaining := status.DaysRemaining

	var outcomes []Outcome
	if remaining >= 0 && remaining <= holder.NotificationDays {
		outcomes = append(outcomes, s.notify(ctx, supply, holder, status, model.NotificationReminder, day, now))
	}
	if s.overdue(remaining) {
		outcomes = append(outcomes, s.notify(ctx, supply, holder, status, model.NotificationOverdue, day, now))
	}
	return outcomes
}

func (s *Sweeper) overdue(remaining int) bool {
	if s.opts.OverduePolicy == PolicyDaily {
		return remaining <= 0
	}
	return remaining == 0
}

// notify claims the ledger row for the notification and, if this sweep won
// the claim, makes the single send attempt and records its result.
func (s *Sweeper) notify(ctx context.Context, supply model.Supply, holder model.Roommate, status rotation.Status, kind, day string, now time.Time) Outcome {
	out := Outcome{
		SupplyID:      supply.ID,
		Supply:        supply.Name,
		RoommateID:    holder.ID,
		Roommate:      holder.Name,
		Kind:          kind,
		DaysRemaining: status.DaysRemaining,
	}
	logger := s.opts.Logger.With("supply", supply.Name, "user", holder.Username, "kind", kind)

	id, claimed, err := store.ClaimNotification(ctx, s.db, supply.ID, holder.ID, kind, day, now)
	if err != nil {
		logger.Error("claiming notification", "error", err)
		out.Status, out.Error = StatusError, err.Error()
		s.opts.Metrics.Notification(kind, out.Status)
		return out
	}
	if !claimed {
		out.Status = StatusSkipped
		s.opts.Metrics.Notification(kind, out.Status)
		return out
	}

	sendErr := s.send(ctx, supply, holder, status, kind)
	if err := store.FinishNotification(ctx, s.db, id, sendErr, now); err != nil {
		logger.Error("recording notification outcome", "error", err)
	}

	if sendErr != nil {
		logger.Error("sending notification", "error", sendErr)
		out.Status, out.Error = StatusError, sendErr.Error()
	} else {
		logger.Info("notification sent", "days_remaining", status.DaysRemaining)
		out.Status = StatusSent
	}
	s.opts.Metrics.Notification(kind, out.Status)
	return out
}

func (s *Sweeper) send(ctx context.Context, supply model.Supply, holder model.Roommate, status rotation.Status, kind string) error {
	notice := mail.Notice{
		RoommateName:  holder.Name,
		Email:         holder.Email,
		SupplyName:    supply.Name,
		DaysRemaining: status.DaysRemaining,
		DashboardURL:  s.opts.DashboardURL,
	}
	if status.ExpiresAt != nil {
		notice.ExpiresAt = status.ExpiresAt.In(s.opts.Location)
	}

	var (
		msg mail.Message
		err error
	)
	if kind == model.NotificationOverdue {
		msg, err = mail.OverdueMessage(notice)
	} else {
		msg, err = mail.ReminderMessage(notice)
	}
	if err != nil {
		return err
	}
	return s.mailer.Send(ctx, msg)
}

package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/piso3/piso/internal/reminder"
)

// CronHandler runs the reminder sweep for an external scheduler.
type CronHandler struct {
	Sweeper *reminder.Sweeper
	Now     func() time.Time
}

// Notifications handles GET /api/cron/notifications.
func (h *CronHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	report, err := h.Sweeper.Run(r.Context(), h.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("cron sweep completed", "sent", report.Sent, "failed", report.Failed, "request_id", RequestID(r.Context()))
	jsonResponse(w, http.StatusOK, report)
}

package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rbacgate/rbacgate/internal/platform/httpx"
)

// Pinger is anything that can report its own reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status    string    `json:"status"`
	Database  string    `json:"database"`
	Sessions  string    `json:"sessions"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthHandler probes the database and the session store concurrently.
type HealthHandler struct {
	Database Pinger
	Sessions Pinger
	Logger   *slog.Logger
	Timeout  time.Duration
}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	var dbErr, sessErr error
	var g errgroup.Group
	g.Go(func() error {
		dbErr = probe(ctx, h.Database)
		return nil
	})
	g.Go(func() error {
		sessErr = probe(ctx, h.Sessions)
		return nil
	})
	_ = g.Wait()

	status := HealthStatus{
		Status:    "healthy",
		Database:  connection(dbErr),
		Sessions:  connection(sessErr),
		Timestamp: time.Now().UTC(),
	}
	code := http.StatusOK
	if dbErr != nil || sessErr != nil {
		status.Status = "unhealthy"
		code = http.StatusServiceUnavailable
		if h.Logger != nil {
			h.Logger.WarnContext(r.Context(), "health check failed",
				slog.Any("database_error", dbErr),
				slog.Any("sessions_error", sessErr))
		}
	}
	httpx.JSON(w, code, status)
}

func probe(ctx context.Context, p Pinger) error {
	if p == nil {
		return nil
	}
	return p.Ping(ctx)
}

func connection(err error) string {
	if err != nil {
		return "disconnected"
	}
	return "connected"
}

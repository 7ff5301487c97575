package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/kirinyoku/atelier/internal/metrics"
)

const deliverTimeout = 30 * time.Second

// Outcome is the side-channel result of a notification attempt. A failed
// delivery never fails the booking operation that triggered it.
type Outcome struct {
	Sent  bool
	Error string
}

// Deliver runs send detached from the caller's cancellation, logs the result
// and records it in m.
func Deliver(
	ctx context.Context,
	logger *slog.Logger,
	m *metrics.Metrics,
	what string,
	send func(ctx context.Context) error,
) Outcome {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deliverTimeout)
	defer cancel()

	err := send(ctx)
	switch {
	case err == nil:
		m.Notification("sent")
		return Outcome{Sent: true}
	case IsNotConfigured(err):
		m.Notification("skipped")
		logger.Info("notification skipped", "what", what, "reason", err)
	default:
		m.Notification("failed")
		logger.Warn("notification failed", "what", what, "error", err)
	}

	return Outcome{Error: err.Error()}
}

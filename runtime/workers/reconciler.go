package workers

import (
	"context"
	"log/slog"
	"time"

	"support-chat/domain"
)

// Dispatcher is the slice of the router the reconciler needs: a way to
// post commands into the event loop.
type Dispatcher interface {
	Dispatch(cmd domain.Command)
}

// Reconciler periodically asks the loop to reconcile the peer set
// against the server's authoritative list. Posting a command instead of
// touching the roster keeps every mutation on the loop goroutine.
type Reconciler struct {
	log      *slog.Logger
	router   Dispatcher
	interval time.Duration
}

func NewReconciler(log *slog.Logger, router Dispatcher, interval time.Duration) *Reconciler {
	return &Reconciler{log: log, router: router, interval: interval}
}

func (w *Reconciler) Run(ctx context.Context) error {
	w.log.Info("Starting roster reconciler", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.router.Dispatch(domain.RefreshRoster{})
		}
	}
}

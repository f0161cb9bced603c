package workers

import (
	"batepapo-uol-api/contract"
	"batepapo-uol-api/domain"
	"batepapo-uol-api/observability"
	"context"
	"log/slog"
	"time"
)

// PresenceSweeper periodically evicts idle participants and announces their
// departure. One failed announcement never blocks the others.
type PresenceSweeper struct {
	log               *slog.Logger
	registry          contract.IRegistry
	messageLog        contract.IMessageLog
	monitoring        *observability.MonitoringManager
	interval          time.Duration
	inactivityTimeout time.Duration
}

func NewPresenceSweeper(
	log *slog.Logger,
	registry contract.IRegistry,
	messageLog contract.IMessageLog,
	monitoring *observability.MonitoringManager,
	interval, inactivityTimeout time.Duration,
) *PresenceSweeper {
	return &PresenceSweeper{
		log:               log,
		registry:          registry,
		messageLog:        messageLog,
		monitoring:        monitoring,
		interval:          interval,
		inactivityTimeout: inactivityTimeout,
	}
}

func (w *PresenceSweeper) Run(ctx context.Context) error {
	w.log.Info("Starting presence sweeper", "interval", w.interval, "inactivity_timeout", w.inactivityTimeout)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs a single eviction pass and returns the evicted names.
// Leave events are appended while the registry still holds the eviction, so a
// participant joining again under the same name is announced after it.
// Errors are logged, never returned, so the loop keeps going.
func (w *PresenceSweeper) Sweep(ctx context.Context) []string {
	evicted, err := w.registry.EvictStaleOlderThan(ctx, w.inactivityTimeout, func(name string) {
		if _, err := w.messageLog.Append(ctx, domain.NewLeaveEvent(name)); err != nil {
			w.log.Error("Leave announcement lost", "name", name, "error", err)
			w.monitoring.IncrSweepFailures()
			return
		}
		w.log.Info("Participant left", "name", name)
	})
	if err != nil {
		w.log.Error("Presence sweep failed", "error", err)
		w.monitoring.IncrSweepFailures()
		return nil
	}
	if len(evicted) == 0 {
		return nil
	}
	w.monitoring.IncrParticipantsEvicted(len(evicted))
	return evicted
}

package history

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically evicts expired records from a Store. One failed
// cycle never stops future cycles; cancellation takes effect at the next
// sleep boundary and an in-flight sweep is allowed to finish.
type Sweeper struct {
	store        *Store
	retention    time.Duration
	interval     time.Duration
	initialDelay time.Duration
	log          *slog.Logger
	onSweep      func(evicted int)
}

func NewSweeper(store *Store, retention, interval, initialDelay time.Duration, logger *slog.Logger) *Sweeper {
	if retention <= 0 {
		retention = time.Hour
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:        store,
		retention:    retention,
		interval:     interval,
		initialDelay: initialDelay,
		log:          logger,
	}
}

// SetSweepHook registers a callback invoked after each completed cycle with
// the number of evicted records. Must be called before Start.
func (s *Sweeper) SetSweepHook(hook func(evicted int)) {
	s.onSweep = hook
}

// Start launches the sweep loop. It returns immediately; the loop exits
// when ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.initialDelay):
		}

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		s.sweep()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

func (s *Sweeper) sweep() {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("history sweep failed", "panic", r)
		}
	}()

	evicted := s.store.Prune(time.Now().UTC(), s.retention)
	if evicted > 0 {
		s.log.Debug("history sweep evicted records", "evicted", evicted, "tracked_users", s.store.TrackedUsers())
	}
	if s.onSweep != nil {
		s.onSweep(evicted)
	}
}

package auditlog

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// NewStore creates a postgres-backed store when configured, otherwise an
// in-memory ring.
func NewStore(ctx context.Context, databaseURL string) (Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewInMemoryStore(), nil
	}
	return NewPostgresStore(ctx, databaseURL)
}

// Log fronts a Store with ID/timestamp assignment and live fan-out to
// subscribers. Store failures are logged, never surfaced to the moderation
// path: a broken audit sink must not block enforcement.
type Log struct {
	store Store
	log   *slog.Logger

	mu        sync.Mutex
	nextSubID int
	subs      map[int]chan Entry
}

func NewLog(store Store, logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{
		store: store,
		log:   logger,
		subs:  make(map[int]chan Entry),
	}
}

// Record fills in the entry's ID and timestamp, appends it to the store and
// notifies subscribers. Slow subscribers are skipped, not waited on.
func (l *Log) Record(ctx context.Context, e Entry) Entry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	if err := l.store.Append(ctx, e); err != nil {
		l.log.Error("audit append failed", "error", err, "user_id", e.UserID)
	}

	l.mu.Lock()
	for _, ch := range l.subs {
		select {
		case ch <- e:
		default:
		}
	}
	l.mu.Unlock()

	return e
}

func (l *Log) Recent(ctx context.Context, limit int) ([]Entry, error) {
	return l.store.Recent(ctx, limit)
}

// Subscribe returns a channel of future entries and a cancel func that
// closes it.
func (l *Log) Subscribe() (<-chan Entry, func()) {
	ch := make(chan Entry, 64)

	l.mu.Lock()
	l.nextSubID++
	id := l.nextSubID
	l.subs[id] = ch
	l.mu.Unlock()

	return ch, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if c, ok := l.subs[id]; ok {
			delete(l.subs, id)
			close(c)
		}
	}
}

func (l *Log) Close() error {
	l.mu.Lock()
	for id, ch := range l.subs {
		delete(l.subs, id)
		close(ch)
	}
	l.mu.Unlock()
	return l.store.Close()
}

package auditlog

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestInMemoryStoreRecentNewestFirst(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := s.Append(ctx, Entry{ID: fmt.Sprintf("e%d", i), UserID: "u1"})
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	got, err := s.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len(Recent) = %d, want 3", len(got))
	}
	if got[0].ID != "e4" || got[1].ID != "e3" || got[2].ID != "e2" {
		t.Fatalf("Recent order = %v, want newest first", got)
	}
}

func TestInMemoryStoreOverwritesAtCapacity(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	for i := 0; i < defaultMemoryCapacity+10; i++ {
		_ = s.Append(ctx, Entry{ID: fmt.Sprintf("e%d", i)})
	}

	got, err := s.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != defaultMemoryCapacity {
		t.Fatalf("len(Recent) = %d, want capacity %d", len(got), defaultMemoryCapacity)
	}
	if got[0].ID != fmt.Sprintf("e%d", defaultMemoryCapacity+9) {
		t.Fatalf("newest entry = %q, want last appended", got[0].ID)
	}
}

func TestLogAssignsIDAndTimestamp(t *testing.T) {
	l := NewLog(NewInMemoryStore(), nil)
	defer l.Close()

	e := l.Record(context.Background(), Entry{UserID: "u1", Source: SourceManual})
	if e.ID == "" {
		t.Fatalf("Record() did not assign an ID")
	}
	if e.CreatedAt.IsZero() {
		t.Fatalf("Record() did not assign a timestamp")
	}

	got, err := l.Recent(context.Background(), 1)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != e.ID {
		t.Fatalf("Recent() = %v, want the recorded entry", got)
	}
}

func TestLogSubscribeReceivesEntries(t *testing.T) {
	l := NewLog(NewInMemoryStore(), nil)
	defer l.Close()

	ch, cancel := l.Subscribe()
	defer cancel()

	l.Record(context.Background(), Entry{UserID: "u1", Source: SourceSpam})

	select {
	case e := <-ch:
		if e.UserID != "u1" || e.Source != SourceSpam {
			t.Fatalf("subscriber got %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatalf("subscriber did not receive the entry")
	}
}

func TestLogSubscribeCancelClosesChannel(t *testing.T) {
	l := NewLog(NewInMemoryStore(), nil)
	defer l.Close()

	ch, cancel := l.Subscribe()
	cancel()

	if _, ok := <-ch; ok {
		t.Fatalf("channel should be closed after cancel")
	}

	// Recording after cancel must not panic on the closed channel.
	l.Record(context.Background(), Entry{UserID: "u1"})
}

// Package history keeps a bounded, time-windowed record of recent message
// fingerprints per user. Nothing here is durable: the store exists only to
// feed the cross-channel spam detector and is rebuilt from scratch on
// restart.
package history

import (
	"strings"
	"sync"
	"time"
)

const (
	// MaxRecordsPerUser bounds each user's sequence; oldest entries are
	// dropped first when the cap is exceeded.
	MaxRecordsPerUser = 50
	// MaxContentLength caps stored content, in runes.
	MaxContentLength = 200
)

// Record is one message fingerprint. Content is stored lowercased and
// truncated at capture time and never mutated afterwards.
type Record struct {
	Content   string
	ChannelID string
	Timestamp time.Time
}

// Store maps user IDs to their recent records, insertion order =
// chronological order. All access is serialized by one RWMutex; operations
// on different users never observe each other's partial writes.
type Store struct {
	mu    sync.RWMutex
	users map[string][]Record
}

func NewStore() *Store {
	return &Store{users: make(map[string][]Record)}
}

// Add records a message for the user, normalizing content and enforcing the
// per-user cap. It always succeeds.
func (s *Store) Add(userID, content, channelID string, now time.Time) {
	content = strings.ToLower(truncate(content, MaxContentLength))

	s.mu.Lock()
	defer s.mu.Unlock()
	seq := append(s.users[userID], Record{
		Content:   content,
		ChannelID: channelID,
		Timestamp: now,
	})
	if len(seq) > MaxRecordsPerUser {
		// Reslice rather than shift in place so evicted entries do not pin
		// the backing array forever.
		trimmed := make([]Record, MaxRecordsPerUser)
		copy(trimmed, seq[len(seq)-MaxRecordsPerUser:])
		seq = trimmed
	}
	s.users[userID] = seq
}

// HistoryFor returns a copy of the user's records, oldest first. The copy
// may be read without holding any lock.
func (s *Store) HistoryFor(userID string) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seq := s.users[userID]
	if len(seq) == 0 {
		return nil
	}
	out := make([]Record, len(seq))
	copy(out, seq)
	return out
}

// Clear removes the user's entry entirely. No-op if absent.
func (s *Store) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, userID)
}

// Prune drops every record older than the retention window and removes
// users left with no records. It returns the number of evicted records.
func (s *Store) Prune(now time.Time, retention time.Duration) int {
	cutoff := now.Add(-retention)

	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for userID, seq := range s.users {
		kept := seq[:0]
		for _, r := range seq {
			if r.Timestamp.After(cutoff) {
				kept = append(kept, r)
			}
		}
		evicted += len(seq) - len(kept)
		if len(kept) == 0 {
			delete(s.users, userID)
			continue
		}
		s.users[userID] = kept
	}
	return evicted
}

// TrackedUsers reports how many users currently have at least one record.
func (s *Store) TrackedUsers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

func truncate(v string, n int) string {
	runes := []rune(v)
	if len(runes) <= n {
		return v
	}
	return string(runes[:n])
}

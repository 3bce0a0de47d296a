package auditlog

import (
	"context"
	"time"
)

// Entry records one quarantine attempt, successful or not.
type Entry struct {
	ID              string    `json:"id"`
	GuildID         string    `json:"guild_id"`
	UserID          string    `json:"user_id"`
	Reason          string    `json:"reason"`
	Source          string    `json:"source"`
	RoleAssigned    bool      `json:"role_assigned"`
	MessagesDeleted int       `json:"messages_deleted"`
	CreatedAt       time.Time `json:"created_at"`
}

// Trigger sources.
const (
	SourceHoneypot = "honeypot"
	SourceSpam     = "spam"
	SourceManual   = "manual"
)

// Store persists audit entries.
type Store interface {
	Append(ctx context.Context, e Entry) error
	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}

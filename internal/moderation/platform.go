// Package moderation wires inbound chat events to the message history
// store, the spam detector, and the quarantine workflow. The chat platform
// itself is reached only through the Platform interface.
package moderation

import (
	"context"
	"time"
)

// Member is a guild member as seen by the moderation layer.
type Member struct {
	UserID   string
	GuildID  string
	Username string
	Bot      bool
	RoleIDs  []string
}

// Message is an inbound guild message. GuildID is empty for direct
// messages, which the controller ignores.
type Message struct {
	ID        string
	GuildID   string
	ChannelID string
	Content   string
	Author    Member
}

// Channel is a text-capable guild channel, including the text chat attached
// to voice channels.
type Channel struct {
	ID      string
	GuildID string
	Name    string
}

// Role is a guild role.
type Role struct {
	ID   string
	Name string
}

// Permissions is the capability subset the purge path cares about.
type Permissions struct {
	ReadMessages   bool
	ManageMessages bool
}

// Platform is the moderation-facing surface of the chat platform. Every
// call may block on the network; implementations map platform failures onto
// the package error taxonomy (ErrForbidden, ErrNotFound, ErrTransient).
type Platform interface {
	// GetRole returns the role, or an error wrapping ErrNotFound when the
	// guild has no such role.
	GetRole(ctx context.Context, guildID, roleID string) (*Role, error)
	AddRole(ctx context.Context, guildID, userID, roleID, reason string) error
	RemoveRole(ctx context.Context, guildID, userID, roleID string) error
	FetchMember(ctx context.Context, guildID, userID string) (*Member, error)
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	// TextChannels lists every channel of the guild that can carry text.
	TextChannels(ctx context.Context, guildID string) ([]Channel, error)
	// PermissionsFor reports the bot's own capabilities in the channel.
	PermissionsFor(ctx context.Context, channelID string) (Permissions, error)
	// PurgeChannel deletes the channel's messages newer than after whose
	// author satisfies match, returning how many were deleted.
	PurgeChannel(ctx context.Context, channelID string, match func(authorID string) bool, after time.Time) (int, error)
}

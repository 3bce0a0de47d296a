// Package discord adapts a discordgo session to the moderation-facing
// Platform interface and feeds gateway events into the controller. All
// protocol and rate-limit handling stays inside discordgo; this package
// only converts types and classifies failures.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/amcommunity/warden/internal/moderation"
)

const purgePageSize = 100

type Adapter struct {
	session *discordgo.Session
	log     *slog.Logger
	ready   atomic.Bool
	selfID  atomic.Value // string
}

func New(token string, logger *slog.Logger) (*Adapter, error) {
	if token == "" {
		return nil, errors.New("discord token is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent

	a := &Adapter{session: session, log: logger}
	session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		a.selfID.Store(r.User.ID)
		a.ready.Store(true)
		a.log.Info("discord gateway ready", "user", r.User.Username)
	})
	session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) {
		a.ready.Store(false)
	})
	return a, nil
}

// Open connects to the gateway. Handlers must be bound first.
func (a *Adapter) Open() error {
	if err := a.session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	return nil
}

func (a *Adapter) Close() error {
	return a.session.Close()
}

// Ready reports whether the gateway session has completed its handshake.
func (a *Adapter) Ready() bool {
	return a.ready.Load()
}

func (a *Adapter) selfUserID() string {
	if v, ok := a.selfID.Load().(string); ok {
		return v
	}
	return ""
}

func (a *Adapter) GetRole(ctx context.Context, guildID, roleID string) (*moderation.Role, error) {
	roles, err := a.session.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapErr(err)
	}
	for _, r := range roles {
		if r.ID == roleID {
			return &moderation.Role{ID: r.ID, Name: r.Name}, nil
		}
	}
	return nil, fmt.Errorf("role %s in guild %s: %w", roleID, guildID, moderation.ErrNotFound)
}

func (a *Adapter) AddRole(ctx context.Context, guildID, userID, roleID, reason string) error {
	err := a.session.GuildMemberRoleAdd(guildID, userID, roleID,
		discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	return mapErr(err)
}

func (a *Adapter) RemoveRole(ctx context.Context, guildID, userID, roleID string) error {
	return mapErr(a.session.GuildMemberRoleRemove(guildID, userID, roleID, discordgo.WithContext(ctx)))
}

func (a *Adapter) FetchMember(ctx context.Context, guildID, userID string) (*moderation.Member, error) {
	m, err := a.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapErr(err)
	}
	member := memberFromDiscord(guildID, m)
	return &member, nil
}

func (a *Adapter) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return mapErr(a.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)))
}

func (a *Adapter) TextChannels(ctx context.Context, guildID string) ([]moderation.Channel, error) {
	channels, err := a.session.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapErr(err)
	}
	var out []moderation.Channel
	for _, ch := range channels {
		if !isTextCapable(ch.Type) {
			continue
		}
		out = append(out, moderation.Channel{ID: ch.ID, GuildID: ch.GuildID, Name: ch.Name})
	}
	return out, nil
}

// isTextCapable covers regular text channels plus the text chat attached to
// voice channels.
func isTextCapable(t discordgo.ChannelType) bool {
	switch t {
	case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildVoice, discordgo.ChannelTypeGuildNews:
		return true
	default:
		return false
	}
}

func (a *Adapter) PermissionsFor(ctx context.Context, channelID string) (moderation.Permissions, error) {
	perms, err := a.session.UserChannelPermissions(a.selfUserID(), channelID)
	if err != nil {
		return moderation.Permissions{}, mapErr(err)
	}
	return moderation.Permissions{
		ReadMessages:   perms&discordgo.PermissionViewChannel != 0,
		ManageMessages: perms&discordgo.PermissionManageMessages != 0,
	}, nil
}

// PurgeChannel walks the channel backwards in pages and bulk-deletes
// matching messages newer than after. The purge window is far inside the
// platform's 14-day bulk-delete limit.
func (a *Adapter) PurgeChannel(ctx context.Context, channelID string, match func(authorID string) bool, after time.Time) (int, error) {
	total := 0
	beforeID := ""
	for {
		page, err := a.session.ChannelMessages(channelID, purgePageSize, beforeID, "", "", discordgo.WithContext(ctx))
		if err != nil {
			return total, mapErr(err)
		}
		if len(page) == 0 {
			return total, nil
		}

		var ids []string
		reachedWindowEnd := false
		for _, m := range page {
			if m.Timestamp.Before(after) {
				reachedWindowEnd = true
				break
			}
			if m.Author != nil && match(m.Author.ID) {
				ids = append(ids, m.ID)
			}
		}

		if err := a.deleteMessages(ctx, channelID, ids); err != nil {
			return total, err
		}
		total += len(ids)

		if reachedWindowEnd || len(page) < purgePageSize {
			return total, nil
		}
		beforeID = page[len(page)-1].ID
	}
}

func (a *Adapter) deleteMessages(ctx context.Context, channelID string, ids []string) error {
	switch len(ids) {
	case 0:
		return nil
	case 1:
		return mapErr(a.session.ChannelMessageDelete(channelID, ids[0], discordgo.WithContext(ctx)))
	default:
		return mapErr(a.session.ChannelMessagesBulkDelete(channelID, ids, discordgo.WithContext(ctx)))
	}
}

// mapErr classifies discordgo failures into the moderation error taxonomy.
// Anything that is not an HTTP-level rejection is treated as transient so
// enforcement paths degrade instead of aborting.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var rerr *discordgo.RESTError
	if errors.As(err, &rerr) && rerr.Response != nil {
		return fmt.Errorf("%w: %s", moderation.SentinelForHTTPStatus(rerr.Response.StatusCode), err)
	}
	return fmt.Errorf("%w: %s", moderation.ErrTransient, err)
}

func memberFromDiscord(guildID string, m *discordgo.Member) moderation.Member {
	member := moderation.Member{GuildID: guildID, RoleIDs: m.Roles}
	if m.User != nil {
		member.UserID = m.User.ID
		member.Username = m.User.Username
		member.Bot = m.User.Bot
	}
	return member
}

package moderation

import (
	"context"
	"log/slog"
	"time"

	"github.com/amcommunity/warden/internal/auditlog"
	"github.com/amcommunity/warden/internal/history"
	"github.com/amcommunity/warden/internal/observability"
)

// Enforcer executes the quarantine workflow: restrictive role assignment,
// recent-message purge, and history clearing. "Quarantined" status lives
// entirely in role membership on the platform; the enforcer keeps no state
// of its own.
type Enforcer struct {
	platform    Platform
	history     *history.Store
	audit       *auditlog.Log
	metrics     *observability.Metrics
	log         *slog.Logger
	roleID      string
	purgeWindow time.Duration
}

func NewEnforcer(platform Platform, hist *history.Store, audit *auditlog.Log, metrics *observability.Metrics, logger *slog.Logger, quarantineRoleID string, purgeWindow time.Duration) *Enforcer {
	if logger == nil {
		logger = slog.Default()
	}
	if purgeWindow <= 0 {
		purgeWindow = time.Hour
	}
	return &Enforcer{
		platform:    platform,
		history:     hist,
		audit:       audit,
		metrics:     metrics,
		log:         logger,
		roleID:      quarantineRoleID,
		purgeWindow: purgeWindow,
	}
}

// AssignQuarantineRole puts the quarantine role on the user. It fails
// closed: unconfigured role, missing role, and permission errors all log
// and return false without assigning anything.
func (e *Enforcer) AssignQuarantineRole(ctx context.Context, guildID, userID, reason string) bool {
	if e.roleID == "" {
		e.log.Warn("quarantine role not configured")
		return false
	}

	role, err := e.platform.GetRole(ctx, guildID, e.roleID)
	if err != nil || role == nil {
		e.log.Error("quarantine role not found in guild", "role_id", e.roleID, "guild_id", guildID, "error", err)
		return false
	}

	if err := e.platform.AddRole(ctx, guildID, userID, role.ID, reason); err != nil {
		if IsForbidden(err) {
			e.log.Error("missing permission to assign quarantine role", "user_id", userID, "guild_id", guildID)
		} else {
			e.log.Error("quarantine role assignment failed", "user_id", userID, "guild_id", guildID, "error", err)
		}
		return false
	}

	e.log.Info("assigned quarantine role", "user_id", userID, "guild_id", guildID, "reason", reason)
	return true
}

// PurgeRecentMessages deletes the user's messages from the purge window in
// every text-capable channel of the guild. Per-channel failures contribute
// zero and never abort the remaining channels. Returns the total deleted.
func (e *Enforcer) PurgeRecentMessages(ctx context.Context, guildID, userID string) int {
	channels, err := e.platform.TextChannels(ctx, guildID)
	if err != nil {
		e.log.Error("listing guild channels failed", "guild_id", guildID, "error", err)
		return 0
	}

	after := time.Now().UTC().Add(-e.purgeWindow)
	deleted := 0
	for _, ch := range channels {
		deleted += e.purgeChannel(ctx, ch, userID, after)
	}
	return deleted
}

func (e *Enforcer) purgeChannel(ctx context.Context, ch Channel, userID string, after time.Time) int {
	perms, err := e.platform.PermissionsFor(ctx, ch.ID)
	if err != nil {
		e.log.Debug("skipping channel, permission check failed", "channel", ch.Name, "error", err)
		e.countPurgeError("permission_check")
		return 0
	}
	if !perms.ReadMessages || !perms.ManageMessages {
		e.log.Debug("skipping channel, no purge permissions", "channel", ch.Name)
		return 0
	}

	count, err := e.platform.PurgeChannel(ctx, ch.ID, func(authorID string) bool {
		return authorID == userID
	}, after)
	if err != nil {
		switch {
		case IsForbidden(err):
			e.log.Debug("cannot purge channel, forbidden", "channel", ch.Name)
			e.countPurgeError("forbidden")
		default:
			e.log.Warn("purge failed in channel", "channel", ch.Name, "error", err)
			e.countPurgeError("transient")
		}
		return count
	}
	if count > 0 {
		e.log.Debug("purged messages from channel", "channel", ch.Name, "deleted", count)
	}
	return count
}

// Quarantine runs role assignment, purge, and history clearing for the
// user, recording the outcome in the audit trail. It returns whether the
// role was assigned and how many messages were deleted. When assignment
// fails the workflow aborts: no purge, and the user's history is left
// untouched.
func (e *Enforcer) Quarantine(ctx context.Context, guildID, userID, reason, source string) (bool, int) {
	if !e.AssignQuarantineRole(ctx, guildID, userID, reason) {
		if e.metrics != nil {
			e.metrics.QuarantineFailures.WithLabelValues("role_assign").Inc()
		}
		e.recordAudit(ctx, guildID, userID, reason, source, false, 0)
		return false, 0
	}

	deleted := e.PurgeRecentMessages(ctx, guildID, userID)

	// Cleared even when the purge deleted nothing: the user is quarantined
	// and their fingerprints are no longer relevant.
	e.history.Clear(userID)

	if e.metrics != nil {
		e.metrics.Quarantines.WithLabelValues(source).Inc()
		e.metrics.PurgeDeleted.Add(float64(deleted))
	}
	e.recordAudit(ctx, guildID, userID, reason, source, true, deleted)

	e.log.Info("quarantine complete", "user_id", userID, "guild_id", guildID, "reason", reason, "deleted", deleted)
	return true, deleted
}

// HandleQuarantine is the automatic-trigger path. The triggering message is
// deleted best-effort before anything else; already-gone and forbidden
// outcomes are ignored.
func (e *Enforcer) HandleQuarantine(ctx context.Context, msg Message, reason, source string) {
	e.log.Info("quarantine triggered", "user_id", msg.Author.UserID, "guild_id", msg.GuildID, "reason", reason)

	if err := e.platform.DeleteMessage(ctx, msg.ChannelID, msg.ID); err != nil && !IsForbidden(err) && !IsNotFound(err) {
		e.log.Warn("deleting trigger message failed", "message_id", msg.ID, "error", err)
	}

	e.Quarantine(ctx, msg.GuildID, msg.Author.UserID, reason, source)
}

func (e *Enforcer) recordAudit(ctx context.Context, guildID, userID, reason, source string, assigned bool, deleted int) {
	if e.audit == nil {
		return
	}
	e.audit.Record(ctx, auditlog.Entry{
		GuildID:         guildID,
		UserID:          userID,
		Reason:          reason,
		Source:          source,
		RoleAssigned:    assigned,
		MessagesDeleted: deleted,
	})
}

func (e *Enforcer) countPurgeError(kind string) {
	if e.metrics != nil {
		e.metrics.PurgeChannelErrors.WithLabelValues(kind).Inc()
	}
}

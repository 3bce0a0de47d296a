package moderation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/amcommunity/warden/internal/auditlog"
	"github.com/amcommunity/warden/internal/history"
	"github.com/amcommunity/warden/internal/observability"
	"github.com/amcommunity/warden/internal/spam"
)

// ControllerConfig carries the controller's routing identifiers and the
// spam detection thresholds.
type ControllerConfig struct {
	HoneypotChannelID string
	StaffRoleID       string
	Spam              spam.Config
}

// Controller routes inbound events. Per message: bot and DM traffic is
// ignored, then the honeypot check, then the spam check, then recording —
// first match wins, and a message that triggers quarantine is never also
// recorded.
type Controller struct {
	store    *history.Store
	enforcer *Enforcer
	cfg      ControllerConfig
	metrics  *observability.Metrics
	log      *slog.Logger
}

func NewController(store *history.Store, enforcer *Enforcer, cfg ControllerConfig, metrics *observability.Metrics, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		store:    store,
		enforcer: enforcer,
		cfg:      cfg,
		metrics:  metrics,
		log:      logger,
	}
}

// OnMessage processes one inbound guild message.
func (c *Controller) OnMessage(ctx context.Context, msg Message) {
	if msg.Author.Bot || msg.GuildID == "" {
		return
	}

	if c.metrics != nil {
		c.metrics.MessagesScanned.Inc()
	}

	if c.cfg.HoneypotChannelID != "" && msg.ChannelID == c.cfg.HoneypotChannelID {
		c.enforcer.HandleQuarantine(ctx, msg, "triggered quarantine honeypot", auditlog.SourceHoneypot)
		return
	}

	hist := c.store.HistoryFor(msg.Author.UserID)
	if spam.IsCrossChannelSpam(hist, msg.Content, msg.ChannelID, c.cfg.Spam) {
		c.log.Info("cross-channel spam detected", "user_id", msg.Author.UserID, "channel_id", msg.ChannelID)
		c.enforcer.HandleQuarantine(ctx, msg, "cross-channel spam detected", auditlog.SourceSpam)
		return
	}

	c.store.Add(msg.Author.UserID, msg.Content, msg.ChannelID, time.Now().UTC())

	if c.metrics != nil {
		c.metrics.TrackedUsers.Set(float64(c.store.TrackedUsers()))
	}
}

// CommandRequest is a manual quarantine invocation.
type CommandRequest struct {
	GuildID string
	Invoker Member
	Target  Member
	Reason  string
}

// Responder delivers private acknowledgments to the command invoker.
// Defer must be called before long-running work so the platform's
// interactive-response deadline is met; Respond after Defer delivers a
// follow-up.
type Responder interface {
	Defer(ctx context.Context) error
	Respond(ctx context.Context, content string) error
}

// HandleQuarantineCommand runs the manual quarantine path: staff-role
// authorization, target sanity checks, then the same enforcement workflow
// as the automatic triggers, reporting the deleted-message count back to
// the invoker.
func (c *Controller) HandleQuarantineCommand(ctx context.Context, req CommandRequest, resp Responder) {
	if rejection := c.authorizeCommand(req); rejection != "" {
		c.respond(ctx, resp, rejection)
		return
	}

	reason := req.Reason
	if reason == "" {
		reason = "manual quarantine by staff"
	}
	fullReason := fmt.Sprintf("%s (by %s)", reason, req.Invoker.Username)

	// Purging can outlast the platform's interactive-response deadline.
	if err := resp.Defer(ctx); err != nil {
		c.log.Warn("deferring command response failed", "error", err)
	}

	c.log.Info("manual quarantine initiated",
		"target_id", req.Target.UserID,
		"invoker_id", req.Invoker.UserID,
		"reason", reason,
	)

	assigned, deleted := c.enforcer.Quarantine(ctx, req.GuildID, req.Target.UserID, fullReason, auditlog.SourceManual)
	if !assigned {
		c.respond(ctx, resp, "Failed to assign quarantine role. Check bot permissions.")
		return
	}

	c.respond(ctx, resp, fmt.Sprintf(
		"Quarantined <@%s>.\nDeleted %d messages from the last hour.\nReason: %s",
		req.Target.UserID, deleted, reason,
	))
}

// authorizeCommand returns a user-facing rejection, or "" when the request
// may proceed. No role or purge call happens for a rejected request.
func (c *Controller) authorizeCommand(req CommandRequest) string {
	if !c.isStaff(req.Invoker) {
		return "You must be staff to use this command."
	}
	if req.Target.Bot {
		return "Cannot quarantine bots."
	}
	if req.Target.UserID == req.Invoker.UserID {
		return "You cannot quarantine yourself."
	}
	return ""
}

// isStaff reports whether the member holds the configured staff role. An
// unconfigured staff role disables the manual path for everyone.
func (c *Controller) isStaff(m Member) bool {
	if c.cfg.StaffRoleID == "" {
		return false
	}
	for _, id := range m.RoleIDs {
		if id == c.cfg.StaffRoleID {
			return true
		}
	}
	return false
}

func (c *Controller) respond(ctx context.Context, resp Responder, content string) {
	if err := resp.Respond(ctx, content); err != nil {
		c.log.Warn("responding to command invoker failed", "error", err)
	}
}

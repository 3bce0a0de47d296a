package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/amcommunity/warden/internal/moderation"
)

const quarantineCommandName = "quarantine"

// Bind registers the gateway event handlers that drive the controller and
// arranges for the /quarantine command to be registered once the session is
// ready. Call before Open.
func (a *Adapter) Bind(ctrl *moderation.Controller) {
	a.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		a.registerCommands(r.User.ID)
	})
	a.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil {
			return
		}
		ctrl.OnMessage(context.Background(), messageFromDiscord(m))
	})
	a.session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		a.handleInteraction(ctrl, s, i)
	})
}

func (a *Adapter) registerCommands(appID string) {
	manageRoles := int64(discordgo.PermissionManageRoles)
	cmd := &discordgo.ApplicationCommand{
		Name:                     quarantineCommandName,
		Description:              "Quarantine a user and purge their recent messages",
		DefaultMemberPermissions: &manageRoles,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "member",
				Description: "The member to quarantine",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "reason",
				Description: "Reason for the quarantine",
			},
		},
	}
	if _, err := a.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
		a.log.Error("registering quarantine command failed", "error", err)
	}
}

func (a *Adapter) handleInteraction(ctrl *moderation.Controller, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	if data.Name != quarantineCommandName {
		return
	}
	if i.Member == nil || i.Member.User == nil {
		// Command invoked outside a guild; nothing to moderate.
		return
	}

	var target *discordgo.User
	reason := ""
	for _, opt := range data.Options {
		switch opt.Name {
		case "member":
			target = opt.UserValue(s)
		case "reason":
			reason = opt.StringValue()
		}
	}
	if target == nil {
		a.log.Warn("quarantine command without a member option")
		return
	}

	req := moderation.CommandRequest{
		GuildID: i.GuildID,
		Invoker: moderation.Member{
			UserID:   i.Member.User.ID,
			GuildID:  i.GuildID,
			Username: i.Member.User.Username,
			Bot:      i.Member.User.Bot,
			RoleIDs:  i.Member.Roles,
		},
		Target: moderation.Member{
			UserID:   target.ID,
			GuildID:  i.GuildID,
			Username: target.Username,
			Bot:      target.Bot,
		},
		Reason: reason,
	}
	ctrl.HandleQuarantineCommand(context.Background(), req, &interactionResponder{session: s, interaction: i.Interaction})
}

func messageFromDiscord(m *discordgo.MessageCreate) moderation.Message {
	return moderation.Message{
		ID:        m.ID,
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		Content:   m.Content,
		Author: moderation.Member{
			UserID:   m.Author.ID,
			GuildID:  m.GuildID,
			Username: m.Author.Username,
			Bot:      m.Author.Bot,
		},
	}
}

// interactionResponder delivers ephemeral acknowledgments for the
// quarantine command. After Defer, responses go out as follow-ups.
type interactionResponder struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction
	deferred    bool
}

func (r *interactionResponder) Defer(ctx context.Context) error {
	err := r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return mapErr(err)
	}
	r.deferred = true
	return nil
}

func (r *interactionResponder) Respond(ctx context.Context, content string) error {
	if r.deferred {
		_, err := r.session.FollowupMessageCreate(r.interaction, true, &discordgo.WebhookParams{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		}, discordgo.WithContext(ctx))
		return mapErr(err)
	}
	return mapErr(r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content, Flags: discordgo.MessageFlagsEphemeral},
	}, discordgo.WithContext(ctx)))
}

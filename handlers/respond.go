package handlers

import (
	"errors"

	"ticket-bot/bot"
	"ticket-bot/models"
	"ticket-bot/ticket"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const genericErrorMessage = "An unexpected error occurred. Please try again later."

// reply is the content of an ephemeral interaction response.
type reply struct {
	content string
	notice  *models.Notice
	files   []*discordgo.File
}

func textReply(content string) reply {
	return reply{content: content}
}

// respond sends an immediate ephemeral message.
func respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

// deferReply acknowledges the interaction so work may exceed the three second window.
func deferReply(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
}

func editReply(s *discordgo.Session, i *discordgo.InteractionCreate, r reply) error {
	edit := &discordgo.WebhookEdit{Content: &r.content}
	if r.notice != nil {
		if embed := bot.Embed(*r.notice); embed != nil {
			embeds := []*discordgo.MessageEmbed{embed}
			edit.Embeds = &embeds
		}
	}
	if len(r.files) > 0 {
		edit.Files = r.files
	}
	_, err := s.InteractionResponseEdit(i.Interaction, edit)
	return err
}

// deferred acknowledges the interaction, runs fn and edits the response with
// its result or with the user-facing message of its error.
func (h *Handler) deferred(s *discordgo.Session, i *discordgo.InteractionCreate, op string, fn func() (reply, error)) {
	if err := deferReply(s, i); err != nil {
		h.logger.Error("failed to acknowledge interaction", zap.String("operation", op), zap.Error(err))
		return
	}

	r, err := fn()
	if err != nil {
		h.logFailure(op, i, err)
		r = textReply(userMessage(err))
	}
	if err := editReply(s, i, r); err != nil {
		h.logger.Error("failed to edit interaction response", zap.String("operation", op), zap.Error(err))
	}
}

func (h *Handler) logFailure(op string, i *discordgo.InteractionCreate, err error) {
	fields := []zap.Field{
		zap.String("operation", op),
		zap.String("guild_id", i.GuildID),
		zap.String("channel_id", i.ChannelID),
		zap.String("user_id", interactionUserID(i)),
		zap.Error(err),
	}
	switch ticket.CodeOf(err) {
	case ticket.CodeInternal, ticket.CodeCollaboratorFailure:
		h.logger.Error("interaction failed", fields...)
	default:
		h.logger.Debug("interaction rejected", fields...)
	}
}

// userMessage converts an error into the text shown to the user.
func userMessage(err error) string {
	var e *ticket.Error
	if !errors.As(err, &e) || e.Code == ticket.CodeInternal {
		return genericErrorMessage
	}
	return "❌ " + e.Message
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// actorFromInteraction describes the invoking user. Outside a guild the actor
// has no roles and no administrator flag.
func actorFromInteraction(i *discordgo.InteractionCreate) models.Actor {
	if i.Member != nil {
		return actorFromMember(i.Member.User, i.Member)
	}
	return actorFromMember(i.User, nil)
}

func actorFromMember(u *discordgo.User, m *discordgo.Member) models.Actor {
	var a models.Actor
	if u != nil {
		a.ID = u.ID
		a.Name = u.Username
		if u.GlobalName != "" {
			a.Name = u.GlobalName
		}
	}
	if m != nil {
		a.RoleIDs = m.Roles
		a.Admin = m.Permissions&discordgo.PermissionAdministrator != 0
		if m.Nick != "" {
			a.Name = m.Nick
		}
	}
	return a
}

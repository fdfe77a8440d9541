package handlers

import (
	"context"
	"fmt"
	"strings"

	"ticket-bot/command"
	"ticket-bot/models"
	"ticket-bot/ticket"
	"ticket-bot/utils"

	"github.com/bwmarrin/discordgo"
)

type optionMap map[string]*discordgo.ApplicationCommandInteractionDataOption

func newOptionMap(options []*discordgo.ApplicationCommandInteractionDataOption) optionMap {
	m := make(optionMap, len(options))
	for _, opt := range options {
		m[opt.Name] = opt
	}
	return m
}

func (m optionMap) string(name string) string {
	if opt, ok := m[name]; ok {
		return opt.StringValue()
	}
	return ""
}

// id returns the snowflake of a channel, role or user option.
func (m optionMap) id(name string) string {
	if opt, ok := m[name]; ok {
		if v, ok := opt.Value.(string); ok {
			return v
		}
	}
	return ""
}

// CommandDispatcher is the central handler for all application command interactions.
// It performs permission checks and then dispatches the interaction to the appropriate handler.
func (h *Handler) CommandDispatcher(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 || (data.Name != command.NameTicket && data.Name != command.NameManage) {
		respond(s, i, "🚫 Unknown command.")
		return
	}
	if i.GuildID == "" || i.Member == nil {
		respond(s, i, "🚫 This command can only be used in a server.")
		return
	}

	sub := data.Options[0]
	opts := newOptionMap(sub.Options)
	actor := actorFromInteraction(i)

	if data.Name == command.NameManage {
		h.manage(s, i, actor, sub.Name, opts)
		return
	}

	if command.AdminSubcommands[sub.Name] && !actor.Admin {
		respond(s, i, "🚫 "+utils.ReasonAdminOnly.Message())
		return
	}

	switch sub.Name {
	case command.SubSetup:
		h.deferred(s, i, sub.Name, func() (reply, error) { return h.setup(i, actor, opts) })
	case command.SubAdd:
		h.deferred(s, i, sub.Name, func() (reply, error) {
			roleID := opts.id("role")
			if err := h.tickets.AddStaffRole(context.Background(), i.GuildID, actor, roleID); err != nil {
				return reply{}, err
			}
			return textReply(fmt.Sprintf("✅ Added <@&%s> as a staff role.", roleID)), nil
		})
	case command.SubRemove:
		h.deferred(s, i, sub.Name, func() (reply, error) {
			roleID := opts.id("role")
			if err := h.tickets.RemoveStaffRole(context.Background(), i.GuildID, actor, roleID); err != nil {
				return reply{}, err
			}
			return textReply(fmt.Sprintf("✅ Removed <@&%s> from the staff roles.", roleID)), nil
		})
	case command.SubStaff:
		h.deferred(s, i, sub.Name, func() (reply, error) { return h.staffMember(i, actor, opts) })
	case command.SubViewStaff:
		h.deferred(s, i, sub.Name, func() (reply, error) { return h.viewStaff(i) })
	case command.SubClaim:
		h.deferred(s, i, sub.Name, func() (reply, error) {
			if _, err := h.tickets.Claim(context.Background(), i.GuildID, i.ChannelID, actor); err != nil {
				return reply{}, err
			}
			return textReply("✅ You have claimed this ticket."), nil
		})
	case command.SubUnclaim:
		h.deferred(s, i, sub.Name, func() (reply, error) {
			if _, err := h.tickets.Unclaim(context.Background(), i.GuildID, i.ChannelID, actor); err != nil {
				return reply{}, err
			}
			return textReply("✅ This ticket is no longer claimed."), nil
		})
	case command.SubTransfer:
		h.deferred(s, i, sub.Name, func() (reply, error) { return h.transfer(s, i, actor, opts) })
	case command.SubOpen:
		if !h.opens.Allow(actor.ID) {
			respond(s, i, "⏳ You are opening tickets too quickly. Please wait a moment.")
			return
		}
		h.deferred(s, i, sub.Name, func() (reply, error) { return h.open(openCommandRequest(i.GuildID, actor, opts)) })
	case command.SubClose:
		h.deferred(s, i, sub.Name, func() (reply, error) { return h.close(i, actor, opts.string("reason")) })
	case command.SubTranscript:
		h.deferred(s, i, sub.Name, func() (reply, error) { return h.transcript(i, actor) })
	default:
		respond(s, i, "🚫 Unknown subcommand.")
	}
}

// manage handles /manage. Discord hides the command from non-administrators
// by default; the check here covers guilds that changed that.
func (h *Handler) manage(s *discordgo.Session, i *discordgo.InteractionCreate, actor models.Actor, sub string, opts optionMap) {
	if !actor.Admin {
		respond(s, i, "🚫 "+utils.ReasonAdminOnly.Message())
		return
	}
	switch sub {
	case command.SubPanel:
		h.deferred(s, i, command.NameManage+" "+sub, func() (reply, error) {
			if _, err := h.tickets.UpdatePanel(context.Background(), panelRequest(i.GuildID, actor, opts)); err != nil {
				return reply{}, err
			}
			return textReply("✅ Ticket panel has been updated successfully!"), nil
		})
	default:
		respond(s, i, "🚫 Unknown subcommand.")
	}
}

func panelRequest(guildID string, actor models.Actor, opts optionMap) ticket.PanelRequest {
	return ticket.PanelRequest{
		GuildID:     guildID,
		Actor:       actor,
		Title:       opts.string("title"),
		Description: opts.string("description"),
		Color:       opts.string("color"),
		ButtonLabel: opts.string("button_label"),
		ButtonEmoji: opts.string("button_emoji"),
		ButtonStyle: opts.string("button_style"),
	}
}

func (h *Handler) setup(i *discordgo.InteractionCreate, actor models.Actor, opts optionMap) (reply, error) {
	cfg, err := h.tickets.Setup(context.Background(), ticket.SetupRequest{
		GuildID:              i.GuildID,
		Actor:                actor,
		TicketChannelID:      opts.id("channel"),
		CategoryID:           opts.id("category"),
		LogsChannelID:        opts.id("logs"),
		TranscriptsChannelID: opts.id("transcripts"),
		RatingChannelID:      opts.id("rating"),
	})
	if err != nil {
		return reply{}, err
	}
	return textReply(fmt.Sprintf("✅ Ticket system set up! The ticket panel has been posted in <#%s>.", cfg.TicketChannelID)), nil
}

func (h *Handler) staffMember(i *discordgo.InteractionCreate, actor models.Actor, opts optionMap) (reply, error) {
	userID := opts.id("user")
	ctx := context.Background()
	switch opts.string("action") {
	case "add":
		if err := h.tickets.AddStaffMember(ctx, i.GuildID, actor, userID); err != nil {
			return reply{}, err
		}
		return textReply(fmt.Sprintf("✅ Added <@%s> as a staff member.", userID)), nil
	case "remove":
		if err := h.tickets.RemoveStaffMember(ctx, i.GuildID, actor, userID); err != nil {
			return reply{}, err
		}
		return textReply(fmt.Sprintf("✅ Removed <@%s> from the staff members.", userID)), nil
	default:
		return reply{}, ticket.Invalid("Action must be add or remove.")
	}
}

func (h *Handler) viewStaff(i *discordgo.InteractionCreate) (reply, error) {
	cfg, err := h.tickets.Staff(context.Background(), i.GuildID)
	if err != nil {
		return reply{}, err
	}
	n := staffNotice(cfg)
	return reply{notice: &n}, nil
}

func staffNotice(cfg *models.GuildConfig) models.Notice {
	roles := make([]string, 0, len(cfg.StaffRoles))
	for _, id := range cfg.StaffRoles {
		roles = append(roles, "<@&"+id+">")
	}
	members := make([]string, 0, len(cfg.StaffMembers))
	for _, id := range cfg.StaffMembers {
		members = append(members, "<@"+id+">")
	}
	return models.Notice{
		Title: "Ticket Staff",
		Color: models.ColorInfo,
		Fields: []models.Field{
			{Name: "Staff Roles", Value: joinOrNone(roles)},
			{Name: "Staff Members", Value: joinOrNone(members)},
		},
	}
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "None"
	}
	return strings.Join(items, "\n")
}

func (h *Handler) transfer(s *discordgo.Session, i *discordgo.InteractionCreate, actor models.Actor, opts optionMap) (reply, error) {
	target, err := h.resolveMember(s, i, opts.id("user"))
	if err != nil {
		return reply{}, err
	}
	if _, err := h.tickets.Transfer(context.Background(), i.GuildID, i.ChannelID, actor, target); err != nil {
		return reply{}, err
	}
	return textReply(fmt.Sprintf("✅ Ticket transferred to <@%s>.", target.ID)), nil
}

// resolveMember builds an actor for a user option, preferring the member data
// resolved with the interaction.
func (h *Handler) resolveMember(s *discordgo.Session, i *discordgo.InteractionCreate, userID string) (models.Actor, error) {
	if userID == "" {
		return models.Actor{}, ticket.Invalid("Please select a user.")
	}
	if resolved := i.ApplicationCommandData().Resolved; resolved != nil {
		if m, ok := resolved.Members[userID]; ok {
			return actorFromMember(resolved.Users[userID], m), nil
		}
	}
	m, err := s.GuildMember(i.GuildID, userID)
	if err != nil {
		return models.Actor{}, ticket.NotFound("That user is not a member of this server.")
	}
	return actorFromMember(m.User, m), nil
}

// openCommandRequest maps /ticket open. The reason describes the problem;
// subject and category keep their defaults.
func openCommandRequest(guildID string, actor models.Actor, opts optionMap) ticket.OpenRequest {
	return ticket.OpenRequest{
		GuildID:     guildID,
		Owner:       actor,
		Description: opts.string("reason"),
	}
}

func (h *Handler) open(req ticket.OpenRequest) (reply, error) {
	t, err := h.tickets.Open(context.Background(), req)
	if err != nil {
		return reply{}, err
	}
	return textReply(fmt.Sprintf("✅ Your ticket has been created: <#%s>", t.ChannelID)), nil
}

func (h *Handler) close(i *discordgo.InteractionCreate, actor models.Actor, reason string) (reply, error) {
	_, err := h.tickets.Close(context.Background(), ticket.CloseRequest{
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		Actor:     actor,
		Reason:    reason,
	})
	if err != nil {
		return reply{}, err
	}
	return textReply("🔒 Ticket closed. This channel will be deleted shortly."), nil
}

func (h *Handler) transcript(i *discordgo.InteractionCreate, actor models.Actor) (reply, error) {
	tr, t, err := h.tickets.Transcript(context.Background(), i.GuildID, i.ChannelID, actor)
	if err != nil {
		return reply{}, err
	}
	return reply{
		content: fmt.Sprintf("📄 Transcript of ticket #%s", t.DisplayNumber()),
		files: []*discordgo.File{{
			Name:        tr.Name,
			ContentType: tr.ContentType,
			Reader:      tr.File().Reader,
		}},
	}, nil
}

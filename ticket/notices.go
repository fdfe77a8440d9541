package ticket

import (
	"fmt"
	"strings"
	"time"

	"ticket-bot/models"
)

// SupportRoleName is the role created by setup when the guild has none.
const SupportRoleName = "Ticket Support"

// ChannelRemovedReason is recorded on tickets closed because their channel vanished.
const ChannelRemovedReason = "Channel deleted"

func mentionUser(id string) string    { return "<@" + id + ">" }
func mentionRole(id string) string    { return "<@&" + id + ">" }
func mentionChannel(id string) string { return "<#" + id + ">" }

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "None"
	}
	return s
}

// Panel defaults, used for any field the guild has not customized.
const (
	DefaultPanelTitle       = "🎫 Support Tickets"
	DefaultPanelDescription = "Need help? Click the button below to open a support ticket.\nA private channel will be created for you and our staff."
	DefaultPanelButtonLabel = "Create Ticket"
	DefaultPanelButtonEmoji = "🎫"
)

func panelNotice(p models.PanelSettings) models.Notice {
	color := p.Color
	if color == 0 {
		color = models.ColorInfo
	}
	style := p.ButtonStyle
	if style == 0 {
		style = models.ButtonPrimary
	}
	return models.Notice{
		Title:       withDefault(p.Title, DefaultPanelTitle),
		Description: withDefault(p.Description, DefaultPanelDescription),
		Color:       color,
		Buttons: []models.Button{{
			Label:  withDefault(p.ButtonLabel, DefaultPanelButtonLabel),
			Emoji:  withDefault(p.ButtonEmoji, DefaultPanelButtonEmoji),
			Style:  style,
			Action: models.ComponentAction{Component: models.ComponentCreateTicket},
		}},
	}
}

func setupLogNotice(cfg *models.GuildConfig, actor models.Actor) models.Notice {
	return models.Notice{
		Title: "Ticket System Setup",
		Color: models.ColorSuccess,
		Fields: []models.Field{
			{Name: "Ticket Channel", Value: mentionChannel(cfg.TicketChannelID), Inline: true},
			{Name: "Category", Value: cfg.CategoryID, Inline: true},
			{Name: "Logs Channel", Value: mentionChannel(cfg.LogsChannelID), Inline: true},
			{Name: "Transcripts Channel", Value: mentionChannel(cfg.TranscriptsChannelID), Inline: true},
			{Name: "Rating Channel", Value: mentionChannel(cfg.RatingChannelID), Inline: true},
			{Name: "Support Role", Value: mentionRole(cfg.SupportRoleID), Inline: true},
			{Name: "Set Up By", Value: mentionUser(actor.ID)},
		},
		Timestamp: time.Now(),
	}
}

func welcomeNotice(cfg *models.GuildConfig, t *models.Ticket) models.Notice {
	content := fmt.Sprintf("%s Welcome!", mentionUser(t.UserID))
	if cfg.SupportRoleID != "" {
		content += " " + mentionRole(cfg.SupportRoleID)
	}
	desc := "Thank you for creating a ticket. Support staff will be with you shortly.\nPlease describe your issue in as much detail as possible."
	if t.Description != "" {
		desc += "\n\n**Description**\n" + t.Description
	}
	return models.Notice{
		Content:     content,
		Title:       fmt.Sprintf("Ticket #%s", t.DisplayNumber()),
		Description: desc,
		Color:       models.ColorInfo,
		Fields: []models.Field{
			{Name: "Subject", Value: t.Subject, Inline: true},
			{Name: "Category", Value: t.Category, Inline: true},
			{Name: "Created By", Value: mentionUser(t.UserID), Inline: true},
		},
		Buttons: []models.Button{
			{Label: "Close", Emoji: "🔒", Style: models.ButtonDanger,
				Action: models.ComponentAction{Component: models.ComponentCloseTicket, TicketID: t.ID}},
			{Label: "Claim", Emoji: "🙋", Style: models.ButtonSuccess,
				Action: models.ComponentAction{Component: models.ComponentClaimTicket, TicketID: t.ID}},
			{Label: "Transcript", Emoji: "📑", Style: models.ButtonSecondary,
				Action: models.ComponentAction{Component: models.ComponentTranscriptTicket, TicketID: t.ID}},
		},
		Timestamp: t.CreatedAt,
	}
}

func openLogNotice(t *models.Ticket) models.Notice {
	return models.Notice{
		Title: "Ticket Created",
		Color: models.ColorSuccess,
		Fields: []models.Field{
			{Name: "Ticket", Value: fmt.Sprintf("#%s (%s)", t.DisplayNumber(), mentionChannel(t.ChannelID)), Inline: true},
			{Name: "Created By", Value: mentionUser(t.UserID), Inline: true},
			{Name: "Subject", Value: t.Subject},
			{Name: "Category", Value: t.Category, Inline: true},
		},
		Timestamp: t.CreatedAt,
	}
}

func claimNotice(t *models.Ticket, actor models.Actor) models.Notice {
	return models.Notice{
		Title:       "Ticket Claimed",
		Description: fmt.Sprintf("This ticket has been claimed by %s.", mentionUser(actor.ID)),
		Color:       models.ColorSuccess,
		Timestamp:   t.UpdatedAt,
	}
}

func claimLogNotice(t *models.Ticket, actor models.Actor) models.Notice {
	return models.Notice{
		Title: "Ticket Claimed",
		Color: models.ColorInfo,
		Fields: []models.Field{
			{Name: "Ticket", Value: fmt.Sprintf("#%s (%s)", t.DisplayNumber(), mentionChannel(t.ChannelID)), Inline: true},
			{Name: "Claimed By", Value: mentionUser(actor.ID), Inline: true},
		},
		Timestamp: t.UpdatedAt,
	}
}

func unclaimNotice(t *models.Ticket, previous string, actor models.Actor) models.Notice {
	desc := fmt.Sprintf("This ticket has been unclaimed by %s.", mentionUser(actor.ID))
	if previous != actor.ID {
		desc = fmt.Sprintf("%s removed %s from this ticket.", mentionUser(actor.ID), mentionUser(previous))
	}
	return models.Notice{
		Title:       "Ticket Unclaimed",
		Description: desc + "\nAny staff member can now claim it.",
		Color:       models.ColorWarn,
		Timestamp:   t.UpdatedAt,
	}
}

func transferNotice(t *models.Ticket, previous string, target, actor models.Actor) models.Notice {
	prev := "Unassigned"
	if previous != "" {
		prev = mentionUser(previous)
	}
	return models.Notice{
		Content:     mentionUser(target.ID),
		Title:       "Ticket Transferred",
		Description: fmt.Sprintf("This ticket has been transferred by %s.", mentionUser(actor.ID)),
		Color:       models.ColorInfo,
		Fields: []models.Field{
			{Name: "Previous Assignee", Value: prev, Inline: true},
			{Name: "New Assignee", Value: mentionUser(target.ID), Inline: true},
		},
		Timestamp: t.UpdatedAt,
	}
}

func closeNotice(t *models.Ticket, delay time.Duration) models.Notice {
	return models.Notice{
		Title: "Ticket Closed",
		Description: fmt.Sprintf("This ticket has been closed by %s.\nThis channel will be deleted in %s.",
			mentionUser(t.ClosedBy), delay.Round(time.Second)),
		Color: models.ColorError,
		Fields: []models.Field{
			{Name: "Reason", Value: t.CloseReason},
		},
		Timestamp: closedAt(t),
	}
}

func transcriptNotice(t *models.Ticket, transcript *models.Transcript) models.Notice {
	n := models.Notice{
		Title: fmt.Sprintf("Ticket Transcript - #%s", t.DisplayNumber()),
		Color: models.ColorInfo,
		Fields: []models.Field{
			{Name: "Subject", Value: orNone(t.Subject), Inline: true},
			{Name: "Category", Value: orNone(t.Category), Inline: true},
			{Name: "Created By", Value: mentionUser(t.UserID), Inline: true},
			{Name: "Closed By", Value: mentionUser(t.ClosedBy), Inline: true},
			{Name: "Reason", Value: orNone(t.CloseReason)},
		},
		Timestamp: closedAt(t),
	}
	if t.AssignedTo != "" {
		n.Fields = append(n.Fields, models.Field{Name: "Claimed By", Value: mentionUser(t.AssignedTo), Inline: true})
	}
	if transcript != nil {
		n.Files = []models.File{transcript.File()}
	}
	return n
}

func closeDirectNotice(t *models.Ticket, transcript *models.Transcript) models.Notice {
	n := models.Notice{
		Title:       fmt.Sprintf("Your ticket #%s has been closed", t.DisplayNumber()),
		Description: fmt.Sprintf("Reason: %s", t.CloseReason),
		Color:       models.ColorInfo,
		Fields: []models.Field{
			{Name: "Subject", Value: orNone(t.Subject), Inline: true},
			{Name: "Category", Value: orNone(t.Category), Inline: true},
		},
		Timestamp: closedAt(t),
	}
	if transcript != nil {
		n.Description += "\nA transcript of the conversation is attached."
		n.Files = []models.File{transcript.File()}
	}
	return n
}

func removedLogNotice(t *models.Ticket) models.Notice {
	return models.Notice{
		Title:       "Ticket Channel Removed",
		Description: fmt.Sprintf("The channel of ticket #%s was deleted while it was open. The ticket has been closed.", t.DisplayNumber()),
		Color:       models.ColorWarn,
		Fields: []models.Field{
			{Name: "Created By", Value: mentionUser(t.UserID), Inline: true},
			{Name: "Subject", Value: orNone(t.Subject), Inline: true},
		},
		Timestamp: time.Now(),
	}
}

func closedAt(t *models.Ticket) time.Time {
	if t.ClosedAt != nil {
		return *t.ClosedAt
	}
	return t.UpdatedAt
}

package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ticket-bot/command"
	"ticket-bot/models"
	"ticket-bot/scanner"
	"ticket-bot/ticket"

	"github.com/bwmarrin/discordgo"
)

const (
	memberChannelPerms = discordgo.PermissionViewChannel |
		discordgo.PermissionSendMessages |
		discordgo.PermissionReadMessageHistory |
		discordgo.PermissionAttachFiles |
		discordgo.PermissionEmbedLinks
	staffChannelPerms = memberChannelPerms | discordgo.PermissionManageMessages
	botChannelPerms   = staffChannelPerms | discordgo.PermissionManageChannels

	// Discord returns at most 100 messages per history request.
	historyPageSize = 100
)

// Discord adapts a gateway session to the ticket collaborators.
type Discord struct {
	session *discordgo.Session
}

var (
	_ ticket.ChannelProvider = (*Discord)(nil)
	_ ticket.GuildProvider   = (*Discord)(nil)
	_ ticket.DirectMessenger = (*Discord)(nil)
	_ scanner.ChannelLister  = (*Discord)(nil)
)

// NewDiscord wraps a session.
func NewDiscord(s *discordgo.Session) *Discord {
	return &Discord{session: s}
}

// IsUnknownResource reports whether err is a Discord 404, e.g. an already deleted channel.
func IsUnknownResource(err error) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}

// CreateChannel creates a private text channel visible to the owner, the bot
// and staff.
func (d *Discord) CreateChannel(ctx context.Context, spec ticket.ChannelSpec) (string, error) {
	overwrites := []*discordgo.PermissionOverwrite{
		{
			// The @everyone role shares the guild's ID.
			ID:   spec.GuildID,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionViewChannel,
		},
		{
			ID:    spec.Visibility.OwnerID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: memberChannelPerms,
		},
	}
	if d.session.State != nil && d.session.State.User != nil {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    d.session.State.User.ID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: botChannelPerms,
		})
	}
	if spec.Visibility.SupportRoleID != "" {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    spec.Visibility.SupportRoleID,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: staffChannelPerms,
		})
	}
	for _, roleID := range spec.Visibility.StaffRoleIDs {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    roleID,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: staffChannelPerms,
		})
	}
	for _, userID := range spec.Visibility.StaffMemberIDs {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    userID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: staffChannelPerms,
		})
	}

	ch, err := d.session.GuildChannelCreateComplex(spec.GuildID, discordgo.GuildChannelCreateData{
		Name:                 spec.Name,
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                spec.Topic,
		ParentID:             spec.ParentID,
		PermissionOverwrites: overwrites,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("error creating channel %s: %w", spec.Name, err)
	}
	return ch.ID, nil
}

func (d *Discord) DeleteChannel(ctx context.Context, channelID string) error {
	if _, err := d.session.ChannelDelete(channelID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("error deleting channel %s: %w", channelID, err)
	}
	return nil
}

func (d *Discord) SendMessage(ctx context.Context, channelID string, notice models.Notice) (string, error) {
	msg, err := d.session.ChannelMessageSendComplex(channelID, MessageSend(notice), discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("error sending message to %s: %w", channelID, err)
	}
	return msg.ID, nil
}

// EditMessage replaces a message's content, embed and buttons with notice.
func (d *Discord) EditMessage(ctx context.Context, channelID, messageID string, notice models.Notice) error {
	content := notice.Content
	embeds := []*discordgo.MessageEmbed{}
	if embed := Embed(notice); embed != nil {
		embeds = append(embeds, embed)
	}
	components := Components(notice.Buttons)
	if components == nil {
		components = []discordgo.MessageComponent{}
	}

	edit := discordgo.NewMessageEdit(channelID, messageID)
	edit.Content = &content
	edit.Embeds = &embeds
	edit.Components = &components
	if _, err := d.session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("error editing message %s: %w", messageID, err)
	}
	return nil
}

func (d *Discord) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	if err := d.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("error deleting message %s: %w", messageID, err)
	}
	return nil
}

// FetchRecentMessages pages backwards through history and returns the
// newest limit messages oldest first.
func (d *Discord) FetchRecentMessages(ctx context.Context, channelID string, limit int) ([]models.HistoryMessage, error) {
	var (
		collected []*discordgo.Message
		beforeID  string
	)
	for len(collected) < limit {
		page := historyPageSize
		if remaining := limit - len(collected); remaining < page {
			page = remaining
		}
		msgs, err := d.session.ChannelMessages(channelID, page, beforeID, "", "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("error fetching messages from %s: %w", channelID, err)
		}
		collected = append(collected, msgs...)
		if len(msgs) < page {
			break
		}
		beforeID = msgs[len(msgs)-1].ID
	}

	history := make([]models.HistoryMessage, 0, len(collected))
	for i := len(collected) - 1; i >= 0; i-- {
		history = append(history, historyMessage(collected[i]))
	}
	return history, nil
}

func historyMessage(m *discordgo.Message) models.HistoryMessage {
	h := models.HistoryMessage{
		ID:        m.ID,
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}
	if m.Author != nil {
		h.AuthorID = m.Author.ID
		h.AuthorName = m.Author.Username
		if m.Author.GlobalName != "" {
			h.AuthorName = m.Author.GlobalName
		}
		h.AuthorBot = m.Author.Bot
	}
	for _, e := range m.Embeds {
		switch {
		case e.Title != "" && e.Description != "":
			h.Embeds = append(h.Embeds, e.Title+"\n"+e.Description)
		case e.Title != "":
			h.Embeds = append(h.Embeds, e.Title)
		case e.Description != "":
			h.Embeds = append(h.Embeds, e.Description)
		}
	}
	for _, a := range m.Attachments {
		h.Attachments = append(h.Attachments, a.URL)
	}
	return h
}

// GuildChannelIDs lists the guild's channels, from the state cache when the
// guild is cached.
func (d *Discord) GuildChannelIDs(ctx context.Context, guildID string) ([]string, error) {
	if d.session.State != nil {
		if g, err := d.session.State.Guild(guildID); err == nil {
			d.session.State.RLock()
			ids := make([]string, 0, len(g.Channels))
			for _, ch := range g.Channels {
				ids = append(ids, ch.ID)
			}
			d.session.State.RUnlock()
			if len(ids) > 0 {
				return ids, nil
			}
		}
	}

	channels, err := d.session.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("error listing channels of %s: %w", guildID, err)
	}
	ids := make([]string, 0, len(channels))
	for _, ch := range channels {
		ids = append(ids, ch.ID)
	}
	return ids, nil
}

func (d *Discord) SendDirectMessage(ctx context.Context, userID string, notice models.Notice) (string, error) {
	ch, err := d.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("error opening DM channel with %s: %w", userID, err)
	}
	return d.SendMessage(ctx, ch.ID, notice)
}

// EnsureRole finds the role by name or creates it.
func (d *Discord) EnsureRole(ctx context.Context, guildID, name string) (string, error) {
	roles, err := d.session.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("error listing roles of %s: %w", guildID, err)
	}
	for _, r := range roles {
		if r.Name == name {
			return r.ID, nil
		}
	}

	mentionable := true
	role, err := d.session.GuildRoleCreate(guildID, &discordgo.RoleParams{
		Name:        name,
		Mentionable: &mentionable,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("error creating role %s: %w", name, err)
	}
	return role.ID, nil
}

// MessageSend converts a notice to a discordgo message.
func MessageSend(n models.Notice) *discordgo.MessageSend {
	msg := &discordgo.MessageSend{
		Content:    n.Content,
		Components: Components(n.Buttons),
	}
	if embed := Embed(n); embed != nil {
		msg.Embeds = []*discordgo.MessageEmbed{embed}
	}
	for _, f := range n.Files {
		msg.Files = append(msg.Files, &discordgo.File{
			Name:        f.Name,
			ContentType: f.ContentType,
			Reader:      f.Reader,
		})
	}
	return msg
}

// Embed returns the notice's embed, or nil when it has none.
func Embed(n models.Notice) *discordgo.MessageEmbed {
	if n.Title == "" && n.Description == "" && len(n.Fields) == 0 {
		return nil
	}
	embed := &discordgo.MessageEmbed{
		Title:       n.Title,
		Description: n.Description,
		Color:       n.Color,
	}
	if !n.Timestamp.IsZero() {
		embed.Timestamp = n.Timestamp.Format(time.RFC3339)
	}
	for _, f := range n.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Inline,
		})
	}
	return embed
}

// Components lays buttons out in rows of five.
func Components(buttons []models.Button) []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent
	for start := 0; start < len(buttons); start += 5 {
		end := start + 5
		if end > len(buttons) {
			end = len(buttons)
		}
		row := discordgo.ActionsRow{}
		for _, b := range buttons[start:end] {
			btn := discordgo.Button{
				Label:    b.Label,
				Style:    buttonStyle(b.Style),
				CustomID: command.EncodeCustomID(b.Action),
			}
			if b.Emoji != "" {
				btn.Emoji = &discordgo.ComponentEmoji{Name: b.Emoji}
			}
			row.Components = append(row.Components, btn)
		}
		rows = append(rows, row)
	}
	return rows
}

func buttonStyle(s models.ButtonStyle) discordgo.ButtonStyle {
	switch s {
	case models.ButtonSecondary:
		return discordgo.SecondaryButton
	case models.ButtonSuccess:
		return discordgo.SuccessButton
	case models.ButtonDanger:
		return discordgo.DangerButton
	default:
		return discordgo.PrimaryButton
	}
}

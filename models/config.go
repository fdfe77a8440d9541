package models

import "time"

// GuildConfig is the per-guild ticket system configuration.
type GuildConfig struct {
	GuildID              string        `json:"guild_id" bson:"guildId" mapstructure:"guild_id"`
	TicketChannelID      string        `json:"ticket_channel_id" bson:"ticketChannelId" mapstructure:"ticket_channel_id"`
	CategoryID           string        `json:"category_id" bson:"ticketCategoryId" mapstructure:"category_id"`
	LogsChannelID        string        `json:"logs_channel_id" bson:"logsChannelId" mapstructure:"logs_channel_id"`
	TranscriptsChannelID string        `json:"transcripts_channel_id" bson:"transcriptsChannelId" mapstructure:"transcripts_channel_id"`
	RatingChannelID      string        `json:"rating_channel_id" bson:"ratingChannelId" mapstructure:"rating_channel_id"`
	SupportRoleID        string        `json:"support_role_id" bson:"supportRoleId" mapstructure:"support_role_id"`
	PanelMessageID       string        `json:"panel_message_id" bson:"panelMessageId" mapstructure:"panel_message_id"`
	Panel                PanelSettings `json:"panel" bson:"panel" mapstructure:"panel"`
	StaffRoles           []string      `json:"staff_roles" bson:"staffRoles" mapstructure:"staff_roles"`
	StaffMembers         []string      `json:"staff_members" bson:"staffMembers" mapstructure:"staff_members"`
	LastTicketNumber     int64         `json:"last_ticket_number" bson:"lastTicketNumber" mapstructure:"last_ticket_number"`
	CreatedAt            time.Time     `json:"created_at" bson:"createdAt" mapstructure:"-"`
	UpdatedAt            time.Time     `json:"updated_at" bson:"updatedAt" mapstructure:"-"`
}

// PanelSettings customizes the ticket panel. Zero fields use the defaults.
type PanelSettings struct {
	Title       string      `json:"title,omitempty" bson:"title,omitempty"`
	Description string      `json:"description,omitempty" bson:"description,omitempty"`
	Color       int         `json:"color,omitempty" bson:"color,omitempty"`
	ButtonLabel string      `json:"button_label,omitempty" bson:"buttonLabel,omitempty"`
	ButtonEmoji string      `json:"button_emoji,omitempty" bson:"buttonEmoji,omitempty"`
	ButtonStyle ButtonStyle `json:"button_style,omitempty" bson:"buttonStyle,omitempty"`
}

// HasStaffRole reports whether roleID is listed as a staff role.
func (c *GuildConfig) HasStaffRole(roleID string) bool {
	return contains(c.StaffRoles, roleID)
}

// HasStaffMember reports whether userID is listed as an individual staff member.
func (c *GuildConfig) HasStaffMember(userID string) bool {
	return contains(c.StaffMembers, userID)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

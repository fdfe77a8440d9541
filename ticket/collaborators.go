package ticket

import (
	"context"

	"ticket-bot/models"
)

// Visibility lists who may see a ticket channel besides the bot. Everyone
// else in the guild is denied.
type Visibility struct {
	OwnerID        string
	SupportRoleID  string
	StaffRoleIDs   []string
	StaffMemberIDs []string
}

// ChannelSpec describes a ticket channel to create.
type ChannelSpec struct {
	GuildID    string
	Name       string
	ParentID   string
	Topic      string
	Visibility Visibility
}

// ChannelProvider is the chat platform's channel and message surface.
type ChannelProvider interface {
	CreateChannel(ctx context.Context, spec ChannelSpec) (string, error)
	DeleteChannel(ctx context.Context, channelID string) error
	SendMessage(ctx context.Context, channelID string, notice models.Notice) (string, error)
	// EditMessage replaces the content of a message the bot sent.
	EditMessage(ctx context.Context, channelID, messageID string, notice models.Notice) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	// FetchRecentMessages returns up to limit messages, oldest first.
	FetchRecentMessages(ctx context.Context, channelID string, limit int) ([]models.HistoryMessage, error)
}

// GuildProvider manages guild-level objects.
type GuildProvider interface {
	// EnsureRole returns the ID of the role called name, creating it if absent.
	EnsureRole(ctx context.Context, guildID, name string) (string, error)
}

// DirectMessenger delivers private messages to users.
type DirectMessenger interface {
	SendDirectMessage(ctx context.Context, userID string, notice models.Notice) (string, error)
}

// TranscriptOptions controls transcript rendering.
type TranscriptOptions struct {
	Ticket *models.Ticket
	Limit  int
}

// TranscriptRenderer captures a channel's history as a file.
type TranscriptRenderer interface {
	Render(ctx context.Context, channelID string, opts TranscriptOptions) (*models.Transcript, error)
}

// RatingPrompter asks a ticket owner to rate a closed ticket.
type RatingPrompter interface {
	Prompt(ctx context.Context, t *models.Ticket) error
}

// DeletionScheduler removes a closed ticket's channel after a delay.
type DeletionScheduler interface {
	ScheduleDeletion(ctx context.Context, t *models.Ticket) error
}

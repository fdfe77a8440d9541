package database

import (
	"context"
	"errors"
	"time"

	"ticket-bot/models"
)

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a uniqueness constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
	// ErrConditionFailed is returned when a conditional update matched nothing.
	ErrConditionFailed = errors.New("condition not met")
)

// Store is the persistence contract shared by the SQLite and MongoDB backends.
// Every method that guards a uniqueness or state rule does so in a single
// storage-side operation; callers never read-modify-write.
type Store interface {
	GetGuildConfig(ctx context.Context, guildID string) (*models.GuildConfig, error)
	// UpsertGuildConfig writes channel, category and role settings, keeping the
	// ticket counter and staff sets of an existing configuration.
	UpsertGuildConfig(ctx context.Context, cfg *models.GuildConfig) (*models.GuildConfig, error)
	SetPanelMessage(ctx context.Context, guildID, messageID string) error
	SetPanelSettings(ctx context.Context, guildID string, p models.PanelSettings) error
	AddStaffRole(ctx context.Context, guildID, roleID string) error
	RemoveStaffRole(ctx context.Context, guildID, roleID string) error
	AddStaffMember(ctx context.Context, guildID, userID string) error
	RemoveStaffMember(ctx context.Context, guildID, userID string) error
	// NextTicketNumber atomically increments and returns the guild counter.
	NextTicketNumber(ctx context.Context, guildID string) (int64, error)

	CreateTicket(ctx context.Context, t *models.Ticket) error
	GetTicket(ctx context.Context, id string) (*models.Ticket, error)
	GetTicketByChannel(ctx context.Context, guildID, channelID string) (*models.Ticket, error)
	FindOpenTicket(ctx context.Context, guildID, userID string) (*models.Ticket, error)
	LatestClosedTicket(ctx context.Context, userID string) (*models.Ticket, error)
	// AssignTicket sets assigned_to to assignee only if the ticket is open and
	// currently assigned to expected. Empty strings mean unassigned.
	AssignTicket(ctx context.Context, ticketID, expected, assignee string, at time.Time) error
	// CloseTicket closes the ticket only if it is still open.
	CloseTicket(ctx context.Context, ticketID, closedBy, reason string, at time.Time) error
	// SetDeleteAfter records or clears (nil) a pending channel deletion.
	SetDeleteAfter(ctx context.Context, ticketID string, at *time.Time) error
	PendingDeletions(ctx context.Context, before time.Time) ([]*models.Ticket, error)
	OpenTickets(ctx context.Context, guildID string) ([]*models.Ticket, error)

	CreateRating(ctx context.Context, r *models.TicketRating) error
	GetRatingByTicket(ctx context.Context, ticketID string) (*models.TicketRating, error)

	Close() error
}

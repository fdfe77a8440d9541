package models

import (
	"fmt"
	"time"
)

// TicketStatus is the primary lifecycle state of a ticket.
type TicketStatus string

const (
	StatusOpen   TicketStatus = "open"
	StatusClosed TicketStatus = "closed"
)

const (
	DefaultSubject     = "No subject provided"
	DefaultCategory    = "General Support"
	DefaultCloseReason = "No reason provided"
)

// Ticket is a tracked support request bound to one conversation channel.
type Ticket struct {
	ID           string       `json:"id" bson:"_id"`
	GuildID      string       `json:"guild_id" bson:"guildId"`
	ChannelID    string       `json:"channel_id" bson:"channelId"`
	TicketNumber int64        `json:"ticket_number" bson:"ticketNumber"`
	UserID       string       `json:"user_id" bson:"userId"`
	Status       TicketStatus `json:"status" bson:"status"`
	Subject      string       `json:"subject" bson:"subject"`
	Category     string       `json:"category" bson:"category"`
	Description  string       `json:"description" bson:"description"`
	AssignedTo   string       `json:"assigned_to,omitempty" bson:"assignedTo,omitempty"`
	ClosedBy     string       `json:"closed_by,omitempty" bson:"closedBy,omitempty"`
	CloseReason  string       `json:"close_reason,omitempty" bson:"closeReason,omitempty"`
	ClosedAt     *time.Time   `json:"closed_at,omitempty" bson:"closedAt,omitempty"`
	DeleteAfter  *time.Time   `json:"delete_after,omitempty" bson:"deleteAfter,omitempty"`
	CreatedAt    time.Time    `json:"created_at" bson:"createdAt"`
	UpdatedAt    time.Time    `json:"updated_at" bson:"updatedAt"`
}

// IsOpen reports whether the ticket still accepts lifecycle actions.
func (t *Ticket) IsOpen() bool {
	return t.Status == StatusOpen
}

// IsClaimed reports whether a staff member is assigned.
func (t *Ticket) IsClaimed() bool {
	return t.AssignedTo != ""
}

// DisplayNumber renders the zero-padded ticket number.
func (t *Ticket) DisplayNumber() string {
	return FormatTicketNumber(t.TicketNumber)
}

// ChannelName is the name of the dedicated conversation channel.
func (t *Ticket) ChannelName() string {
	return "ticket-" + t.DisplayNumber()
}

// FormatTicketNumber zero-pads n to four digits.
func FormatTicketNumber(n int64) string {
	return fmt.Sprintf("%04d", n)
}

// TicketRating is the owner's post-closure satisfaction score.
type TicketRating struct {
	ID            string    `json:"id" bson:"_id"`
	GuildID       string    `json:"guild_id" bson:"guildId"`
	TicketID      string    `json:"ticket_id" bson:"ticketId"`
	TicketNumber  int64     `json:"ticket_number" bson:"ticketNumber"`
	UserID        string    `json:"user_id" bson:"userId"`
	SupportUserID string    `json:"support_user_id" bson:"supportUserId"`
	Rating        int       `json:"rating" bson:"rating"`
	Feedback      string    `json:"feedback,omitempty" bson:"feedback,omitempty"`
	CreatedAt     time.Time `json:"created_at" bson:"createdAt"`
}

const (
	MinRating = 1
	MaxRating = 5
)

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ticket-bot/models"
)

const ticketColumns = `id, guild_id, channel_id, ticket_number, user_id, status, subject, category, description,
    assigned_to, closed_by, close_reason, closed_at, delete_after, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*models.Ticket, error) {
	var (
		t                            models.Ticket
		status                       string
		assignedTo, closedBy, reason sql.NullString
		closedAt, deleteAfter        sql.NullInt64
		createdAt, updatedAt         int64
	)
	err := row.Scan(
		&t.ID,
		&t.GuildID,
		&t.ChannelID,
		&t.TicketNumber,
		&t.UserID,
		&status,
		&t.Subject,
		&t.Category,
		&t.Description,
		&assignedTo,
		&closedBy,
		&reason,
		&closedAt,
		&deleteAfter,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Status = models.TicketStatus(status)
	t.AssignedTo = assignedTo.String
	t.ClosedBy = closedBy.String
	t.CloseReason = reason.String
	t.ClosedAt = fromNullMillis(closedAt)
	t.DeleteAfter = fromNullMillis(deleteAfter)
	t.CreatedAt = fromMillis(createdAt)
	t.UpdatedAt = fromMillis(updatedAt)
	return &t, nil
}

func (s *SQLiteStore) getTicket(ctx context.Context, where string, args ...any) (*models.Ticket, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE `+where, args...)
	t, err := scanTicket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ticket: %w", err)
	}
	return t, nil
}

// CreateTicket inserts a new ticket. A second open ticket for the same owner,
// a reused channel or a reused number yields ErrDuplicate.
func (s *SQLiteStore) CreateTicket(ctx context.Context, t *models.Ticket) error {
	_, err := s.db.ExecContext(ctx, `
    INSERT INTO tickets (`+ticketColumns+`)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.GuildID,
		t.ChannelID,
		t.TicketNumber,
		t.UserID,
		string(t.Status),
		t.Subject,
		t.Category,
		t.Description,
		nullString(t.AssignedTo),
		nullString(t.ClosedBy),
		nullString(t.CloseReason),
		nullMillis(t.ClosedAt),
		nullMillis(t.DeleteAfter),
		toMillis(t.CreatedAt),
		toMillis(t.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert ticket %d: %w", t.TicketNumber, err)
	}
	return nil
}

func (s *SQLiteStore) GetTicket(ctx context.Context, id string) (*models.Ticket, error) {
	return s.getTicket(ctx, `id = ?`, id)
}

func (s *SQLiteStore) GetTicketByChannel(ctx context.Context, guildID, channelID string) (*models.Ticket, error) {
	return s.getTicket(ctx, `guild_id = ? AND channel_id = ?`, guildID, channelID)
}

func (s *SQLiteStore) FindOpenTicket(ctx context.Context, guildID, userID string) (*models.Ticket, error) {
	return s.getTicket(ctx, `guild_id = ? AND user_id = ? AND status = 'open'`, guildID, userID)
}

// LatestClosedTicket returns the most recently closed ticket owned by userID in any guild.
func (s *SQLiteStore) LatestClosedTicket(ctx context.Context, userID string) (*models.Ticket, error) {
	return s.getTicket(ctx,
		`user_id = ? AND status = 'closed' ORDER BY closed_at DESC, ticket_number DESC LIMIT 1`, userID)
}

func (s *SQLiteStore) AssignTicket(ctx context.Context, ticketID, expected, assignee string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
    UPDATE tickets SET assigned_to = ?, updated_at = ?
    WHERE id = ? AND status = 'open' AND assigned_to IS ?`,
		nullString(assignee), toMillis(at), ticketID, nullString(expected))
	if err != nil {
		return fmt.Errorf("failed to assign ticket %s: %w", ticketID, err)
	}
	return requireRow(res, ErrConditionFailed)
}

func (s *SQLiteStore) CloseTicket(ctx context.Context, ticketID, closedBy, reason string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
    UPDATE tickets SET status = 'closed', closed_by = ?, close_reason = ?, closed_at = ?, updated_at = ?
    WHERE id = ? AND status = 'open'`,
		closedBy, reason, toMillis(at), toMillis(at), ticketID)
	if err != nil {
		return fmt.Errorf("failed to close ticket %s: %w", ticketID, err)
	}
	return requireRow(res, ErrConditionFailed)
}

func (s *SQLiteStore) SetDeleteAfter(ctx context.Context, ticketID string, at *time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tickets SET delete_after = ? WHERE id = ?`, nullMillis(at), ticketID)
	if err != nil {
		return fmt.Errorf("failed to set delete_after on ticket %s: %w", ticketID, err)
	}
	return requireRow(res, ErrNotFound)
}

// PendingDeletions lists tickets whose channel deletion is due at or before before.
func (s *SQLiteStore) PendingDeletions(ctx context.Context, before time.Time) ([]*models.Ticket, error) {
	tickets, err := s.queryTickets(ctx,
		`delete_after IS NOT NULL AND delete_after <= ? ORDER BY delete_after`, toMillis(before))
	if err != nil {
		return nil, fmt.Errorf("failed to query pending deletions: %w", err)
	}
	return tickets, nil
}

// OpenTickets lists the open tickets of a guild by number.
func (s *SQLiteStore) OpenTickets(ctx context.Context, guildID string) ([]*models.Ticket, error) {
	tickets, err := s.queryTickets(ctx,
		`guild_id = ? AND status = 'open' ORDER BY ticket_number`, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to query open tickets of guild %s: %w", guildID, err)
	}
	return tickets, nil
}

func (s *SQLiteStore) queryTickets(ctx context.Context, where string, args ...any) ([]*models.Ticket, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []*models.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

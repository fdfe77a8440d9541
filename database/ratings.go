package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ticket-bot/models"
)

// CreateRating stores a rating; the unique ticket_id column makes a second
// rating for the same ticket fail with ErrDuplicate.
func (s *SQLiteStore) CreateRating(ctx context.Context, r *models.TicketRating) error {
	_, err := s.db.ExecContext(ctx, `
    INSERT INTO ticket_ratings (
        id, guild_id, ticket_id, ticket_number, user_id, support_user_id, rating, feedback, created_at
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID,
		r.GuildID,
		r.TicketID,
		r.TicketNumber,
		r.UserID,
		r.SupportUserID,
		r.Rating,
		r.Feedback,
		toMillis(r.CreatedAt),
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert rating for ticket %s: %w", r.TicketID, err)
	}
	return nil
}

func (s *SQLiteStore) GetRatingByTicket(ctx context.Context, ticketID string) (*models.TicketRating, error) {
	var (
		r         models.TicketRating
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, `
    SELECT id, guild_id, ticket_id, ticket_number, user_id, support_user_id, rating, feedback, created_at
    FROM ticket_ratings WHERE ticket_id = ?`, ticketID).Scan(
		&r.ID,
		&r.GuildID,
		&r.TicketID,
		&r.TicketNumber,
		&r.UserID,
		&r.SupportUserID,
		&r.Rating,
		&r.Feedback,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load rating for ticket %s: %w", ticketID, err)
	}
	r.CreatedAt = fromMillis(createdAt)
	return &r, nil
}

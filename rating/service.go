// Package rating collects post-closure satisfaction ratings, at most one per ticket.
package rating

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ticket-bot/database"
	"ticket-bot/models"
	"ticket-bot/observability"
	"ticket-bot/ticket"
	"ticket-bot/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Confirmation is returned to the rater on success.
const Confirmation = "Thank you for your feedback! Your rating has been recorded."

// Deps wires the rating service.
type Deps struct {
	Store    database.Store
	Channels ticket.ChannelProvider
	Direct   ticket.DirectMessenger
	Metrics  *observability.Metrics
	Logger   *zap.Logger
}

// Service prompts ticket owners for ratings and records them.
type Service struct {
	store    database.Store
	channels ticket.ChannelProvider
	direct   ticket.DirectMessenger
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

var _ ticket.RatingPrompter = (*Service)(nil)

// NewService creates the rating service.
func NewService(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    d.Store,
		channels: d.Channels,
		direct:   d.Direct,
		metrics:  d.Metrics,
		logger:   logger.Named("rating"),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Prompt asks the owner of a closed ticket to rate it. The choices carry the
// ticket ID so the answer resolves to exactly this ticket.
func (s *Service) Prompt(ctx context.Context, t *models.Ticket) error {
	if _, err := s.direct.SendDirectMessage(ctx, t.UserID, promptNotice(t)); err != nil {
		return fmt.Errorf("failed to send rating prompt to %s: %w", t.UserID, err)
	}
	s.logger.Debug("rating prompt sent", zap.String("ticket_id", t.ID), zap.String("user_id", t.UserID))
	return nil
}

// SubmitRequest is the rater's answer. TicketID is empty for prompts that
// did not carry a ticket reference; the most recently closed ticket owned by
// UserID is rated then.
type SubmitRequest struct {
	UserID          string
	TicketID        string
	Rating          int
	Feedback        string
	PromptChannelID string
	PromptMessageID string
}

// Submit records a rating. A second rating for the same ticket fails with
// an ALREADY_RATED error whoever submits it.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*models.TicketRating, error) {
	if req.Rating < models.MinRating || req.Rating > models.MaxRating {
		return nil, ticket.Invalid(fmt.Sprintf("Rating must be between %d and %d.", models.MinRating, models.MaxRating))
	}

	t, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.GetRatingByTicket(ctx, t.ID); err == nil {
		return nil, ticket.AlreadyRated()
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, ticket.Internal(err)
	}
	if t.UserID != req.UserID {
		return nil, ticket.Forbidden(utils.ReasonNotOwner)
	}
	if t.IsOpen() {
		return nil, ticket.Conflict("This ticket is still open.")
	}

	r := &models.TicketRating{
		ID:            s.newID(),
		GuildID:       t.GuildID,
		TicketID:      t.ID,
		TicketNumber:  t.TicketNumber,
		UserID:        req.UserID,
		SupportUserID: t.ClosedBy,
		Rating:        req.Rating,
		Feedback:      strings.TrimSpace(req.Feedback),
		CreatedAt:     s.now(),
	}
	if err := s.store.CreateRating(ctx, r); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ticket.AlreadyRated()
		}
		return nil, ticket.Internal(err)
	}

	s.metrics.Rating(r.Rating)
	s.logger.Info("ticket rated",
		zap.String("ticket_id", t.ID),
		zap.Int64("ticket_number", t.TicketNumber),
		zap.String("user_id", r.UserID),
		zap.Int("rating", r.Rating),
	)

	s.forward(ctx, t, r)
	s.deletePrompt(ctx, req)
	return r, nil
}

// resolve finds the ticket a submission refers to. Ownership is checked by
// the caller after the duplicate check.
func (s *Service) resolve(ctx context.Context, req SubmitRequest) (*models.Ticket, error) {
	if req.TicketID == "" {
		t, err := s.store.LatestClosedTicket(ctx, req.UserID)
		if errors.Is(err, database.ErrNotFound) {
			return nil, ticket.NotFound("No closed ticket found to rate.")
		}
		if err != nil {
			return nil, ticket.Internal(err)
		}
		return t, nil
	}

	t, err := s.store.GetTicket(ctx, req.TicketID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ticket.NotFound("The ticket for this rating no longer exists.")
	}
	if err != nil {
		return nil, ticket.Internal(err)
	}
	return t, nil
}

// forward posts the rating summary to the guild's rating channel.
func (s *Service) forward(ctx context.Context, t *models.Ticket, r *models.TicketRating) {
	cfg, err := s.store.GetGuildConfig(ctx, t.GuildID)
	if err != nil {
		s.logger.Warn("could not load guild config for rating summary", zap.String("guild_id", t.GuildID), zap.Error(err))
		return
	}
	if cfg.RatingChannelID == "" {
		return
	}
	if _, err := s.channels.SendMessage(ctx, cfg.RatingChannelID, summaryNotice(t, r)); err != nil {
		s.logger.Warn("failed to forward rating", zap.String("channel_id", cfg.RatingChannelID), zap.Error(err))
	}
}

func (s *Service) deletePrompt(ctx context.Context, req SubmitRequest) {
	if req.PromptChannelID == "" || req.PromptMessageID == "" {
		return
	}
	if err := s.channels.DeleteMessage(ctx, req.PromptChannelID, req.PromptMessageID); err != nil {
		s.logger.Debug("could not delete rating prompt", zap.String("message_id", req.PromptMessageID), zap.Error(err))
	}
}

func promptNotice(t *models.Ticket) models.Notice {
	buttons := make([]models.Button, 0, models.MaxRating)
	for n := models.MinRating; n <= models.MaxRating; n++ {
		buttons = append(buttons, models.Button{
			Label:  fmt.Sprintf("%d", n),
			Emoji:  "⭐",
			Style:  models.ButtonPrimary,
			Action: models.ComponentAction{Component: models.ComponentRate, TicketID: t.ID, Rating: n},
		})
	}
	return models.Notice{
		Title:       "Rate Your Support Experience",
		Description: fmt.Sprintf("Your ticket #%s has been closed.\nHow would you rate the support you received?", t.DisplayNumber()),
		Color:       models.ColorRating,
		Fields: []models.Field{
			{Name: "Subject", Value: t.Subject, Inline: true},
			{Name: "Category", Value: t.Category, Inline: true},
		},
		Buttons: buttons,
	}
}

// Stars renders a score as repeated star emoji.
func Stars(n int) string {
	return strings.Repeat("⭐", n)
}

// scoreColor is green for good ratings, yellow for neutral and red below.
func scoreColor(n int) int {
	switch {
	case n >= 4:
		return models.ColorSuccess
	case n == 3:
		return models.ColorWarn
	default:
		return models.ColorError
	}
}

func summaryNotice(t *models.Ticket, r *models.TicketRating) models.Notice {
	staff := "Unknown"
	if r.SupportUserID != "" {
		staff = "<@" + r.SupportUserID + ">"
	}
	n := models.Notice{
		Title:       fmt.Sprintf("New Ticket Rating - #%s", t.DisplayNumber()),
		Description: fmt.Sprintf("%s (%d/%d)", Stars(r.Rating), r.Rating, models.MaxRating),
		Color:       scoreColor(r.Rating),
		Fields: []models.Field{
			{Name: "User", Value: "<@" + r.UserID + ">", Inline: true},
			{Name: "Support Staff", Value: staff, Inline: true},
			{Name: "Subject", Value: t.Subject},
			{Name: "Category", Value: t.Category, Inline: true},
		},
		Timestamp: r.CreatedAt,
	}
	if r.Feedback != "" {
		n.Fields = append(n.Fields, models.Field{Name: "Feedback", Value: r.Feedback})
	}
	return n
}

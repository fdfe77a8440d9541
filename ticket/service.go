package ticket

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ticket-bot/database"
	"ticket-bot/models"
	"ticket-bot/observability"
	"ticket-bot/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Deps wires the lifecycle engine to storage and the chat platform.
type Deps struct {
	Store       database.Store
	Channels    ChannelProvider
	Guilds      GuildProvider
	Transcripts TranscriptRenderer
	Direct      DirectMessenger
	Ratings     RatingPrompter
	Deleter     DeletionScheduler
	Metrics     *observability.Metrics
	Logger      *zap.Logger

	// DeleteDelay is only used for the notice shown in a closing channel.
	DeleteDelay     time.Duration
	TranscriptLimit int
}

// Service is the ticket lifecycle engine. Tickets are OPEN or CLOSED, with an
// orthogonal assignee; CLOSED is terminal.
type Service struct {
	store           database.Store
	channels        ChannelProvider
	guilds          GuildProvider
	transcripts     TranscriptRenderer
	direct          DirectMessenger
	ratings         RatingPrompter
	deleter         DeletionScheduler
	metrics         *observability.Metrics
	logger          *zap.Logger
	deleteDelay     time.Duration
	transcriptLimit int

	now   func() time.Time
	newID func() string
	async func(func())
}

// NewService creates the lifecycle engine.
func NewService(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := d.TranscriptLimit
	if limit <= 0 {
		limit = 500
	}
	return &Service{
		store:           d.Store,
		channels:        d.Channels,
		guilds:          d.Guilds,
		transcripts:     d.Transcripts,
		direct:          d.Direct,
		ratings:         d.Ratings,
		deleter:         d.Deleter,
		metrics:         d.Metrics,
		logger:          logger.Named("ticket"),
		deleteDelay:     d.DeleteDelay,
		transcriptLimit: limit,
		now:             time.Now,
		newID:           uuid.NewString,
		async:           func(f func()) { go f() },
	}
}

// OpenRequest carries the user's input for a new ticket.
type OpenRequest struct {
	GuildID     string
	Owner       models.Actor
	Subject     string
	Category    string
	Description string
}

// CloseRequest closes the ticket bound to ChannelID.
type CloseRequest struct {
	GuildID   string
	ChannelID string
	Actor     models.Actor
	Reason    string
}

// Open creates a ticket channel and record for the owner. The channel and the
// record are created together or not at all.
func (s *Service) Open(ctx context.Context, req OpenRequest) (*models.Ticket, error) {
	t, err := s.open(ctx, req)
	s.record(models.ActionOpen, err)
	return t, err
}

func (s *Service) open(ctx context.Context, req OpenRequest) (*models.Ticket, error) {
	cfg, err := s.guildConfig(ctx, req.GuildID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(cfg, models.ActionOpen, req.Owner, nil, nil); err != nil {
		return nil, err
	}

	existing, err := s.store.FindOpenTicket(ctx, req.GuildID, req.Owner.ID)
	if err == nil {
		return nil, Conflict(fmt.Sprintf("You already have an open ticket: %s", mentionChannel(existing.ChannelID)))
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, Internal(err)
	}

	number, err := s.store.NextTicketNumber(ctx, req.GuildID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, NotConfigured()
	}
	if err != nil {
		return nil, Internal(err)
	}

	now := s.now()
	t := &models.Ticket{
		ID:           s.newID(),
		GuildID:      req.GuildID,
		TicketNumber: number,
		UserID:       req.Owner.ID,
		Status:       models.StatusOpen,
		Subject:      withDefault(req.Subject, models.DefaultSubject),
		Category:     withDefault(req.Category, models.DefaultCategory),
		Description:  strings.TrimSpace(req.Description),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	channelID, err := s.channels.CreateChannel(ctx, ChannelSpec{
		GuildID:  req.GuildID,
		Name:     t.ChannelName(),
		ParentID: cfg.CategoryID,
		Topic:    fmt.Sprintf("Ticket #%s | %s | %s", t.DisplayNumber(), t.Category, t.Subject),
		Visibility: Visibility{
			OwnerID:        req.Owner.ID,
			SupportRoleID:  cfg.SupportRoleID,
			StaffRoleIDs:   cfg.StaffRoles,
			StaffMemberIDs: cfg.StaffMembers,
		},
	})
	if err != nil {
		return nil, CollaboratorFailure("create the ticket channel", err)
	}
	t.ChannelID = channelID

	if err := s.store.CreateTicket(ctx, t); err != nil {
		s.discardChannel(ctx, channelID)
		if errors.Is(err, database.ErrDuplicate) {
			return nil, Conflict("You already have an open ticket.")
		}
		return nil, CollaboratorFailure("save the ticket", err)
	}

	s.metrics.TicketOpened()
	s.logger.Info("ticket opened",
		zap.String("guild_id", t.GuildID),
		zap.String("ticket_id", t.ID),
		zap.Int64("ticket_number", t.TicketNumber),
		zap.String("user_id", t.UserID),
		zap.String("channel_id", t.ChannelID),
	)

	s.notify(ctx, t.ChannelID, welcomeNotice(cfg, t), "welcome message")
	s.notify(ctx, cfg.LogsChannelID, openLogNotice(t), "open log")
	return t, nil
}

// Claim assigns the ticket in channelID to actor.
func (s *Service) Claim(ctx context.Context, guildID, channelID string, actor models.Actor) (*models.Ticket, error) {
	t, err := s.claim(ctx, guildID, channelID, actor)
	s.record(models.ActionClaim, err)
	return t, err
}

func (s *Service) claim(ctx context.Context, guildID, channelID string, actor models.Actor) (*models.Ticket, error) {
	cfg, t, err := s.ticketInChannel(ctx, guildID, channelID)
	if err != nil {
		return nil, err
	}
	if t.IsOpen() && t.AssignedTo == actor.ID {
		return nil, Conflict("You have already claimed this ticket.")
	}
	if err := s.authorize(cfg, models.ActionClaim, actor, t, nil); err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.store.AssignTicket(ctx, t.ID, "", actor.ID, now); err != nil {
		return nil, s.assignFailed(ctx, t.ID, err, utils.ReasonAlreadyClaimed.Message())
	}
	t.AssignedTo = actor.ID
	t.UpdatedAt = now

	s.logger.Info("ticket claimed", zap.String("ticket_id", t.ID), zap.String("staff_id", actor.ID))
	s.notify(ctx, t.ChannelID, claimNotice(t, actor), "claim notice")
	s.notify(ctx, cfg.LogsChannelID, claimLogNotice(t, actor), "claim log")
	return t, nil
}

// Unclaim clears the ticket's assignee.
func (s *Service) Unclaim(ctx context.Context, guildID, channelID string, actor models.Actor) (*models.Ticket, error) {
	t, err := s.unclaim(ctx, guildID, channelID, actor)
	s.record(models.ActionUnclaim, err)
	return t, err
}

func (s *Service) unclaim(ctx context.Context, guildID, channelID string, actor models.Actor) (*models.Ticket, error) {
	cfg, t, err := s.ticketInChannel(ctx, guildID, channelID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(cfg, models.ActionUnclaim, actor, t, nil); err != nil {
		return nil, err
	}

	previous := t.AssignedTo
	now := s.now()
	if err := s.store.AssignTicket(ctx, t.ID, previous, "", now); err != nil {
		return nil, s.assignFailed(ctx, t.ID, err, "The ticket's assignee changed in the meantime. Please try again.")
	}
	t.AssignedTo = ""
	t.UpdatedAt = now

	s.logger.Info("ticket unclaimed", zap.String("ticket_id", t.ID), zap.String("previous", previous), zap.String("actor_id", actor.ID))
	s.notify(ctx, t.ChannelID, unclaimNotice(t, previous, actor), "unclaim notice")
	return t, nil
}

// Transfer reassigns the ticket to target, who must be staff.
func (s *Service) Transfer(ctx context.Context, guildID, channelID string, actor, target models.Actor) (*models.Ticket, error) {
	t, err := s.transfer(ctx, guildID, channelID, actor, target)
	s.record(models.ActionTransfer, err)
	return t, err
}

func (s *Service) transfer(ctx context.Context, guildID, channelID string, actor, target models.Actor) (*models.Ticket, error) {
	cfg, t, err := s.ticketInChannel(ctx, guildID, channelID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(cfg, models.ActionTransfer, actor, t, &target); err != nil {
		return nil, err
	}
	if t.AssignedTo == target.ID {
		return nil, Conflict("This ticket is already assigned to that user.")
	}

	previous := t.AssignedTo
	now := s.now()
	if err := s.store.AssignTicket(ctx, t.ID, previous, target.ID, now); err != nil {
		return nil, s.assignFailed(ctx, t.ID, err, "The ticket's assignee changed in the meantime. Please try again.")
	}
	t.AssignedTo = target.ID
	t.UpdatedAt = now

	s.logger.Info("ticket transferred",
		zap.String("ticket_id", t.ID),
		zap.String("previous", previous),
		zap.String("target_id", target.ID),
		zap.String("actor_id", actor.ID),
	)
	s.notify(ctx, t.ChannelID, transferNotice(t, previous, target, actor), "transfer notice")
	return t, nil
}

// Close closes the ticket, archives its transcript and schedules the channel
// for deletion. The rating prompt is sent asynchronously.
func (s *Service) Close(ctx context.Context, req CloseRequest) (*models.Ticket, error) {
	t, err := s.close(ctx, req)
	s.record(models.ActionClose, err)
	return t, err
}

func (s *Service) close(ctx context.Context, req CloseRequest) (*models.Ticket, error) {
	cfg, t, err := s.ticketInChannel(ctx, req.GuildID, req.ChannelID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(cfg, models.ActionClose, req.Actor, t, nil); err != nil {
		return nil, err
	}

	// The channel is still readable here; after the state change it is queued for deletion.
	transcript, err := s.renderTranscript(ctx, t)
	if err != nil {
		s.logger.Warn("failed to generate transcript, closing without one", zap.String("ticket_id", t.ID), zap.Error(err))
	}

	reason := withDefault(req.Reason, models.DefaultCloseReason)
	now := s.now()
	if err := s.store.CloseTicket(ctx, t.ID, req.Actor.ID, reason, now); err != nil {
		if errors.Is(err, database.ErrConditionFailed) {
			return nil, denied(utils.Decision{Reason: utils.ReasonTicketClosed})
		}
		return nil, Internal(err)
	}
	t.Status = models.StatusClosed
	t.ClosedBy = req.Actor.ID
	t.CloseReason = reason
	t.ClosedAt = &now
	t.UpdatedAt = now

	s.metrics.TicketClosed()
	s.logger.Info("ticket closed",
		zap.String("ticket_id", t.ID),
		zap.Int64("ticket_number", t.TicketNumber),
		zap.String("closed_by", t.ClosedBy),
		zap.String("reason", reason),
	)

	s.notify(ctx, cfg.TranscriptsChannelID, transcriptNotice(t, transcript), "transcript")
	if cfg.LogsChannelID != cfg.TranscriptsChannelID {
		s.notify(ctx, cfg.LogsChannelID, transcriptNotice(t, nil), "close log")
	}
	s.notify(ctx, t.ChannelID, closeNotice(t, s.deleteDelay), "close notice")

	if s.direct != nil {
		if _, err := s.direct.SendDirectMessage(ctx, t.UserID, closeDirectNotice(t, transcript)); err != nil {
			s.logger.Warn("could not send transcript to ticket owner", zap.String("user_id", t.UserID), zap.Error(err))
		}
	}

	if s.deleter != nil {
		if err := s.deleter.ScheduleDeletion(ctx, t); err != nil {
			s.logger.Error("failed to schedule channel deletion", zap.String("channel_id", t.ChannelID), zap.Error(err))
		}
	}

	if s.ratings != nil {
		closed := *t
		bg := context.WithoutCancel(ctx)
		s.async(func() {
			ctx, cancel := context.WithTimeout(bg, 30*time.Second)
			defer cancel()
			if err := s.ratings.Prompt(ctx, &closed); err != nil {
				s.logger.Warn("failed to send rating prompt", zap.String("ticket_id", closed.ID), zap.Error(err))
			}
		})
	}

	return t, nil
}

// Transcript renders the transcript of the ticket in channelID for actor.
func (s *Service) Transcript(ctx context.Context, guildID, channelID string, actor models.Actor) (*models.Transcript, *models.Ticket, error) {
	tr, t, err := s.transcript(ctx, guildID, channelID, actor)
	s.record(models.ActionViewTranscript, err)
	return tr, t, err
}

func (s *Service) transcript(ctx context.Context, guildID, channelID string, actor models.Actor) (*models.Transcript, *models.Ticket, error) {
	cfg, t, err := s.ticketInChannel(ctx, guildID, channelID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.authorize(cfg, models.ActionViewTranscript, actor, t, nil); err != nil {
		return nil, nil, err
	}
	tr, err := s.renderTranscript(ctx, t)
	if err != nil {
		return nil, nil, CollaboratorFailure("generate the transcript", err)
	}
	return tr, t, nil
}

// TicketInChannel returns the ticket bound to channelID.
func (s *Service) TicketInChannel(ctx context.Context, guildID, channelID string) (*models.Ticket, error) {
	_, t, err := s.ticketInChannel(ctx, guildID, channelID)
	return t, err
}

// ChannelRemoved reconciles a ticket whose channel was deleted. An open ticket
// is closed without transcript or prompt; a pending deletion mark is cleared.
func (s *Service) ChannelRemoved(ctx context.Context, guildID, channelID string) error {
	t, err := s.store.GetTicketByChannel(ctx, guildID, channelID)
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	if err != nil {
		return Internal(err)
	}

	if t.IsOpen() {
		err := s.store.CloseTicket(ctx, t.ID, "", ChannelRemovedReason, s.now())
		switch {
		case err == nil:
			s.metrics.TicketClosed()
			s.logger.Info("ticket closed after its channel was removed",
				zap.String("ticket_id", t.ID),
				zap.Int64("ticket_number", t.TicketNumber),
			)
			s.notify(ctx, s.logsChannel(ctx, guildID), removedLogNotice(t), "removal log")
		case errors.Is(err, database.ErrConditionFailed):
			// Closed concurrently.
		default:
			return Internal(err)
		}
	}

	if t.DeleteAfter != nil {
		if err := s.store.SetDeleteAfter(ctx, t.ID, nil); err != nil {
			return Internal(err)
		}
	}
	return nil
}

func (s *Service) logsChannel(ctx context.Context, guildID string) string {
	cfg, err := s.store.GetGuildConfig(ctx, guildID)
	if err != nil {
		return ""
	}
	return cfg.LogsChannelID
}

func (s *Service) renderTranscript(ctx context.Context, t *models.Ticket) (*models.Transcript, error) {
	if s.transcripts == nil {
		return nil, errors.New("no transcript renderer configured")
	}
	return s.transcripts.Render(ctx, t.ChannelID, TranscriptOptions{Ticket: t, Limit: s.transcriptLimit})
}

func (s *Service) guildConfig(ctx context.Context, guildID string) (*models.GuildConfig, error) {
	cfg, err := s.store.GetGuildConfig(ctx, guildID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, NotConfigured()
	}
	if err != nil {
		return nil, Internal(err)
	}
	return cfg, nil
}

func (s *Service) ticketInChannel(ctx context.Context, guildID, channelID string) (*models.GuildConfig, *models.Ticket, error) {
	cfg, err := s.guildConfig(ctx, guildID)
	if err != nil {
		return nil, nil, err
	}
	t, err := s.store.GetTicketByChannel(ctx, guildID, channelID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil, NotFound(utils.ReasonNoTicket.Message())
	}
	if err != nil {
		return nil, nil, Internal(err)
	}
	return cfg, t, nil
}

func (s *Service) authorize(cfg *models.GuildConfig, action models.Action, actor models.Actor, t *models.Ticket, target *models.Actor) error {
	d := utils.NewAuth(cfg).Check(action, actor, t, target)
	if d.Allowed {
		return nil
	}
	return denied(d)
}

// assignFailed explains a conditional assignment that matched nothing.
func (s *Service) assignFailed(ctx context.Context, ticketID string, err error, staleMessage string) error {
	if !errors.Is(err, database.ErrConditionFailed) {
		return Internal(err)
	}
	current, lerr := s.store.GetTicket(ctx, ticketID)
	if lerr != nil {
		return Internal(lerr)
	}
	if !current.IsOpen() {
		return denied(utils.Decision{Reason: utils.ReasonTicketClosed})
	}
	return Conflict(staleMessage)
}

// discardChannel removes a channel whose ticket record could not be saved.
func (s *Service) discardChannel(ctx context.Context, channelID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.channels.DeleteChannel(ctx, channelID); err != nil {
		s.logger.Error("failed to delete channel of unsaved ticket", zap.String("channel_id", channelID), zap.Error(err))
	}
}

func (s *Service) notify(ctx context.Context, channelID string, notice models.Notice, what string) {
	if channelID == "" {
		return
	}
	if _, err := s.channels.SendMessage(ctx, channelID, notice); err != nil {
		s.logger.Warn("failed to send "+what, zap.String("channel_id", channelID), zap.Error(err))
	}
}

func (s *Service) record(action models.Action, err error) {
	result := "ok"
	if err != nil {
		result = strings.ToLower(CodeOf(err))
	}
	s.metrics.Action(action.String(), result)
}

func withDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

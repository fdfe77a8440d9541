package ticket

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"ticket-bot/database"
	"ticket-bot/models"
	"ticket-bot/utils"

	"go.uber.org/zap"
)

// SetupRequest configures the ticket system for a guild.
type SetupRequest struct {
	GuildID              string
	Actor                models.Actor
	TicketChannelID      string
	CategoryID           string
	LogsChannelID        string
	TranscriptsChannelID string
	RatingChannelID      string
}

// Setup saves the guild's channels, makes sure the support role exists and
// posts the ticket panel. Staff sets and the ticket counter survive re-runs.
func (s *Service) Setup(ctx context.Context, req SetupRequest) (*models.GuildConfig, error) {
	if !req.Actor.Admin {
		return nil, Forbidden(utils.ReasonAdminOnly)
	}
	if req.TicketChannelID == "" || req.CategoryID == "" || req.LogsChannelID == "" ||
		req.TranscriptsChannelID == "" || req.RatingChannelID == "" {
		return nil, Invalid("All channels and the category are required.")
	}

	roleID, err := s.guilds.EnsureRole(ctx, req.GuildID, SupportRoleName)
	if err != nil {
		return nil, CollaboratorFailure("create the support role", err)
	}

	cfg, err := s.store.UpsertGuildConfig(ctx, &models.GuildConfig{
		GuildID:              req.GuildID,
		TicketChannelID:      req.TicketChannelID,
		CategoryID:           req.CategoryID,
		LogsChannelID:        req.LogsChannelID,
		TranscriptsChannelID: req.TranscriptsChannelID,
		RatingChannelID:      req.RatingChannelID,
		SupportRoleID:        roleID,
	})
	if err != nil {
		return nil, Internal(err)
	}

	panelID, err := s.channels.SendMessage(ctx, cfg.TicketChannelID, panelNotice(cfg.Panel))
	if err != nil {
		return nil, CollaboratorFailure("post the ticket panel", err)
	}
	if err := s.store.SetPanelMessage(ctx, cfg.GuildID, panelID); err != nil {
		s.logger.Warn("failed to record panel message", zap.String("guild_id", cfg.GuildID), zap.Error(err))
	} else {
		cfg.PanelMessageID = panelID
	}

	s.logger.Info("ticket system configured", zap.String("guild_id", cfg.GuildID), zap.String("actor_id", req.Actor.ID))
	s.notify(ctx, cfg.LogsChannelID, setupLogNotice(cfg, req.Actor), "setup log")
	return cfg, nil
}

// Discord embed and button limits.
const (
	maxPanelTitle       = 256
	maxPanelDescription = 4096
	maxPanelButtonLabel = 80
)

// PanelRequest changes the look of the ticket panel. Empty fields keep their
// current value. Color is a hex value such as "#0099ff" and ButtonStyle one
// of PRIMARY, SECONDARY, SUCCESS or DANGER.
type PanelRequest struct {
	GuildID     string
	Actor       models.Actor
	Title       string
	Description string
	Color       string
	ButtonLabel string
	ButtonEmoji string
	ButtonStyle string
}

// UpdatePanel edits the posted ticket panel and stores the new settings.
// The stored settings change only once the panel message was edited.
func (s *Service) UpdatePanel(ctx context.Context, req PanelRequest) (*models.GuildConfig, error) {
	if !req.Actor.Admin {
		return nil, Forbidden(utils.ReasonAdminOnly)
	}
	cfg, err := s.guildConfig(ctx, req.GuildID)
	if err != nil {
		return nil, err
	}

	p, err := applyPanelRequest(cfg.Panel, req)
	if err != nil {
		return nil, err
	}
	if cfg.PanelMessageID == "" {
		return nil, NotFound("Ticket panel message not found. Please set up the ticket system again.")
	}

	if err := s.channels.EditMessage(ctx, cfg.TicketChannelID, cfg.PanelMessageID, panelNotice(p)); err != nil {
		return nil, CollaboratorFailure("update the ticket panel", err)
	}
	if err := s.store.SetPanelSettings(ctx, cfg.GuildID, p); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, NotConfigured()
		}
		return nil, Internal(err)
	}
	cfg.Panel = p

	s.logger.Info("ticket panel updated", zap.String("guild_id", cfg.GuildID), zap.String("actor_id", req.Actor.ID))
	return cfg, nil
}

func applyPanelRequest(p models.PanelSettings, req PanelRequest) (models.PanelSettings, error) {
	if v := strings.TrimSpace(req.Title); v != "" {
		if len([]rune(v)) > maxPanelTitle {
			return p, Invalid(fmt.Sprintf("The title can be at most %d characters.", maxPanelTitle))
		}
		p.Title = v
	}
	if v := strings.TrimSpace(req.Description); v != "" {
		if len([]rune(v)) > maxPanelDescription {
			return p, Invalid(fmt.Sprintf("The description can be at most %d characters.", maxPanelDescription))
		}
		p.Description = v
	}
	if v := strings.TrimSpace(req.Color); v != "" {
		color, err := ParseColor(v)
		if err != nil {
			return p, err
		}
		p.Color = color
	}
	if v := strings.TrimSpace(req.ButtonLabel); v != "" {
		if len([]rune(v)) > maxPanelButtonLabel {
			return p, Invalid(fmt.Sprintf("The button label can be at most %d characters.", maxPanelButtonLabel))
		}
		p.ButtonLabel = v
	}
	if v := strings.TrimSpace(req.ButtonEmoji); v != "" {
		p.ButtonEmoji = v
	}
	if v := strings.TrimSpace(req.ButtonStyle); v != "" {
		style, ok := panelButtonStyles[strings.ToUpper(v)]
		if !ok {
			return p, Invalid("The button style must be PRIMARY, SECONDARY, SUCCESS or DANGER.")
		}
		p.ButtonStyle = style
	}
	return p, nil
}

var panelButtonStyles = map[string]models.ButtonStyle{
	"PRIMARY":   models.ButtonPrimary,
	"SECONDARY": models.ButtonSecondary,
	"SUCCESS":   models.ButtonSuccess,
	"DANGER":    models.ButtonDanger,
}

// ParseColor parses "#RRGGBB" or "RRGGBB".
func ParseColor(s string) (int, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return 0, Invalid("The color must be a hex value like #0099ff.")
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, Invalid("The color must be a hex value like #0099ff.")
	}
	return int(v), nil
}

// Staff returns the guild configuration with its staff sets.
func (s *Service) Staff(ctx context.Context, guildID string) (*models.GuildConfig, error) {
	return s.guildConfig(ctx, guildID)
}

// AddStaffRole grants roleID staff rights.
func (s *Service) AddStaffRole(ctx context.Context, guildID string, actor models.Actor, roleID string) error {
	return s.changeStaff(ctx, guildID, actor, models.ActionAddStaffRole, roleID)
}

// RemoveStaffRole revokes roleID's staff rights.
func (s *Service) RemoveStaffRole(ctx context.Context, guildID string, actor models.Actor, roleID string) error {
	return s.changeStaff(ctx, guildID, actor, models.ActionRemoveStaffRole, roleID)
}

// AddStaffMember grants an individual user staff rights.
func (s *Service) AddStaffMember(ctx context.Context, guildID string, actor models.Actor, userID string) error {
	return s.changeStaff(ctx, guildID, actor, models.ActionAddStaffMember, userID)
}

// RemoveStaffMember revokes an individual user's staff rights.
func (s *Service) RemoveStaffMember(ctx context.Context, guildID string, actor models.Actor, userID string) error {
	return s.changeStaff(ctx, guildID, actor, models.ActionRemoveStaffMember, userID)
}

func (s *Service) changeStaff(ctx context.Context, guildID string, actor models.Actor, action models.Action, subjectID string) error {
	cfg, err := s.guildConfig(ctx, guildID)
	if err != nil {
		return err
	}
	if err := s.authorize(cfg, action, actor, nil, nil); err != nil {
		return err
	}

	var (
		duplicateMsg, missingMsg string
		op                       func(context.Context, string, string) error
	)
	switch action {
	case models.ActionAddStaffRole:
		op, duplicateMsg = s.store.AddStaffRole, "This role is already a staff role."
	case models.ActionRemoveStaffRole:
		op, missingMsg = s.store.RemoveStaffRole, "This role is not a staff role."
	case models.ActionAddStaffMember:
		op, duplicateMsg = s.store.AddStaffMember, "This user is already a staff member."
	case models.ActionRemoveStaffMember:
		op, missingMsg = s.store.RemoveStaffMember, "This user is not a staff member."
	default:
		return Invalid("unsupported staff action")
	}

	err = op(ctx, guildID, subjectID)
	switch {
	case err == nil:
	case errors.Is(err, database.ErrNotFound):
		return NotConfigured()
	case errors.Is(err, database.ErrDuplicate):
		return Conflict(duplicateMsg)
	case errors.Is(err, database.ErrConditionFailed):
		return Conflict(missingMsg)
	default:
		return Internal(err)
	}

	s.record(action, nil)
	s.logger.Info("staff updated",
		zap.String("guild_id", guildID),
		zap.Stringer("action", action),
		zap.String("subject_id", subjectID),
		zap.String("actor_id", actor.ID),
	)
	return nil
}

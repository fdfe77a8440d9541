package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ticket-bot/models"
)

const (
	staffKindRole   = "role"
	staffKindMember = "member"
)

// GetGuildConfig loads a guild configuration together with its staff sets.
func (s *SQLiteStore) GetGuildConfig(ctx context.Context, guildID string) (*models.GuildConfig, error) {
	row := s.db.QueryRowContext(ctx, `
    SELECT guild_id, ticket_channel_id, category_id, logs_channel_id, transcripts_channel_id,
           rating_channel_id, support_role_id, panel_message_id,
           panel_title, panel_description, panel_color, panel_button_label, panel_button_emoji, panel_button_style,
           last_ticket_number, created_at, updated_at
    FROM guild_configs WHERE guild_id = ?`, guildID)

	var (
		cfg                  models.GuildConfig
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&cfg.GuildID,
		&cfg.TicketChannelID,
		&cfg.CategoryID,
		&cfg.LogsChannelID,
		&cfg.TranscriptsChannelID,
		&cfg.RatingChannelID,
		&cfg.SupportRoleID,
		&cfg.PanelMessageID,
		&cfg.Panel.Title,
		&cfg.Panel.Description,
		&cfg.Panel.Color,
		&cfg.Panel.ButtonLabel,
		&cfg.Panel.ButtonEmoji,
		&cfg.Panel.ButtonStyle,
		&cfg.LastTicketNumber,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load guild config %s: %w", guildID, err)
	}
	cfg.CreatedAt = fromMillis(createdAt)
	cfg.UpdatedAt = fromMillis(updatedAt)

	rows, err := s.db.QueryContext(ctx, `
    SELECT kind, subject_id FROM guild_staff WHERE guild_id = ? ORDER BY created_at, subject_id`, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to load staff for guild %s: %w", guildID, err)
	}
	defer rows.Close()

	cfg.StaffRoles = []string{}
	cfg.StaffMembers = []string{}
	for rows.Next() {
		var kind, subjectID string
		if err := rows.Scan(&kind, &subjectID); err != nil {
			return nil, fmt.Errorf("failed to scan staff row: %w", err)
		}
		switch kind {
		case staffKindRole:
			cfg.StaffRoles = append(cfg.StaffRoles, subjectID)
		case staffKindMember:
			cfg.StaffMembers = append(cfg.StaffMembers, subjectID)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate staff rows: %w", err)
	}

	return &cfg, nil
}

// UpsertGuildConfig creates or updates the channel settings of a guild.
func (s *SQLiteStore) UpsertGuildConfig(ctx context.Context, cfg *models.GuildConfig) (*models.GuildConfig, error) {
	now := toMillis(time.Now())
	_, err := s.db.ExecContext(ctx, `
    INSERT INTO guild_configs (
        guild_id, ticket_channel_id, category_id, logs_channel_id, transcripts_channel_id,
        rating_channel_id, support_role_id, created_at, updated_at
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    ON CONFLICT (guild_id) DO UPDATE SET
        ticket_channel_id      = excluded.ticket_channel_id,
        category_id            = excluded.category_id,
        logs_channel_id        = excluded.logs_channel_id,
        transcripts_channel_id = excluded.transcripts_channel_id,
        rating_channel_id      = excluded.rating_channel_id,
        support_role_id        = excluded.support_role_id,
        updated_at             = excluded.updated_at`,
		cfg.GuildID,
		cfg.TicketChannelID,
		cfg.CategoryID,
		cfg.LogsChannelID,
		cfg.TranscriptsChannelID,
		cfg.RatingChannelID,
		cfg.SupportRoleID,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert guild config %s: %w", cfg.GuildID, err)
	}
	return s.GetGuildConfig(ctx, cfg.GuildID)
}

// SetPanelMessage records the message carrying the ticket panel.
func (s *SQLiteStore) SetPanelMessage(ctx context.Context, guildID, messageID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE guild_configs SET panel_message_id = ?, updated_at = ? WHERE guild_id = ?`,
		messageID, toMillis(time.Now()), guildID)
	if err != nil {
		return fmt.Errorf("failed to set panel message for guild %s: %w", guildID, err)
	}
	return requireRow(res, ErrNotFound)
}

// SetPanelSettings replaces the panel customization of a guild.
func (s *SQLiteStore) SetPanelSettings(ctx context.Context, guildID string, p models.PanelSettings) error {
	res, err := s.db.ExecContext(ctx, `
    UPDATE guild_configs SET
        panel_title = ?, panel_description = ?, panel_color = ?,
        panel_button_label = ?, panel_button_emoji = ?, panel_button_style = ?,
        updated_at = ?
    WHERE guild_id = ?`,
		p.Title, p.Description, p.Color, p.ButtonLabel, p.ButtonEmoji, int(p.ButtonStyle),
		toMillis(time.Now()), guildID)
	if err != nil {
		return fmt.Errorf("failed to set panel settings for guild %s: %w", guildID, err)
	}
	return requireRow(res, ErrNotFound)
}

// NextTicketNumber atomically increments and returns the guild's ticket counter.
func (s *SQLiteStore) NextTicketNumber(ctx context.Context, guildID string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `
    UPDATE guild_configs
    SET last_ticket_number = last_ticket_number + 1, updated_at = ?
    WHERE guild_id = ?
    RETURNING last_ticket_number`, toMillis(time.Now()), guildID).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to allocate ticket number for guild %s: %w", guildID, err)
	}
	return n, nil
}

func (s *SQLiteStore) AddStaffRole(ctx context.Context, guildID, roleID string) error {
	return s.addStaff(ctx, guildID, staffKindRole, roleID)
}

func (s *SQLiteStore) RemoveStaffRole(ctx context.Context, guildID, roleID string) error {
	return s.removeStaff(ctx, guildID, staffKindRole, roleID)
}

func (s *SQLiteStore) AddStaffMember(ctx context.Context, guildID, userID string) error {
	return s.addStaff(ctx, guildID, staffKindMember, userID)
}

func (s *SQLiteStore) RemoveStaffMember(ctx context.Context, guildID, userID string) error {
	return s.removeStaff(ctx, guildID, staffKindMember, userID)
}

// addStaff inserts only when the guild is configured; the primary key rejects duplicates.
func (s *SQLiteStore) addStaff(ctx context.Context, guildID, kind, subjectID string) error {
	res, err := s.db.ExecContext(ctx, `
    INSERT INTO guild_staff (guild_id, kind, subject_id, created_at)
    SELECT ?, ?, ?, ? WHERE EXISTS (SELECT 1 FROM guild_configs WHERE guild_id = ?)`,
		guildID, kind, subjectID, toMillis(time.Now()), guildID)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to add staff %s %s: %w", kind, subjectID, err)
	}
	return requireRow(res, ErrNotFound)
}

func (s *SQLiteStore) removeStaff(ctx context.Context, guildID, kind, subjectID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM guild_staff WHERE guild_id = ? AND kind = ? AND subject_id = ?`,
		guildID, kind, subjectID)
	if err != nil {
		return fmt.Errorf("failed to remove staff %s %s: %w", kind, subjectID, err)
	}
	if err := requireRow(res, ErrConditionFailed); err == nil {
		return nil
	}

	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM guild_configs WHERE guild_id = ?`, guildID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check guild config %s: %w", guildID, err)
	}
	if exists == 0 {
		return ErrNotFound
	}
	return ErrConditionFailed
}

// requireRow returns notMatched when the statement affected no rows.
func requireRow(res sql.Result, notMatched error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return notMatched
	}
	return nil
}

// Package scanner reconciles stored tickets with the guild's live channels at
// startup, catching channels deleted while the bot was offline.
package scanner

import (
	"context"
	"fmt"

	"ticket-bot/database"

	"go.uber.org/zap"
)

// ChannelLister lists the IDs of a guild's channels.
type ChannelLister interface {
	GuildChannelIDs(ctx context.Context, guildID string) ([]string, error)
}

// Reconciler handles a ticket whose channel no longer exists.
type Reconciler interface {
	ChannelRemoved(ctx context.Context, guildID, channelID string) error
}

// Scanner compares open tickets with existing channels.
type Scanner struct {
	store    database.Store
	channels ChannelLister
	tickets  Reconciler
	logger   *zap.Logger
}

// New creates a scanner.
func New(store database.Store, channels ChannelLister, tickets Reconciler, logger *zap.Logger) *Scanner {
	return &Scanner{
		store:    store,
		channels: channels,
		tickets:  tickets,
		logger:   logger.Named("scanner"),
	}
}

// ScanGuilds scans every guild and returns the number of tickets reconciled.
// A failing guild is logged and skipped.
func (s *Scanner) ScanGuilds(ctx context.Context, guildIDs []string) int {
	s.logger.Info("starting ticket channel scan", zap.Int("guilds", len(guildIDs)))
	total := 0
	for _, guildID := range guildIDs {
		n, err := s.ScanGuild(ctx, guildID)
		if err != nil {
			s.logger.Error("failed to scan guild", zap.String("guild_id", guildID), zap.Error(err))
		}
		total += n
	}
	s.logger.Info("ticket channel scan finished", zap.Int("reconciled", total))
	return total
}

// ScanGuild reconciles the open tickets of one guild whose channel is gone.
func (s *Scanner) ScanGuild(ctx context.Context, guildID string) (int, error) {
	open, err := s.store.OpenTickets(ctx, guildID)
	if err != nil {
		return 0, err
	}
	if len(open) == 0 {
		return 0, nil
	}

	ids, err := s.channels.GuildChannelIDs(ctx, guildID)
	if err != nil {
		return 0, fmt.Errorf("failed to list channels of guild %s: %w", guildID, err)
	}
	existing := make(map[string]bool, len(ids))
	for _, id := range ids {
		existing[id] = true
	}

	reconciled := 0
	for _, t := range open {
		if existing[t.ChannelID] {
			continue
		}
		if err := s.tickets.ChannelRemoved(ctx, guildID, t.ChannelID); err != nil {
			s.logger.Warn("failed to reconcile ticket", zap.String("ticket_id", t.ID), zap.Error(err))
			continue
		}
		reconciled++
	}
	return reconciled, nil
}

package handlers

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// ChannelDelete handles the CHANNEL_DELETE event. A ticket whose channel
// disappears is reconciled so its owner can open a new one.
func (h *Handler) ChannelDelete(s *discordgo.Session, c *discordgo.ChannelDelete) {
	if c.Channel == nil || c.GuildID == "" || c.Type != discordgo.ChannelTypeGuildText {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := h.tickets.ChannelRemoved(ctx, c.GuildID, c.ID); err != nil {
		h.logger.Error("failed to reconcile deleted channel",
			zap.String("guild_id", c.GuildID),
			zap.String("channel_id", c.ID),
			zap.Error(err),
		)
	}
}

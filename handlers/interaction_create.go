package handlers

import (
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// InteractionCreate handles slash commands, buttons and modal submissions.
func (h *Handler) InteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		h.CommandDispatcher(s, i)
	case discordgo.InteractionMessageComponent:
		h.ComponentDispatcher(s, i)
	case discordgo.InteractionModalSubmit:
		h.ModalDispatcher(s, i)
	default:
		h.logger.Debug("ignoring interaction", zap.Stringer("type", i.Type))
	}
}

package handlers

import (
	"context"
	"fmt"

	"ticket-bot/command"
	"ticket-bot/models"
	"ticket-bot/rating"
	"ticket-bot/ticket"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// ComponentDispatcher handles button presses.
func (h *Handler) ComponentDispatcher(s *discordgo.Session, i *discordgo.InteractionCreate) {
	customID := i.MessageComponentData().CustomID
	action, err := command.DecodeCustomID(customID)
	if err != nil {
		h.logger.Warn("unknown component", zap.String("custom_id", customID), zap.Error(err))
		respond(s, i, "🚫 This button is no longer supported.")
		return
	}

	actor := actorFromInteraction(i)
	switch action.Component {
	case models.ComponentCreateTicket:
		if i.GuildID == "" {
			respond(s, i, "🚫 Tickets can only be opened in a server.")
			return
		}
		h.showModal(s, i, createTicketModal())
	case models.ComponentCloseTicket:
		h.deferred(s, i, "close_button", func() (reply, error) { return h.close(i, actor, "") })
	case models.ComponentClaimTicket:
		h.deferred(s, i, "claim_button", func() (reply, error) {
			if _, err := h.tickets.Claim(context.Background(), i.GuildID, i.ChannelID, actor); err != nil {
				return reply{}, err
			}
			return textReply("✅ You have claimed this ticket."), nil
		})
	case models.ComponentTranscriptTicket:
		h.deferred(s, i, "transcript_button", func() (reply, error) { return h.transcript(i, actor) })
	case models.ComponentRate:
		h.showModal(s, i, ratingModal(action))
	default:
		respond(s, i, "🚫 This button is no longer supported.")
	}
}

// ModalDispatcher handles modal submissions.
func (h *Handler) ModalDispatcher(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ModalSubmitData()
	action, err := command.DecodeCustomID(data.CustomID)
	if err != nil {
		h.logger.Warn("unknown modal", zap.String("custom_id", data.CustomID), zap.Error(err))
		respond(s, i, "🚫 This form is no longer supported.")
		return
	}
	values := modalValues(data)
	actor := actorFromInteraction(i)

	switch action.Component {
	case models.ComponentCreateTicketModal:
		if !h.opens.Allow(actor.ID) {
			respond(s, i, "⏳ You are opening tickets too quickly. Please wait a moment.")
			return
		}
		h.deferred(s, i, "open_modal", func() (reply, error) {
			return h.open(ticket.OpenRequest{
				GuildID:     i.GuildID,
				Owner:       actor,
				Subject:     values[command.InputSubject],
				Category:    values[command.InputCategory],
				Description: values[command.InputDescription],
			})
		})
	case models.ComponentRatingModal:
		h.deferred(s, i, "rating_modal", func() (reply, error) {
			req := rating.SubmitRequest{
				UserID:   actor.ID,
				TicketID: action.TicketID,
				Rating:   action.Rating,
				Feedback: values[command.InputFeedback],
			}
			if i.Message != nil {
				req.PromptChannelID = i.ChannelID
				req.PromptMessageID = i.Message.ID
			}
			if _, err := h.ratings.Submit(context.Background(), req); err != nil {
				return reply{}, err
			}
			return textReply(rating.Confirmation), nil
		})
	default:
		respond(s, i, "🚫 This form is no longer supported.")
	}
}

func (h *Handler) showModal(s *discordgo.Session, i *discordgo.InteractionCreate, data *discordgo.InteractionResponseData) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: data,
	})
	if err != nil {
		h.logger.Error("failed to show modal", zap.String("custom_id", data.CustomID), zap.Error(err))
	}
}

func textInput(id, label string, style discordgo.TextInputStyle, required bool, maxLength int, placeholder string) discordgo.MessageComponent {
	return discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.TextInput{
			CustomID:    id,
			Label:       label,
			Style:       style,
			Required:    required,
			MaxLength:   maxLength,
			Placeholder: placeholder,
		},
	}}
}

func createTicketModal() *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		CustomID: command.EncodeCustomID(models.ComponentAction{Component: models.ComponentCreateTicketModal}),
		Title:    "Create a Support Ticket",
		Components: []discordgo.MessageComponent{
			textInput(command.InputSubject, "Ticket Subject", discordgo.TextInputShort, true, 100, "Brief description of your issue"),
			textInput(command.InputDescription, "Description", discordgo.TextInputParagraph, true, 1000, "Provide details about your issue..."),
			textInput(command.InputCategory, "Category", discordgo.TextInputShort, true, 50, "e.g., General Support, Bug Report, etc."),
		},
	}
}

func ratingModal(action models.ComponentAction) *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		CustomID: command.EncodeCustomID(models.ComponentAction{
			Component: models.ComponentRatingModal,
			TicketID:  action.TicketID,
			Rating:    action.Rating,
		}),
		Title: fmt.Sprintf("Rate Your Experience (%d/%d)", action.Rating, models.MaxRating),
		Components: []discordgo.MessageComponent{
			textInput(command.InputFeedback, "Additional Feedback (Optional)", discordgo.TextInputParagraph, false, 1000, "Tell us about your experience..."),
		},
	}
}

// modalValues flattens the text inputs of a submitted modal by custom ID.
func modalValues(data discordgo.ModalSubmitInteractionData) map[string]string {
	values := make(map[string]string)
	for _, c := range data.Components {
		row, ok := c.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, rc := range row.Components {
			if input, ok := rc.(*discordgo.TextInput); ok {
				values[input.CustomID] = input.Value
			}
		}
	}
	return values
}

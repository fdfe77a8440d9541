package command

import (
	"fmt"
	"strconv"
	"strings"

	"ticket-bot/models"
)

// Component custom IDs have the form name[:ticketID]. Rating components embed
// the score in the name (rate_4, rating_feedback_4).
const (
	idCreateTicket      = "create_ticket"
	idCreateTicketModal = "create_ticket_modal"
	idCloseTicket       = "close_ticket"
	idDeleteTicket      = "delete_ticket"
	idClaimTicket       = "claim_ticket"
	idTranscriptTicket  = "transcript_ticket"
	prefixRate          = "rate_"
	prefixRatingModal   = "rating_feedback_"
)

// Text input IDs of the modals.
const (
	InputSubject     = "ticket_subject"
	InputDescription = "ticket_description"
	InputCategory    = "ticket_category"
	InputFeedback    = "rating_feedback_text"
)

var componentNames = map[models.Component]string{
	models.ComponentCreateTicket:      idCreateTicket,
	models.ComponentCreateTicketModal: idCreateTicketModal,
	models.ComponentCloseTicket:       idCloseTicket,
	models.ComponentClaimTicket:       idClaimTicket,
	models.ComponentTranscriptTicket:  idTranscriptTicket,
}

var namedComponents = map[string]models.Component{
	idCreateTicket:      models.ComponentCreateTicket,
	idCreateTicketModal: models.ComponentCreateTicketModal,
	idCloseTicket:       models.ComponentCloseTicket,
	idDeleteTicket:      models.ComponentCloseTicket,
	idClaimTicket:       models.ComponentClaimTicket,
	idTranscriptTicket:  models.ComponentTranscriptTicket,
}

// EncodeCustomID renders a component action as a custom ID.
func EncodeCustomID(a models.ComponentAction) string {
	var name string
	switch a.Component {
	case models.ComponentRate:
		name = prefixRate + strconv.Itoa(a.Rating)
	case models.ComponentRatingModal:
		name = prefixRatingModal + strconv.Itoa(a.Rating)
	default:
		name = componentNames[a.Component]
	}
	if a.TicketID != "" {
		return name + ":" + a.TicketID
	}
	return name
}

// DecodeCustomID parses a custom ID produced by EncodeCustomID, including
// rating IDs issued without a ticket reference.
func DecodeCustomID(id string) (models.ComponentAction, error) {
	name, ticketID, _ := strings.Cut(id, ":")

	if c, ok := namedComponents[name]; ok {
		return models.ComponentAction{Component: c, TicketID: ticketID}, nil
	}

	var (
		c      models.Component
		prefix string
	)
	switch {
	case strings.HasPrefix(name, prefixRate):
		c, prefix = models.ComponentRate, prefixRate
	case strings.HasPrefix(name, prefixRatingModal):
		c, prefix = models.ComponentRatingModal, prefixRatingModal
	default:
		return models.ComponentAction{}, fmt.Errorf("unknown custom id %q", id)
	}

	n, err := strconv.Atoi(strings.TrimPrefix(name, prefix))
	if err != nil || n < models.MinRating || n > models.MaxRating {
		return models.ComponentAction{}, fmt.Errorf("invalid rating in custom id %q", id)
	}
	return models.ComponentAction{Component: c, TicketID: ticketID, Rating: n}, nil
}

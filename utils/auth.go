package utils

import (
	"ticket-bot/models"
)

// Reason explains why an action was denied.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonNotConfigured  Reason = "not_configured"
	ReasonNoTicket       Reason = "no_ticket"
	ReasonTicketClosed   Reason = "ticket_closed"
	ReasonNotStaff       Reason = "not_staff"
	ReasonAlreadyClaimed Reason = "already_claimed"
	ReasonNotClaimed     Reason = "not_claimed"
	ReasonNotAssignee    Reason = "not_assignee"
	ReasonTargetNotStaff Reason = "target_not_staff"
	ReasonNotParticipant Reason = "not_participant"
	ReasonAdminOnly      Reason = "admin_only"
	ReasonNotOwner       Reason = "not_owner"
)

var reasonMessages = map[Reason]string{
	ReasonNotConfigured:  "Please set up the ticket system first using `/ticket setup`",
	ReasonNoTicket:       "This command can only be used in a ticket channel!",
	ReasonTicketClosed:   "This ticket is already closed.",
	ReasonNotStaff:       "Only support staff can do this.",
	ReasonAlreadyClaimed: "This ticket has already been claimed.",
	ReasonNotClaimed:     "This ticket is not claimed by anyone.",
	ReasonNotAssignee:    "Only the staff member who claimed this ticket or an administrator can do this.",
	ReasonTargetNotStaff: "The selected user is not a staff member.",
	ReasonNotParticipant: "Only staff, administrators or the ticket creator can do this.",
	ReasonAdminOnly:      "Only administrators can configure the ticket system.",
	ReasonNotOwner:       "Only the ticket creator can rate this ticket.",
}

// Message is the user-facing text for a denial reason.
func (r Reason) Message() string {
	if msg, ok := reasonMessages[r]; ok {
		return msg
	}
	return "You do not have permission to do this."
}

// Decision is the outcome of a permission check.
type Decision struct {
	Allowed bool
	Reason  Reason
}

func allow() Decision             { return Decision{Allowed: true} }
func deny(reason Reason) Decision { return Decision{Reason: reason} }

// Auth decides ticket-system permissions against a guild configuration.
// It has no side effects.
type Auth struct {
	config *models.GuildConfig
}

// NewAuth creates an Auth for the given guild configuration, which may be nil
// for guilds that have not run setup.
func NewAuth(cfg *models.GuildConfig) *Auth {
	return &Auth{config: cfg}
}

// IsStaff checks whether the actor holds a staff role or is listed individually.
func (a *Auth) IsStaff(actor models.Actor) bool {
	if a.config == nil {
		return false
	}
	for _, roleID := range a.config.StaffRoles {
		if actor.HasRole(roleID) {
			return true
		}
	}
	return a.config.HasStaffMember(actor.ID)
}

// IsAdmin checks whether the actor holds the administrator permission.
func (a *Auth) IsAdmin(actor models.Actor) bool {
	return actor.Admin
}

// Check decides whether actor may perform action on ticket. Target is the
// receiving staff member for transfers and is ignored otherwise.
func (a *Auth) Check(action models.Action, actor models.Actor, ticket *models.Ticket, target *models.Actor) Decision {
	if a.config == nil {
		return deny(ReasonNotConfigured)
	}

	switch action {
	case models.ActionOpen:
		return allow()
	case models.ActionAddStaffRole, models.ActionRemoveStaffRole,
		models.ActionAddStaffMember, models.ActionRemoveStaffMember:
		if !a.IsAdmin(actor) {
			return deny(ReasonAdminOnly)
		}
		return allow()
	}

	if ticket == nil {
		return deny(ReasonNoTicket)
	}

	switch action {
	case models.ActionClaim:
		if !ticket.IsOpen() {
			return deny(ReasonTicketClosed)
		}
		if !a.IsStaff(actor) && !a.IsAdmin(actor) {
			return deny(ReasonNotStaff)
		}
		if ticket.IsClaimed() {
			return deny(ReasonAlreadyClaimed)
		}
		return allow()

	case models.ActionUnclaim:
		if !ticket.IsOpen() {
			return deny(ReasonTicketClosed)
		}
		if !a.isAssigneeOrAdmin(actor, ticket) {
			return deny(ReasonNotAssignee)
		}
		if !ticket.IsClaimed() {
			return deny(ReasonNotClaimed)
		}
		return allow()

	case models.ActionTransfer:
		if !ticket.IsOpen() {
			return deny(ReasonTicketClosed)
		}
		if !a.isAssigneeOrAdmin(actor, ticket) {
			return deny(ReasonNotAssignee)
		}
		if target == nil || !a.IsStaff(*target) {
			return deny(ReasonTargetNotStaff)
		}
		return allow()

	case models.ActionClose:
		if !ticket.IsOpen() {
			return deny(ReasonTicketClosed)
		}
		return a.participant(actor, ticket)

	case models.ActionViewTranscript:
		return a.participant(actor, ticket)
	}

	return deny(ReasonNotParticipant)
}

func (a *Auth) isAssigneeOrAdmin(actor models.Actor, ticket *models.Ticket) bool {
	if a.IsAdmin(actor) {
		return true
	}
	return ticket.IsClaimed() && ticket.AssignedTo == actor.ID
}

func (a *Auth) participant(actor models.Actor, ticket *models.Ticket) Decision {
	if a.IsStaff(actor) || a.IsAdmin(actor) || actor.ID == ticket.UserID {
		return allow()
	}
	return deny(ReasonNotParticipant)
}

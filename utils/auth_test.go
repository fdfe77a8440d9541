package utils

import (
	"testing"

	"ticket-bot/models"
)

func testConfig() *models.GuildConfig {
	return &models.GuildConfig{
		GuildID:      "g1",
		StaffRoles:   []string{"role-staff"},
		StaffMembers: []string{"u-helper"},
	}
}

var (
	owner    = models.Actor{ID: "u-owner"}
	staff    = models.Actor{ID: "u-staff", RoleIDs: []string{"role-staff"}}
	helper   = models.Actor{ID: "u-helper"}
	admin    = models.Actor{ID: "u-admin", Admin: true}
	stranger = models.Actor{ID: "u-stranger", RoleIDs: []string{"role-other"}}
)

func openTicket(assignee string) *models.Ticket {
	return &models.Ticket{ID: "t1", UserID: owner.ID, Status: models.StatusOpen, AssignedTo: assignee}
}

func closedTicket() *models.Ticket {
	return &models.Ticket{ID: "t1", UserID: owner.ID, Status: models.StatusClosed, AssignedTo: staff.ID}
}

func TestIsStaff(t *testing.T) {
	auth := NewAuth(testConfig())
	tests := []struct {
		actor models.Actor
		want  bool
	}{
		{staff, true},
		{helper, true},
		{owner, false},
		{admin, false},
		{stranger, false},
	}
	for _, tt := range tests {
		if got := auth.IsStaff(tt.actor); got != tt.want {
			t.Errorf("IsStaff(%s) = %v, want %v", tt.actor.ID, got, tt.want)
		}
	}
}

func TestCheck(t *testing.T) {
	target := models.Actor{ID: "u-other-staff", RoleIDs: []string{"role-staff"}}

	tests := []struct {
		name   string
		action models.Action
		actor  models.Actor
		ticket *models.Ticket
		target *models.Actor
		want   Reason
	}{
		{"anyone may open", models.ActionOpen, stranger, nil, nil, ReasonNone},

		{"staff role claims", models.ActionClaim, staff, openTicket(""), nil, ReasonNone},
		{"staff member claims", models.ActionClaim, helper, openTicket(""), nil, ReasonNone},
		{"admin claims", models.ActionClaim, admin, openTicket(""), nil, ReasonNone},
		{"owner cannot claim", models.ActionClaim, owner, openTicket(""), nil, ReasonNotStaff},
		{"claim of claimed ticket", models.ActionClaim, helper, openTicket(staff.ID), nil, ReasonAlreadyClaimed},
		{"claim of closed ticket", models.ActionClaim, staff, closedTicket(), nil, ReasonTicketClosed},
		{"claim outside a ticket", models.ActionClaim, staff, nil, nil, ReasonNoTicket},

		{"assignee unclaims", models.ActionUnclaim, staff, openTicket(staff.ID), nil, ReasonNone},
		{"admin unclaims", models.ActionUnclaim, admin, openTicket(staff.ID), nil, ReasonNone},
		{"other staff cannot unclaim", models.ActionUnclaim, helper, openTicket(staff.ID), nil, ReasonNotAssignee},
		{"non-assignee on unclaimed ticket", models.ActionUnclaim, helper, openTicket(""), nil, ReasonNotAssignee},
		{"admin on unclaimed ticket", models.ActionUnclaim, admin, openTicket(""), nil, ReasonNotClaimed},

		{"assignee transfers to staff", models.ActionTransfer, staff, openTicket(staff.ID), &target, ReasonNone},
		{"admin transfers to staff", models.ActionTransfer, admin, openTicket(""), &target, ReasonNone},
		{"transfer to non-staff", models.ActionTransfer, staff, openTicket(staff.ID), &stranger, ReasonTargetNotStaff},
		{"transfer without target", models.ActionTransfer, staff, openTicket(staff.ID), nil, ReasonTargetNotStaff},
		{"non-assignee cannot transfer", models.ActionTransfer, helper, openTicket(staff.ID), &target, ReasonNotAssignee},
		{"transfer of closed ticket", models.ActionTransfer, admin, closedTicket(), &target, ReasonTicketClosed},

		{"owner closes", models.ActionClose, owner, openTicket(""), nil, ReasonNone},
		{"staff closes", models.ActionClose, staff, openTicket(""), nil, ReasonNone},
		{"admin closes", models.ActionClose, admin, openTicket(""), nil, ReasonNone},
		{"stranger cannot close", models.ActionClose, stranger, openTicket(""), nil, ReasonNotParticipant},
		{"close of closed ticket", models.ActionClose, owner, closedTicket(), nil, ReasonTicketClosed},

		{"owner views transcript", models.ActionViewTranscript, owner, openTicket(""), nil, ReasonNone},
		{"transcript of closed ticket", models.ActionViewTranscript, staff, closedTicket(), nil, ReasonNone},
		{"stranger cannot view transcript", models.ActionViewTranscript, stranger, openTicket(""), nil, ReasonNotParticipant},

		{"admin adds staff role", models.ActionAddStaffRole, admin, nil, nil, ReasonNone},
		{"staff cannot add staff role", models.ActionAddStaffRole, staff, nil, nil, ReasonAdminOnly},
		{"staff cannot remove staff member", models.ActionRemoveStaffMember, helper, nil, nil, ReasonAdminOnly},
	}

	auth := NewAuth(testConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := auth.Check(tt.action, tt.actor, tt.ticket, tt.target)
			if got.Reason != tt.want {
				t.Fatalf("reason = %q, want %q", got.Reason, tt.want)
			}
			if got.Allowed != (tt.want == ReasonNone) {
				t.Fatalf("allowed = %v with reason %q", got.Allowed, got.Reason)
			}
		})
	}
}

func TestCheckWithoutConfig(t *testing.T) {
	got := NewAuth(nil).Check(models.ActionOpen, owner, nil, nil)
	if got.Allowed || got.Reason != ReasonNotConfigured {
		t.Fatalf("got %+v, want not_configured denial", got)
	}
}

func TestCheckIsDeterministic(t *testing.T) {
	auth := NewAuth(testConfig())
	ticket := openTicket(staff.ID)
	first := auth.Check(models.ActionUnclaim, helper, ticket, nil)
	for i := 0; i < 10; i++ {
		if got := auth.Check(models.ActionUnclaim, helper, ticket, nil); got != first {
			t.Fatalf("call %d = %+v, want %+v", i, got, first)
		}
	}
	if ticket.AssignedTo != staff.ID {
		t.Fatalf("Check mutated the ticket")
	}
}

func TestReasonMessage(t *testing.T) {
	if got := ReasonNotConfigured.Message(); got != "Please set up the ticket system first using `/ticket setup`" {
		t.Errorf("not configured message = %q", got)
	}
	if got := Reason("bogus").Message(); got == "" {
		t.Errorf("unknown reason has empty message")
	}
}

package models

// Actor is a guild member acting on the ticket system.
type Actor struct {
	ID      string
	Name    string
	RoleIDs []string
	// Admin is set when the member holds the platform administrator permission.
	Admin bool
}

// HasRole reports whether the actor holds roleID.
func (a Actor) HasRole(roleID string) bool {
	return contains(a.RoleIDs, roleID)
}

// Action is one of the fixed set of ticket-system actions.
type Action int

const (
	ActionOpen Action = iota + 1
	ActionClaim
	ActionUnclaim
	ActionTransfer
	ActionClose
	ActionViewTranscript
	ActionAddStaffRole
	ActionRemoveStaffRole
	ActionAddStaffMember
	ActionRemoveStaffMember
)

var actionNames = map[Action]string{
	ActionOpen:              "open",
	ActionClaim:             "claim",
	ActionUnclaim:           "unclaim",
	ActionTransfer:          "transfer",
	ActionClose:             "close",
	ActionViewTranscript:    "view_transcript",
	ActionAddStaffRole:      "add_staff_role",
	ActionRemoveStaffRole:   "remove_staff_role",
	ActionAddStaffMember:    "add_staff_member",
	ActionRemoveStaffMember: "remove_staff_member",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "unknown"
}

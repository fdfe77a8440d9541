package command

import "github.com/bwmarrin/discordgo"

// Top-level command names.
const (
	NameTicket = "ticket"
	NameManage = "manage"
)

// Subcommand names of /ticket.
const (
	SubSetup      = "setup"
	SubAdd        = "add"
	SubRemove     = "remove"
	SubStaff      = "staff"
	SubViewStaff  = "viewstaff"
	SubClaim      = "claim"
	SubUnclaim    = "unclaim"
	SubTransfer   = "transfer"
	SubOpen       = "open"
	SubClose      = "close"
	SubTranscript = "transcript"
)

// TicketCommand defines the structure for the /ticket command.
type TicketCommand struct{}

// Definition returns the application command definition.
func (c *TicketCommand) Definition() *discordgo.ApplicationCommand {
	textChannel := []discordgo.ChannelType{discordgo.ChannelTypeGuildText}
	dmPermission := false

	return &discordgo.ApplicationCommand{
		Name:         NameTicket,
		Description:  "Support ticket system",
		DMPermission: &dmPermission,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        SubSetup,
				Description: "Set up the ticket system",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:         "channel",
						Description:  "Channel where the ticket panel is posted",
						Type:         discordgo.ApplicationCommandOptionChannel,
						ChannelTypes: textChannel,
						Required:     true,
					},
					{
						Name:         "category",
						Description:  "Category where ticket channels are created",
						Type:         discordgo.ApplicationCommandOptionChannel,
						ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildCategory},
						Required:     true,
					},
					{
						Name:         "logs",
						Description:  "Channel for ticket logs",
						Type:         discordgo.ApplicationCommandOptionChannel,
						ChannelTypes: textChannel,
						Required:     true,
					},
					{
						Name:         "transcripts",
						Description:  "Channel for ticket transcripts",
						Type:         discordgo.ApplicationCommandOptionChannel,
						ChannelTypes: textChannel,
						Required:     true,
					},
					{
						Name:         "rating",
						Description:  "Channel for ticket ratings",
						Type:         discordgo.ApplicationCommandOptionChannel,
						ChannelTypes: textChannel,
						Required:     true,
					},
				},
			},
			{
				Name:        SubAdd,
				Description: "Add a staff role",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        "role",
						Description: "Role to grant ticket access",
						Type:        discordgo.ApplicationCommandOptionRole,
						Required:    true,
					},
				},
			},
			{
				Name:        SubRemove,
				Description: "Remove a staff role",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        "role",
						Description: "Role to remove from ticket access",
						Type:        discordgo.ApplicationCommandOptionRole,
						Required:    true,
					},
				},
			},
			{
				Name:        SubStaff,
				Description: "Add or remove an individual staff member",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        "user",
						Description: "The user",
						Type:        discordgo.ApplicationCommandOptionUser,
						Required:    true,
					},
					{
						Name:        "action",
						Description: "Add or remove",
						Type:        discordgo.ApplicationCommandOptionString,
						Required:    true,
						Choices: []*discordgo.ApplicationCommandOptionChoice{
							{Name: "Add", Value: "add"},
							{Name: "Remove", Value: "remove"},
						},
					},
				},
			},
			{
				Name:        SubViewStaff,
				Description: "Show staff roles and members",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
			},
			{
				Name:        SubClaim,
				Description: "Claim this ticket",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
			},
			{
				Name:        SubUnclaim,
				Description: "Unclaim this ticket",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
			},
			{
				Name:        SubTransfer,
				Description: "Transfer this ticket to another staff member",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        "user",
						Description: "Staff member to transfer to",
						Type:        discordgo.ApplicationCommandOptionUser,
						Required:    true,
					},
				},
			},
			{
				Name:        SubOpen,
				Description: "Open a new ticket",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        "reason",
						Description: "What do you need help with?",
						Type:        discordgo.ApplicationCommandOptionString,
						MaxLength:   1000,
					},
				},
			},
			{
				Name:        SubClose,
				Description: "Close this ticket",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        "reason",
						Description: "Reason for closing",
						Type:        discordgo.ApplicationCommandOptionString,
						MaxLength:   500,
					},
				},
			},
			{
				Name:        SubTranscript,
				Description: "Generate a transcript of this ticket",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
			},
		},
	}
}

// AdminSubcommands require the administrator permission; the command itself
// stays visible to staff, so the handler checks them.
var AdminSubcommands = map[string]bool{
	SubSetup:     true,
	SubAdd:       true,
	SubRemove:    true,
	SubStaff:     true,
	SubViewStaff: true,
}

// SubPanel is the /manage subcommand that restyles the ticket panel.
const SubPanel = "panel"

// Panel button style choices of /manage panel.
const (
	StylePrimary   = "PRIMARY"
	StyleSecondary = "SECONDARY"
	StyleSuccess   = "SUCCESS"
	StyleDanger    = "DANGER"
)

// ManageCommand defines /manage, restricted to administrators.
type ManageCommand struct{}

// Definition returns the application command definition.
func (c *ManageCommand) Definition() *discordgo.ApplicationCommand {
	adminOnly := int64(discordgo.PermissionAdministrator)
	dmPermission := false

	return &discordgo.ApplicationCommand{
		Name:                     NameManage,
		Description:              "Manage ticket panel settings",
		DefaultMemberPermissions: &adminOnly,
		DMPermission:             &dmPermission,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        SubPanel,
				Description: "Update ticket panel settings",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        "title",
						Description: "Set the embed title",
						Type:        discordgo.ApplicationCommandOptionString,
						MaxLength:   256,
					},
					{
						Name:        "description",
						Description: "Set the embed description",
						Type:        discordgo.ApplicationCommandOptionString,
						MaxLength:   4000,
					},
					{
						Name:        "color",
						Description: "Set the embed color (hex format: #RRGGBB)",
						Type:        discordgo.ApplicationCommandOptionString,
						MaxLength:   7,
					},
					{
						Name:        "button_label",
						Description: "Set the button label",
						Type:        discordgo.ApplicationCommandOptionString,
						MaxLength:   80,
					},
					{
						Name:        "button_emoji",
						Description: "Set the button emoji",
						Type:        discordgo.ApplicationCommandOptionString,
					},
					{
						Name:        "button_style",
						Description: "Set the button style",
						Type:        discordgo.ApplicationCommandOptionString,
						Choices: []*discordgo.ApplicationCommandOptionChoice{
							{Name: "Primary (Blurple)", Value: StylePrimary},
							{Name: "Secondary (Grey)", Value: StyleSecondary},
							{Name: "Success (Green)", Value: StyleSuccess},
							{Name: "Danger (Red)", Value: StyleDanger},
						},
					},
				},
			},
		},
	}
}

package command

import "github.com/bwmarrin/discordgo"

// Command is an interface for application commands.
type Command interface {
	Definition() *discordgo.ApplicationCommand
}

// Registry holds the commands the bot registers. It is built once at startup
// and passed to the bot.
type Registry struct {
	commands []Command
}

// NewRegistry creates a registry of the given commands.
func NewRegistry(commands ...Command) *Registry {
	return &Registry{commands: commands}
}

// DefaultRegistry returns the registry with every command the bot serves.
func DefaultRegistry() *Registry {
	return NewRegistry(&TicketCommand{}, &ManageCommand{})
}

// Definitions returns a slice of all command definitions.
func (r *Registry) Definitions() []*discordgo.ApplicationCommand {
	defs := make([]*discordgo.ApplicationCommand, len(r.commands))
	for i, cmd := range r.commands {
		defs[i] = cmd.Definition()
	}
	return defs
}

package bot

import (
	"fmt"

	"ticket-bot/command"
	"ticket-bot/config"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Bot encapsulates the bot's state.
type Bot struct {
	Session  *discordgo.Session
	Registry *command.Registry

	guildID string
	logger  *zap.Logger
}

// NewBot creates and initializes a new Bot instance.
func NewBot(cfg *config.Config, registry *command.Registry, logger *zap.Logger) (*Bot, error) {
	if cfg.Bot.Token == "" {
		return nil, fmt.Errorf("no bot token provided")
	}

	dg, err := discordgo.New("Bot " + cfg.Bot.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}

	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	return &Bot{
		Session:  dg,
		Registry: registry,
		guildID:  cfg.Bot.GuildID,
		logger:   logger.Named("bot"),
	}, nil
}

// OnConnectionChange reports gateway connects and disconnects to fn.
func (b *Bot) OnConnectionChange(fn func(connected bool)) {
	b.Session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Connect) { fn(true) })
	b.Session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) { fn(false) })
}

// Start opens the bot's session and registers handlers.
func (b *Bot) Start(registerHandlers func(*Bot)) error {
	registerHandlers(b)

	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}

	// Register slash commands
	for _, def := range b.Registry.Definitions() {
		if _, err := b.Session.ApplicationCommandCreate(b.Session.State.User.ID, b.guildID, def); err != nil {
			b.logger.Error("cannot create command", zap.String("command", def.Name), zap.Error(err))
		}
	}

	b.logger.Info("bot is now running", zap.String("user", b.Session.State.User.Username))
	return nil
}

// Stop gracefully closes the bot's session.
func (b *Bot) Stop() error {
	if b.Session == nil {
		return nil
	}
	if err := b.Session.Close(); err != nil {
		return fmt.Errorf("error closing session: %w", err)
	}
	b.logger.Info("bot stopped gracefully")
	return nil
}

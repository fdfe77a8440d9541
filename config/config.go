package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full bot configuration.
type Config struct {
	Bot           BotConfig           `mapstructure:"bot"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Tickets       TicketsConfig       `mapstructure:"tickets"`
	Log           LogConfig           `mapstructure:"log"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// BotConfig holds gateway settings.
type BotConfig struct {
	Token          string `mapstructure:"token"`
	AdminChannelID string `mapstructure:"adminChannelId"`
	// GuildID scopes slash-command registration; empty registers globally.
	GuildID string `mapstructure:"guildId"`
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Driver        string `mapstructure:"driver"`
	SQLitePath    string `mapstructure:"sqlitePath"`
	MongoURI      string `mapstructure:"mongoUri"`
	MongoDatabase string `mapstructure:"mongoDatabase"`
}

// TicketsConfig tunes the ticket lifecycle.
type TicketsConfig struct {
	DeleteDelay     time.Duration `mapstructure:"deleteDelay"`
	SweepSchedule   string        `mapstructure:"sweepSchedule"`
	SweepGrace      time.Duration `mapstructure:"sweepGrace"`
	TranscriptLimit int           `mapstructure:"transcriptLimit"`
	OpenRate        time.Duration `mapstructure:"openRate"`
	OpenBurst       int           `mapstructure:"openBurst"`
}

// LogConfig configures zap and the admin channel sink.
type LogConfig struct {
	Level        string `mapstructure:"level"`
	Encoding     string `mapstructure:"encoding"`
	ChannelLevel string `mapstructure:"channelLevel"`
}

// ObservabilityConfig holds listener addresses. Empty disables the listener.
type ObservabilityConfig struct {
	MetricsAddr string `mapstructure:"metricsAddr"`
	HealthAddr  string `mapstructure:"healthAddr"`
}

const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// SetDefaults registers a default for every key so environment overrides are
// visible to Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("bot.token", "")
	v.SetDefault("bot.adminChannelId", "")
	v.SetDefault("bot.guildId", "")

	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.sqlitePath", "data/tickets.db")
	v.SetDefault("storage.mongoUri", "mongodb://localhost:27017")
	v.SetDefault("storage.mongoDatabase", "ticketbot")

	v.SetDefault("tickets.deleteDelay", 5*time.Second)
	v.SetDefault("tickets.sweepSchedule", "@every 1m")
	v.SetDefault("tickets.sweepGrace", time.Minute)
	v.SetDefault("tickets.transcriptLimit", 500)
	v.SetDefault("tickets.openRate", 30*time.Second)
	v.SetDefault("tickets.openBurst", 2)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("log.channelLevel", "warn")

	v.SetDefault("observability.metricsAddr", ":9090")
	v.SetDefault("observability.healthAddr", ":9091")
}

// LoadConfig loads configuration from, in increasing priority:
// defaults, config.yaml, config/tickets.json, .env and the process environment.
// Missing files are skipped; malformed files are an error.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, skipping.")
	}

	v := viper.New()
	SetDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config.yaml: %w", err)
		}
		log.Printf("config.yaml not found, using environment variables and defaults.")
	}

	v.SetConfigName("tickets")
	v.SetConfigType("json")
	v.AddConfigPath("./config")
	if err := v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error merging config/tickets.json: %w", err)
		}
	}

	return Decode(v)
}

// Decode unmarshals and validates a populated viper instance.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required settings.
func (c *Config) Validate() error {
	if c.Bot.Token == "" {
		return errors.New("no bot token provided, set BOT_TOKEN in your .env or config file")
	}
	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			return errors.New("storage.sqlitePath is required for the sqlite driver")
		}
	case DriverMongo:
		if c.Storage.MongoURI == "" || c.Storage.MongoDatabase == "" {
			return errors.New("storage.mongoUri and storage.mongoDatabase are required for the mongo driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Tickets.DeleteDelay < 0 {
		return errors.New("tickets.deleteDelay must not be negative")
	}
	return nil
}

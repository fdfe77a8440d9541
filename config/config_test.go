package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func TestDecodeDefaults(t *testing.T) {
	v := newViper()
	v.Set("bot.token", "token")

	cfg, err := Decode(v)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if cfg.Storage.Driver != DriverSQLite || cfg.Storage.SQLitePath != "data/tickets.db" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Tickets.DeleteDelay != 5*time.Second {
		t.Errorf("DeleteDelay = %v, want 5s", cfg.Tickets.DeleteDelay)
	}
	if cfg.Tickets.SweepSchedule != "@every 1m" || cfg.Tickets.TranscriptLimit != 500 {
		t.Errorf("tickets = %+v", cfg.Tickets)
	}
}

func TestDecodeEnvironmentOverrides(t *testing.T) {
	t.Setenv("BOT_TOKEN", "from-env")
	t.Setenv("STORAGE_DRIVER", "mongo")
	t.Setenv("TICKETS_DELETEDELAY", "30s")

	cfg, err := Decode(newViper())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if cfg.Bot.Token != "from-env" {
		t.Errorf("Token = %q", cfg.Bot.Token)
	}
	if cfg.Storage.Driver != DriverMongo {
		t.Errorf("Driver = %q", cfg.Storage.Driver)
	}
	if cfg.Tickets.DeleteDelay != 30*time.Second {
		t.Errorf("DeleteDelay = %v", cfg.Tickets.DeleteDelay)
	}
}

func TestDecodeYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
bot:
  token: file-token
  guildId: "123"
tickets:
  deleteDelay: 1m
  openBurst: 5
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig() error = %v", err)
	}
	cfg, err := Decode(v)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if cfg.Bot.Token != "file-token" || cfg.Bot.GuildID != "123" {
		t.Errorf("bot = %+v", cfg.Bot)
	}
	if cfg.Tickets.DeleteDelay != time.Minute || cfg.Tickets.OpenBurst != 5 {
		t.Errorf("tickets = %+v", cfg.Tickets)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Bot:     BotConfig{Token: "token"},
			Storage: StorageConfig{Driver: DriverSQLite, SQLitePath: "x.db"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"ok", func(*Config) {}, ""},
		{"missing token", func(c *Config) { c.Bot.Token = "" }, "no bot token"},
		{"sqlite without path", func(c *Config) { c.Storage.SQLitePath = "" }, "sqlitePath"},
		{"mongo without uri", func(c *Config) { c.Storage = StorageConfig{Driver: DriverMongo} }, "mongoUri"},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "postgres" }, "unknown storage driver"},
		{"negative delay", func(c *Config) { c.Tickets.DeleteDelay = -time.Second }, "deleteDelay"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

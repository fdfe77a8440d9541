package utils

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"ticket-bot/config"
	"ticket-bot/models"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

type recordingSender struct {
	mu      sync.Mutex
	notices []models.Notice
	err     error
}

func (r *recordingSender) SendMessage(_ context.Context, channelID string, n models.Notice) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
	return "m1", r.err
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	logger, err := NewLogger(config.LogConfig{Level: "nonsense", Encoding: "xml"})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if logger.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("debug enabled for invalid level")
	}
	if !logger.Core().Enabled(zapcore.InfoLevel) {
		t.Fatal("info disabled")
	}
}

func TestAttachChannelForwardsAtLevel(t *testing.T) {
	sender := &recordingSender{}
	writer := NewChannelWriter(sender, "c-logs", zaptest.NewLogger(t))
	logger := AttachChannel(zaptest.NewLogger(t), writer, zapcore.WarnLevel).Named("tickets")

	logger.Info("ignored")
	logger.With(zap.String("guild_id", "g1")).Warn("panel post failed", zap.Int("attempt", 2))
	logger.Error("store down", zap.Error(errors.New("boom")))
	writer.Close()

	if len(sender.notices) != 2 {
		t.Fatalf("sent %d notices, want 2", len(sender.notices))
	}
	warn := sender.notices[0]
	if warn.Title != "Log Level: WARN" || warn.Color != models.ColorWarn {
		t.Errorf("warn notice = %q color %d", warn.Title, warn.Color)
	}
	if len(warn.Fields) != 3 || warn.Fields[0].Value != "tickets" || warn.Fields[1].Value != "panel post failed" {
		t.Fatalf("warn fields = %+v", warn.Fields)
	}
	if warn.Fields[2].Value != "attempt: 2\nguild_id: g1" {
		t.Errorf("details = %q", warn.Fields[2].Value)
	}
	if sender.notices[1].Color != models.ColorError {
		t.Errorf("error color = %d", sender.notices[1].Color)
	}
}

func TestChannelWriterSurvivesSendFailure(t *testing.T) {
	sender := &recordingSender{err: errors.New("missing access")}
	writer := NewChannelWriter(sender, "c-logs", zaptest.NewLogger(t))
	writer.add(models.Notice{Title: "a"})
	writer.add(models.Notice{Title: "b"})
	writer.Close()
	writer.Close()

	if len(sender.notices) != 2 {
		t.Fatalf("attempted %d sends, want 2", len(sender.notices))
	}
}

func TestFormatFieldsTruncates(t *testing.T) {
	if got := formatFields(nil); got != "" {
		t.Fatalf("formatFields(nil) = %q", got)
	}
	got := formatFields(map[string]interface{}{"k": strings.Repeat("x", 2000)})
	if len(got) != 1024 || !strings.HasSuffix(got, "...") {
		t.Fatalf("len = %d", len(got))
	}
}

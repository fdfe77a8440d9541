package utils

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"ticket-bot/config"
	"ticket-bot/models"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a structured zap.Logger from the log settings.
func NewLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if err := level.Set(strings.ToLower(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	encoding := cfg.Encoding
	if encoding != "console" {
		encoding = "json"
	}

	zapCfg := zap.Config{
		Level:    zap.NewAtomicLevelAt(level),
		Encoding: encoding,
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:    "message",
			LevelKey:      "level",
			TimeKey:       "ts",
			NameKey:       "module",
			CallerKey:     "caller",
			StacktraceKey: "stacktrace",
			EncodeLevel:   zapcore.CapitalLevelEncoder,
			EncodeTime:    zapcore.ISO8601TimeEncoder,
			EncodeCaller:  zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return zapCfg.Build()
}

// ChannelSender delivers a notice to a chat channel.
type ChannelSender interface {
	SendMessage(ctx context.Context, channelID string, notice models.Notice) (string, error)
}

// ChannelWriter forwards log entries to the admin channel from a single
// background worker. Entries are dropped when the buffer is full.
type ChannelWriter struct {
	sender    ChannelSender
	channelID string
	fallback  *zap.Logger
	queue     chan models.Notice
	done      chan struct{}
	closeOnce sync.Once
}

// NewChannelWriter starts the worker. Delivery failures are reported to fallback,
// which must not itself be wired to the channel.
func NewChannelWriter(sender ChannelSender, channelID string, fallback *zap.Logger) *ChannelWriter {
	w := &ChannelWriter{
		sender:    sender,
		channelID: channelID,
		fallback:  fallback,
		queue:     make(chan models.Notice, 256),
		done:      make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *ChannelWriter) add(n models.Notice) {
	select {
	case w.queue <- n:
	default:
		w.fallback.Warn("admin channel log queue full, dropping entry", zap.String("title", n.Title))
	}
}

func (w *ChannelWriter) run() {
	defer close(w.done)
	for n := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if _, err := w.sender.SendMessage(ctx, w.channelID, n); err != nil {
			w.fallback.Warn("error sending log message to Discord", zap.Error(err))
		}
		cancel()
	}
}

// Close drains the queue and stops the worker.
func (w *ChannelWriter) Close() {
	w.closeOnce.Do(func() {
		close(w.queue)
		<-w.done
	})
}

// AttachChannel returns a logger that additionally sends entries at or above
// level to the admin channel as embeds.
func AttachChannel(logger *zap.Logger, writer *ChannelWriter, level zapcore.Level) *zap.Logger {
	return logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, &channelCore{LevelEnabler: level, writer: writer})
	}))
}

type channelCore struct {
	zapcore.LevelEnabler
	writer *ChannelWriter
	fields []zapcore.Field
}

func (c *channelCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &channelCore{LevelEnabler: c.LevelEnabler, writer: c.writer, fields: merged}
}

func (c *channelCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *channelCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}

	module := ent.LoggerName
	if module == "" {
		module = "bot"
	}
	notice := models.Notice{
		Title:     fmt.Sprintf("Log Level: %s", ent.Level.CapitalString()),
		Color:     levelColor(ent.Level),
		Timestamp: ent.Time,
		Fields: []models.Field{
			{Name: "Module", Value: module, Inline: true},
			{Name: "Operation", Value: ent.Message, Inline: true},
		},
	}
	if details := formatFields(enc.Fields); details != "" {
		notice.Fields = append(notice.Fields, models.Field{Name: "Details", Value: details})
	}
	c.writer.add(notice)
	return nil
}

func (c *channelCore) Sync() error { return nil }

func levelColor(l zapcore.Level) int {
	switch {
	case l >= zapcore.ErrorLevel:
		return models.ColorError
	case l == zapcore.WarnLevel:
		return models.ColorWarn
	default:
		return models.ColorSuccess
	}
}

func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %v\n", k, fields[k])
	}
	out := strings.TrimSpace(b.String())
	// Embed field values are capped at 1024 characters.
	if len(out) > 1024 {
		out = out[:1021] + "..."
	}
	return out
}

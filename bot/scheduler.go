package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ticket-bot/database"
	"ticket-bot/models"
	"ticket-bot/observability"
	"ticket-bot/ticket"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ChannelDeleter removes a chat channel.
type ChannelDeleter interface {
	DeleteChannel(ctx context.Context, channelID string) error
}

// DeleterOptions tunes the deleter.
type DeleterOptions struct {
	// Delay between closing a ticket and deleting its channel.
	Delay time.Duration
	// Schedule is the cron spec of the orphan sweep.
	Schedule string
	// Grace is how long past its deadline a deletion must be before the
	// sweep takes it over from the in-process timer.
	Grace time.Duration
}

// Deleter deletes the channels of closed tickets. Each deletion is persisted
// on the ticket before its timer is armed, so a cron sweep can finish
// deletions whose timer died with the process.
type Deleter struct {
	store    database.Store
	channels ChannelDeleter
	metrics  *observability.Metrics
	logger   *zap.Logger
	opts     DeleterOptions

	cron *cron.Cron

	mu      sync.Mutex
	pending map[string]func() bool // ticket ID -> stop timer

	now       func() time.Time
	afterFunc func(time.Duration, func()) func() bool
}

var _ ticket.DeletionScheduler = (*Deleter)(nil)

// NewDeleter creates the deleter. Call Start to run the sweep.
func NewDeleter(store database.Store, channels ChannelDeleter, metrics *observability.Metrics, logger *zap.Logger, opts DeleterOptions) *Deleter {
	if opts.Schedule == "" {
		opts.Schedule = "@every 1m"
	}
	return &Deleter{
		store:    store,
		channels: channels,
		metrics:  metrics,
		logger:   logger.Named("deleter"),
		opts:     opts,
		pending:  make(map[string]func() bool),
		now:      time.Now,
		afterFunc: func(d time.Duration, f func()) func() bool {
			return time.AfterFunc(d, f).Stop
		},
	}
}

// ScheduleDeletion marks the ticket for deletion and arms the timer.
func (d *Deleter) ScheduleDeletion(ctx context.Context, t *models.Ticket) error {
	at := d.now().Add(d.opts.Delay)
	if err := d.store.SetDeleteAfter(ctx, t.ID, &at); err != nil {
		return fmt.Errorf("failed to persist deletion of %s: %w", t.ChannelID, err)
	}
	t.DeleteAfter = &at

	ticketID, channelID := t.ID, t.ChannelID
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, armed := d.pending[ticketID]; armed {
		return nil
	}
	d.pending[ticketID] = d.afterFunc(d.opts.Delay, func() {
		d.fire(ticketID, channelID)
	})
	d.logger.Debug("channel deletion scheduled", zap.String("ticket_id", ticketID), zap.Time("at", at))
	return nil
}

func (d *Deleter) fire(ticketID, channelID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	d.deleteChannel(ctx, ticketID, channelID)

	d.mu.Lock()
	delete(d.pending, ticketID)
	d.mu.Unlock()
}

// deleteChannel makes one attempt and clears the mark whatever the outcome.
func (d *Deleter) deleteChannel(ctx context.Context, ticketID, channelID string) {
	result := "deleted"
	err := d.channels.DeleteChannel(ctx, channelID)
	switch {
	case err == nil:
		d.logger.Info("ticket channel deleted", zap.String("ticket_id", ticketID), zap.String("channel_id", channelID))
	case IsUnknownResource(err):
		result = "missing"
		d.logger.Debug("ticket channel already gone", zap.String("channel_id", channelID))
	default:
		result = "failed"
		d.logger.Error("failed to delete ticket channel", zap.String("channel_id", channelID), zap.Error(err))
	}
	d.metrics.ChannelDeletion(result)

	if err := d.store.SetDeleteAfter(ctx, ticketID, nil); err != nil {
		d.logger.Warn("failed to clear deletion mark", zap.String("ticket_id", ticketID), zap.Error(err))
	}
}

// Sweep deletes channels whose deadline passed more than the grace period
// ago and that have no live timer in this process.
func (d *Deleter) Sweep(ctx context.Context) {
	due, err := d.store.PendingDeletions(ctx, d.now().Add(-d.opts.Grace))
	if err != nil {
		d.logger.Error("failed to load pending deletions", zap.Error(err))
		return
	}
	for _, t := range due {
		d.mu.Lock()
		_, armed := d.pending[t.ID]
		d.mu.Unlock()
		if armed {
			continue
		}
		d.deleteChannel(ctx, t.ID, t.ChannelID)
	}
	if len(due) > 0 {
		d.logger.Info("deletion sweep finished", zap.Int("due", len(due)))
	}
}

// Start schedules the sweep and runs it once immediately.
func (d *Deleter) Start() error {
	d.cron = cron.New()
	_, err := d.cron.AddFunc(d.opts.Schedule, func() {
		d.Sweep(context.Background())
	})
	if err != nil {
		return fmt.Errorf("could not set up deletion sweep: %w", err)
	}
	d.cron.Start()
	d.logger.Info("deletion sweep scheduled", zap.String("schedule", d.opts.Schedule))

	go d.Sweep(context.Background())
	return nil
}

// Stop halts the sweep and cancels armed timers. Their marks stay persisted
// and are picked up by the next process.
func (d *Deleter) Stop() {
	if d.cron != nil {
		<-d.cron.Stop().Done()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, stop := range d.pending {
		stop()
		delete(d.pending, id)
	}
	d.logger.Info("deleter stopped")
}

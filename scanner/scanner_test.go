package scanner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"ticket-bot/database"
	"ticket-bot/models"

	"go.uber.org/zap/zaptest"
)

type fakeLister struct {
	ids map[string][]string
	err error
}

func (f *fakeLister) GuildChannelIDs(_ context.Context, guildID string) ([]string, error) {
	return f.ids[guildID], f.err
}

type recordingReconciler struct {
	removed []string
	failOn  string
}

func (r *recordingReconciler) ChannelRemoved(_ context.Context, _, channelID string) error {
	if channelID == r.failOn {
		return errors.New("store unavailable")
	}
	r.removed = append(r.removed, channelID)
	return nil
}

func newStore(t *testing.T, open ...int64) database.Store {
	t.Helper()
	store, err := database.OpenSQLite(filepath.Join(t.TempDir(), "tickets.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	now := time.Now()
	for _, n := range open {
		err := store.CreateTicket(context.Background(), &models.Ticket{
			ID:           fmt.Sprintf("t-%d", n),
			GuildID:      "g1",
			ChannelID:    fmt.Sprintf("ch-%d", n),
			TicketNumber: n,
			UserID:       fmt.Sprintf("u-%d", n),
			Status:       models.StatusOpen,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err != nil {
			t.Fatalf("CreateTicket() error = %v", err)
		}
	}
	return store
}

func TestScanGuildReconcilesMissingChannels(t *testing.T) {
	store := newStore(t, 1, 2, 3)
	lister := &fakeLister{ids: map[string][]string{"g1": {"ch-2", "c-general"}}}
	rec := &recordingReconciler{}

	n, err := New(store, lister, rec, zaptest.NewLogger(t)).ScanGuild(context.Background(), "g1")
	if err != nil {
		t.Fatalf("ScanGuild() error = %v", err)
	}
	if n != 2 || len(rec.removed) != 2 || rec.removed[0] != "ch-1" || rec.removed[1] != "ch-3" {
		t.Fatalf("reconciled %d: %v", n, rec.removed)
	}
}

func TestScanGuildSkipsListingWithoutOpenTickets(t *testing.T) {
	lister := &fakeLister{err: errors.New("should not be called")}
	n, err := New(newStore(t), lister, &recordingReconciler{}, zaptest.NewLogger(t)).ScanGuild(context.Background(), "g1")
	if err != nil || n != 0 {
		t.Fatalf("ScanGuild() = %d, %v", n, err)
	}
}

func TestScanGuildsContinuesPastFailures(t *testing.T) {
	store := newStore(t, 1, 2)
	rec := &recordingReconciler{failOn: "ch-1"}
	s := New(store, &fakeLister{ids: map[string][]string{}}, rec, zaptest.NewLogger(t))

	if got := s.ScanGuilds(context.Background(), []string{"g1", "g-empty"}); got != 1 {
		t.Fatalf("ScanGuilds() = %d, want 1", got)
	}
	if len(rec.removed) != 1 || rec.removed[0] != "ch-2" {
		t.Fatalf("removed = %v", rec.removed)
	}
}

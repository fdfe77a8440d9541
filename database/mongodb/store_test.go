package mongodb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"ticket-bot/database"
	"ticket-bot/models"

	"github.com/google/uuid"
)

// newTestStore connects to TICKETBOT_TEST_MONGO_URI and uses a throwaway database.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("TICKETBOT_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TICKETBOT_TEST_MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbName := "ticketbot_test_" + uuid.NewString()[:8]
	s, err := Connect(ctx, uri, dbName)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() {
		_ = s.client.Database(dbName).Drop(context.Background())
		s.Close()
	})
	return s
}

func seed(t *testing.T, s *Store) {
	t.Helper()
	if _, err := s.UpsertGuildConfig(context.Background(), &models.GuildConfig{GuildID: "g1", RatingChannelID: "c-rating"}); err != nil {
		t.Fatalf("UpsertGuildConfig() error = %v", err)
	}
}

func openTicket(n int64, owner string) *models.Ticket {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &models.Ticket{
		ID:           fmt.Sprintf("t-%d", n),
		GuildID:      "g1",
		ChannelID:    fmt.Sprintf("ch-%d", n),
		TicketNumber: n,
		UserID:       owner,
		Status:       models.StatusOpen,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestNextTicketNumberConcurrent(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)

	const n = 20
	got := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := s.NextTicketNumber(context.Background(), "g1")
			if err != nil {
				t.Errorf("NextTicketNumber() error = %v", err)
				return
			}
			got <- v
		}()
	}
	wg.Wait()
	close(got)

	seen := map[int64]bool{}
	for v := range got {
		if seen[v] || v < 1 || v > n {
			t.Fatalf("number %d duplicated or out of range", v)
		}
		seen[v] = true
	}

	if _, err := s.NextTicketNumber(context.Background(), "unknown"); !errors.Is(err, database.ErrNotFound) {
		t.Fatalf("unconfigured guild err = %v, want ErrNotFound", err)
	}
}

func TestTicketStateRules(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()

	first := openTicket(1, "u1")
	if err := s.CreateTicket(ctx, first); err != nil {
		t.Fatalf("CreateTicket() error = %v", err)
	}
	if err := s.CreateTicket(ctx, openTicket(2, "u1")); !errors.Is(err, database.ErrDuplicate) {
		t.Fatalf("second open ticket err = %v, want ErrDuplicate", err)
	}

	if err := s.AssignTicket(ctx, first.ID, "", "staff-a", time.Now()); err != nil {
		t.Fatalf("AssignTicket() error = %v", err)
	}
	if err := s.AssignTicket(ctx, first.ID, "", "staff-b", time.Now()); !errors.Is(err, database.ErrConditionFailed) {
		t.Fatalf("stale assign err = %v, want ErrConditionFailed", err)
	}

	if err := s.CloseTicket(ctx, first.ID, "staff-a", "done", time.Now()); err != nil {
		t.Fatalf("CloseTicket() error = %v", err)
	}
	if err := s.CloseTicket(ctx, first.ID, "staff-a", "again", time.Now()); !errors.Is(err, database.ErrConditionFailed) {
		t.Fatalf("second close err = %v, want ErrConditionFailed", err)
	}

	// The owner may open again once the first ticket is closed.
	if err := s.CreateTicket(ctx, openTicket(2, "u1")); err != nil {
		t.Fatalf("CreateTicket() after close error = %v", err)
	}

	latest, err := s.LatestClosedTicket(ctx, "u1")
	if err != nil || latest.ID != first.ID {
		t.Fatalf("LatestClosedTicket() = %v, %v", latest, err)
	}
}

func TestRatingUnique(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	r := &models.TicketRating{ID: "r1", GuildID: "g1", TicketID: "t-1", UserID: "u1", Rating: 5, CreatedAt: time.Now()}
	if err := s.CreateRating(ctx, r); err != nil {
		t.Fatalf("CreateRating() error = %v", err)
	}
	dup := *r
	dup.ID = "r2"
	if err := s.CreateRating(ctx, &dup); !errors.Is(err, database.ErrDuplicate) {
		t.Fatalf("duplicate rating err = %v, want ErrDuplicate", err)
	}
}

func TestPanelSettingsSurviveUpsert(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()

	want := models.PanelSettings{Title: "Help Desk", Color: 0x0099ff, ButtonStyle: models.ButtonDanger}
	if err := s.SetPanelSettings(ctx, "g1", want); err != nil {
		t.Fatalf("SetPanelSettings() error = %v", err)
	}
	if err := s.SetPanelSettings(ctx, "unknown", want); !errors.Is(err, database.ErrNotFound) {
		t.Fatalf("unconfigured guild err = %v, want ErrNotFound", err)
	}

	cfg, err := s.UpsertGuildConfig(ctx, &models.GuildConfig{GuildID: "g1", RatingChannelID: "c-rating-2"})
	if err != nil {
		t.Fatalf("UpsertGuildConfig() error = %v", err)
	}
	if cfg.Panel != want {
		t.Fatalf("panel = %+v, want %+v", cfg.Panel, want)
	}
}

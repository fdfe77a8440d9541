package ticket

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"ticket-bot/database"
	"ticket-bot/models"
)

type sentNotice struct {
	ChannelID string
	Notice    models.Notice
}

type fakeChannels struct {
	mu         sync.Mutex
	next       int
	created    []ChannelSpec
	deleted    []string
	sent       []sentNotice
	edited     []sentNotice
	failCreate error
	failEdit   error
}

func (f *fakeChannels) CreateChannel(_ context.Context, spec ChannelSpec) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return "", f.failCreate
	}
	f.next++
	f.created = append(f.created, spec)
	return fmt.Sprintf("ch-%d", f.next), nil
}

func (f *fakeChannels) DeleteChannel(_ context.Context, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, channelID)
	return nil
}

func (f *fakeChannels) SendMessage(_ context.Context, channelID string, n models.Notice) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentNotice{ChannelID: channelID, Notice: n})
	return fmt.Sprintf("msg-%d", len(f.sent)), nil
}

func (f *fakeChannels) EditMessage(_ context.Context, channelID, messageID string, n models.Notice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failEdit != nil {
		return f.failEdit
	}
	f.edited = append(f.edited, sentNotice{ChannelID: channelID + "/" + messageID, Notice: n})
	return nil
}

func (f *fakeChannels) DeleteMessage(context.Context, string, string) error { return nil }

func (f *fakeChannels) FetchRecentMessages(context.Context, string, int) ([]models.HistoryMessage, error) {
	return nil, nil
}

func (f *fakeChannels) sentTo(channelID string) []models.Notice {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Notice
	for _, s := range f.sent {
		if s.ChannelID == channelID {
			out = append(out, s.Notice)
		}
	}
	return out
}

func (f *fakeChannels) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

type fakeGuilds struct{}

func (fakeGuilds) EnsureRole(context.Context, string, string) (string, error) {
	return "r-support", nil
}

type fakeTranscripts struct {
	err error
}

func (f *fakeTranscripts) Render(_ context.Context, channelID string, opts TranscriptOptions) (*models.Transcript, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Transcript{
		Name:        fmt.Sprintf("ticket-%s.html", opts.Ticket.DisplayNumber()),
		ContentType: "text/html",
		Data:        []byte("<html>" + channelID + "</html>"),
	}, nil
}

type fakeDirect struct {
	mu   sync.Mutex
	sent map[string][]models.Notice
}

func (f *fakeDirect) SendDirectMessage(_ context.Context, userID string, n models.Notice) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sent == nil {
		f.sent = make(map[string][]models.Notice)
	}
	f.sent[userID] = append(f.sent[userID], n)
	return "dm", nil
}

type fakePrompter struct {
	mu       sync.Mutex
	prompted []models.Ticket
}

func (f *fakePrompter) Prompt(_ context.Context, t *models.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompted = append(f.prompted, *t)
	return nil
}

type fakeDeleter struct {
	mu        sync.Mutex
	scheduled []string
}

func (f *fakeDeleter) ScheduleDeletion(_ context.Context, t *models.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled = append(f.scheduled, t.ChannelID)
	return nil
}

// failingStore rejects ticket inserts.
type failingStore struct {
	database.Store
	err error
}

func (f failingStore) CreateTicket(context.Context, *models.Ticket) error {
	return f.err
}

type fixture struct {
	store       database.Store
	channels    *fakeChannels
	transcripts *fakeTranscripts
	direct      *fakeDirect
	prompter    *fakePrompter
	deleter     *fakeDeleter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := database.OpenSQLite(filepath.Join(t.TempDir(), "tickets.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return &fixture{
		store:       store,
		channels:    &fakeChannels{},
		transcripts: &fakeTranscripts{},
		direct:      &fakeDirect{},
		prompter:    &fakePrompter{},
		deleter:     &fakeDeleter{},
	}
}

func (f *fixture) service() *Service {
	s := NewService(Deps{
		Store:       f.store,
		Channels:    f.channels,
		Guilds:      fakeGuilds{},
		Transcripts: f.transcripts,
		Direct:      f.direct,
		Ratings:     f.prompter,
		Deleter:     f.deleter,
	})
	s.async = func(fn func()) { fn() }
	return s
}

var (
	guildID = "g1"
	owner   = models.Actor{ID: "u-owner", Name: "owner"}
	staffA  = models.Actor{ID: "u-staff-a", RoleIDs: []string{"r-staff"}}
	staffB  = models.Actor{ID: "u-staff-b", RoleIDs: []string{"r-staff"}}
	admin   = models.Actor{ID: "u-admin", Admin: true}
	outside = models.Actor{ID: "u-outside"}
)

func setupGuild(t *testing.T, s *Service) *models.GuildConfig {
	t.Helper()
	ctx := context.Background()
	cfg, err := s.Setup(ctx, SetupRequest{
		GuildID:              guildID,
		Actor:                admin,
		TicketChannelID:      "c-intake",
		CategoryID:           "c-category",
		LogsChannelID:        "c-logs",
		TranscriptsChannelID: "c-transcripts",
		RatingChannelID:      "c-rating",
	})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if err := s.AddStaffRole(ctx, guildID, admin, "r-staff"); err != nil {
		t.Fatalf("AddStaffRole() error = %v", err)
	}
	return cfg
}

func openFor(t *testing.T, s *Service, actor models.Actor) *models.Ticket {
	t.Helper()
	tk, err := s.Open(context.Background(), OpenRequest{GuildID: guildID, Owner: actor, Subject: "Login issue"})
	if err != nil {
		t.Fatalf("Open(%s) error = %v", actor.ID, err)
	}
	return tk
}

func wantCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("err = nil, want %s", code)
	}
	if got := CodeOf(err); got != code {
		t.Fatalf("code = %s (%v), want %s", got, err, code)
	}
}

var errBoom = errors.New("boom")

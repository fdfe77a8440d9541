package transcript

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ticket-bot/models"
	"ticket-bot/ticket"
)

type fakeFetcher struct {
	msgs      []models.HistoryMessage
	err       error
	gotLimit  int
	gotChanID string
}

func (f *fakeFetcher) FetchRecentMessages(_ context.Context, channelID string, limit int) ([]models.HistoryMessage, error) {
	f.gotChanID, f.gotLimit = channelID, limit
	return f.msgs, f.err
}

func TestRender(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	f := &fakeFetcher{msgs: []models.HistoryMessage{
		{ID: "1", AuthorName: "alice", Content: "my login fails", Timestamp: at},
		{ID: "2", AuthorName: "Tickets", AuthorBot: true, Embeds: []string{"Ticket Claimed"}, Timestamp: at.Add(time.Minute)},
		{ID: "3", AuthorName: "bob", Content: "<script>alert(1)</script>", Attachments: []string{"https://cdn.example/log.txt"}, Timestamp: at.Add(2 * time.Minute)},
	}}
	tk := &models.Ticket{TicketNumber: 1, Subject: "Login", Category: "Account", UserID: "u-1", CreatedAt: at}

	tr, err := NewRenderer(f).Render(context.Background(), "ch-1", ticket.TranscriptOptions{Ticket: tk, Limit: 100})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if f.gotChanID != "ch-1" || f.gotLimit != 100 {
		t.Errorf("fetch(%q, %d)", f.gotChanID, f.gotLimit)
	}
	if tr.Name != "ticket-0001.html" || tr.ContentType != "text/html" {
		t.Errorf("transcript = %s (%s)", tr.Name, tr.ContentType)
	}

	html := string(tr.Data)
	for _, want := range []string{
		"Ticket #0001 Transcript",
		"my login fails",
		"Ticket Claimed",
		"2024-03-01 12:30:00 UTC",
		"&lt;script&gt;",
		`href="https://cdn.example/log.txt"`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("transcript missing %q", want)
		}
	}
	if strings.Contains(html, "<script>alert") {
		t.Errorf("message content was not escaped")
	}
	if strings.Index(html, "my login fails") > strings.Index(html, "&lt;script&gt;") {
		t.Errorf("messages are not in chronological order")
	}
}

func TestRenderWithoutTicket(t *testing.T) {
	tr, err := NewRenderer(&fakeFetcher{}).Render(context.Background(), "ch-9", ticket.TranscriptOptions{})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if tr.Name != "transcript-ch-9.html" {
		t.Errorf("Name = %q", tr.Name)
	}
	if !strings.Contains(string(tr.Data), "0 messages") {
		t.Errorf("empty transcript should report zero messages")
	}
}

func TestRenderFetchError(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewRenderer(&fakeFetcher{err: boom}).Render(context.Background(), "ch-1", ticket.TranscriptOptions{})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped fetch error", err)
	}
}

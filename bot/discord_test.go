package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"ticket-bot/models"

	"github.com/bwmarrin/discordgo"
)

func TestComponentsRowsOfFive(t *testing.T) {
	var buttons []models.Button
	for n := 1; n <= 7; n++ {
		buttons = append(buttons, models.Button{
			Label:  fmt.Sprint(n),
			Style:  models.ButtonDanger,
			Action: models.ComponentAction{Component: models.ComponentRate, TicketID: "t1", Rating: n%5 + 1},
		})
	}
	rows := Components(buttons)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	first := rows[0].(discordgo.ActionsRow)
	second := rows[1].(discordgo.ActionsRow)
	if len(first.Components) != 5 || len(second.Components) != 2 {
		t.Fatalf("row sizes = %d, %d", len(first.Components), len(second.Components))
	}
	btn := first.Components[0].(discordgo.Button)
	if btn.CustomID != "rate_2:t1" || btn.Style != discordgo.DangerButton || btn.Emoji != nil {
		t.Errorf("button = %+v", btn)
	}
	if Components(nil) != nil {
		t.Errorf("no buttons should give no rows")
	}
}

func TestEmbed(t *testing.T) {
	if Embed(models.Notice{Content: "plain"}) != nil {
		t.Errorf("content-only notice produced an embed")
	}
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	e := Embed(models.Notice{
		Title:     "Ticket Closed",
		Color:     models.ColorError,
		Fields:    []models.Field{{Name: "Reason", Value: "done", Inline: true}},
		Timestamp: at,
	})
	if e == nil || e.Title != "Ticket Closed" || e.Color != models.ColorError {
		t.Fatalf("embed = %+v", e)
	}
	if e.Timestamp != "2024-01-02T03:04:05Z" {
		t.Errorf("timestamp = %q", e.Timestamp)
	}
	if len(e.Fields) != 1 || !e.Fields[0].Inline {
		t.Errorf("fields = %+v", e.Fields)
	}
}

func TestIsUnknownResource(t *testing.T) {
	notFound := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusNotFound}}
	forbidden := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusForbidden}}
	if !IsUnknownResource(fmt.Errorf("delete: %w", notFound)) {
		t.Errorf("wrapped 404 not recognised")
	}
	if IsUnknownResource(forbidden) || IsUnknownResource(errors.New("x")) || IsUnknownResource(nil) {
		t.Errorf("non-404 recognised as unknown resource")
	}
}

func TestGuildChannelIDsFromState(t *testing.T) {
	state := discordgo.NewState()
	err := state.GuildAdd(&discordgo.Guild{
		ID: "g1",
		Channels: []*discordgo.Channel{
			{ID: "c-intake", GuildID: "g1", Type: discordgo.ChannelTypeGuildText},
			{ID: "ch-0001", GuildID: "g1", Type: discordgo.ChannelTypeGuildText},
		},
	})
	if err != nil {
		t.Fatalf("GuildAdd() error = %v", err)
	}

	ids, err := NewDiscord(&discordgo.Session{State: state}).GuildChannelIDs(context.Background(), "g1")
	if err != nil {
		t.Fatalf("GuildChannelIDs() error = %v", err)
	}
	got := map[string]bool{}
	for _, id := range ids {
		got[id] = true
	}
	if len(ids) != 2 || !got["c-intake"] || !got["ch-0001"] {
		t.Fatalf("ids = %v", ids)
	}
}

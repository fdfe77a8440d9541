package ticket

import (
	"context"
	"testing"

	"ticket-bot/models"
)

func TestSetup(t *testing.T) {
	f := newFixture(t)
	s := f.service()
	ctx := context.Background()

	req := SetupRequest{
		GuildID:              guildID,
		Actor:                staffA,
		TicketChannelID:      "c-intake",
		CategoryID:           "c-category",
		LogsChannelID:        "c-logs",
		TranscriptsChannelID: "c-transcripts",
		RatingChannelID:      "c-rating",
	}
	_, err := s.Setup(ctx, req)
	wantCode(t, err, CodeForbidden)

	req.Actor = admin
	req.RatingChannelID = ""
	_, err = s.Setup(ctx, req)
	wantCode(t, err, CodeInvalid)

	req.RatingChannelID = "c-rating"
	cfg, err := s.Setup(ctx, req)
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if cfg.SupportRoleID != "r-support" {
		t.Errorf("SupportRoleID = %q", cfg.SupportRoleID)
	}
	if cfg.PanelMessageID == "" {
		t.Errorf("panel message not recorded")
	}

	panel := f.channels.sentTo("c-intake")
	if len(panel) != 1 || len(panel[0].Buttons) != 1 {
		t.Fatalf("panel notices = %+v", panel)
	}
	if got := panel[0].Buttons[0].Action.Component; got != models.ComponentCreateTicket {
		t.Errorf("panel button component = %v", got)
	}
}

func TestSetupRerunKeepsCounterAndStaff(t *testing.T) {
	f := newFixture(t)
	s := f.service()
	ctx := context.Background()
	setupGuild(t, s)
	openFor(t, s, owner)

	cfg, err := s.Setup(ctx, SetupRequest{
		GuildID:              guildID,
		Actor:                admin,
		TicketChannelID:      "c-intake-2",
		CategoryID:           "c-category",
		LogsChannelID:        "c-logs",
		TranscriptsChannelID: "c-transcripts",
		RatingChannelID:      "c-rating",
	})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if cfg.TicketChannelID != "c-intake-2" || cfg.LastTicketNumber != 1 {
		t.Errorf("cfg = %+v", cfg)
	}
	if len(cfg.StaffRoles) != 1 {
		t.Errorf("StaffRoles = %v, want kept", cfg.StaffRoles)
	}

	next := openFor(t, s, outside)
	if next.TicketNumber != 2 {
		t.Errorf("next number = %d, want 2", next.TicketNumber)
	}
}

func TestStaffChanges(t *testing.T) {
	f := newFixture(t)
	s := f.service()
	ctx := context.Background()

	err := s.AddStaffRole(ctx, guildID, admin, "r-new")
	wantCode(t, err, CodeNotConfigured)

	setupGuild(t, s)

	wantCode(t, s.AddStaffRole(ctx, guildID, staffA, "r-new"), CodeForbidden)
	wantCode(t, s.AddStaffRole(ctx, guildID, admin, "r-staff"), CodeConflict)
	wantCode(t, s.RemoveStaffRole(ctx, guildID, admin, "r-unknown"), CodeConflict)

	if err := s.AddStaffMember(ctx, guildID, admin, outside.ID); err != nil {
		t.Fatalf("AddStaffMember() error = %v", err)
	}
	wantCode(t, s.AddStaffMember(ctx, guildID, admin, outside.ID), CodeConflict)

	// A staff member may now claim.
	tk := openFor(t, s, owner)
	if _, err := s.Claim(ctx, guildID, tk.ChannelID, outside); err != nil {
		t.Fatalf("Claim() by staff member error = %v", err)
	}

	if err := s.RemoveStaffMember(ctx, guildID, admin, outside.ID); err != nil {
		t.Fatalf("RemoveStaffMember() error = %v", err)
	}
	wantCode(t, s.RemoveStaffMember(ctx, guildID, admin, outside.ID), CodeConflict)

	cfg, err := s.Staff(ctx, guildID)
	if err != nil {
		t.Fatalf("Staff() error = %v", err)
	}
	if len(cfg.StaffMembers) != 0 || len(cfg.StaffRoles) != 1 {
		t.Errorf("staff = roles %v members %v", cfg.StaffRoles, cfg.StaffMembers)
	}
}

func TestUpdatePanel(t *testing.T) {
	f := newFixture(t)
	s := f.service()
	ctx := context.Background()

	_, err := s.UpdatePanel(ctx, PanelRequest{GuildID: guildID, Actor: admin, Title: "Help"})
	wantCode(t, err, CodeNotConfigured)

	cfg := setupGuild(t, s)
	panelKey := "c-intake/" + cfg.PanelMessageID

	_, err = s.UpdatePanel(ctx, PanelRequest{GuildID: guildID, Actor: staffA, Title: "Help"})
	wantCode(t, err, CodeForbidden)
	_, err = s.UpdatePanel(ctx, PanelRequest{GuildID: guildID, Actor: admin, Color: "blue"})
	wantCode(t, err, CodeInvalid)
	_, err = s.UpdatePanel(ctx, PanelRequest{GuildID: guildID, Actor: admin, ButtonStyle: "PURPLE"})
	wantCode(t, err, CodeInvalid)

	f.channels.failEdit = errBoom
	_, err = s.UpdatePanel(ctx, PanelRequest{GuildID: guildID, Actor: admin, Title: "Lost"})
	wantCode(t, err, CodeCollaboratorFailure)
	f.channels.failEdit = nil
	if len(f.channels.edited) != 0 {
		t.Fatalf("edited = %+v, want nothing", f.channels.edited)
	}

	got, err := s.UpdatePanel(ctx, PanelRequest{
		GuildID:     guildID,
		Actor:       admin,
		Title:       "Help Desk",
		Color:       "#0099FF",
		ButtonStyle: "success",
	})
	if err != nil {
		t.Fatalf("UpdatePanel() error = %v", err)
	}
	if got.Panel.Title != "Help Desk" || got.Panel.Color != 0x0099ff || got.Panel.ButtonStyle != models.ButtonSuccess {
		t.Errorf("panel = %+v", got.Panel)
	}
	if len(f.channels.edited) != 1 || f.channels.edited[0].ChannelID != panelKey {
		t.Fatalf("edited = %+v", f.channels.edited)
	}
	n := f.channels.edited[0].Notice
	if n.Title != "Help Desk" || n.Description != DefaultPanelDescription || n.Color != 0x0099ff {
		t.Errorf("panel notice = %+v", n)
	}
	if len(n.Buttons) != 1 || n.Buttons[0].Label != DefaultPanelButtonLabel || n.Buttons[0].Style != models.ButtonSuccess ||
		n.Buttons[0].Action.Component != models.ComponentCreateTicket {
		t.Errorf("panel buttons = %+v", n.Buttons)
	}

	// Later edits start from the stored settings.
	if _, err := s.UpdatePanel(ctx, PanelRequest{GuildID: guildID, Actor: admin, ButtonLabel: "Open a ticket"}); err != nil {
		t.Fatalf("UpdatePanel() error = %v", err)
	}
	n = f.channels.edited[1].Notice
	if n.Title != "Help Desk" || n.Color != 0x0099ff || n.Buttons[0].Label != "Open a ticket" || n.Buttons[0].Style != models.ButtonSuccess {
		t.Errorf("second panel notice = %+v", n)
	}

	// Setup reposts the customized panel.
	_, err = s.Setup(ctx, SetupRequest{
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
	panels := f.channels.sentTo("c-intake")
	if last := panels[len(panels)-1]; last.Title != "Help Desk" || last.Buttons[0].Label != "Open a ticket" {
		t.Errorf("reposted panel = %+v", last)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"#0099ff", 0x0099ff, false},
		{"FFD700", 0xffd700, false},
		{" #00ff00 ", 0x00ff00, false},
		{"#fff", 0, true},
		{"#gg0000", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseColor(%q) = %#x, %v", tt.in, got, err)
		}
	}
}

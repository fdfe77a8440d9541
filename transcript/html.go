// Package transcript renders ticket channel history as a standalone HTML page.
package transcript

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"ticket-bot/models"
	"ticket-bot/ticket"
)

// MessageFetcher reads channel history, oldest first.
type MessageFetcher interface {
	FetchRecentMessages(ctx context.Context, channelID string, limit int) ([]models.HistoryMessage, error)
}

// Renderer implements ticket.TranscriptRenderer.
type Renderer struct {
	fetcher MessageFetcher
}

var _ ticket.TranscriptRenderer = (*Renderer)(nil)

// NewRenderer creates a renderer reading history through fetcher.
func NewRenderer(fetcher MessageFetcher) *Renderer {
	return &Renderer{fetcher: fetcher}
}

type page struct {
	Title       string
	Ticket      *models.Ticket
	Messages    []models.HistoryMessage
	GeneratedAt time.Time
}

var pageTmpl = template.Must(template.New("transcript").Funcs(template.FuncMap{
	"ts": func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04:05 UTC") },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { background: #36393f; color: #dcddde; font-family: "Helvetica Neue", Helvetica, Arial, sans-serif; margin: 0; padding: 20px; }
header { border-bottom: 1px solid #4f545c; margin-bottom: 16px; padding-bottom: 8px; }
.meta { color: #b9bbbe; font-size: 13px; }
.message { padding: 6px 0; }
.author { color: #fff; font-weight: 600; }
.bot { background: #5865f2; border-radius: 3px; color: #fff; font-size: 10px; margin-left: 4px; padding: 1px 4px; }
.time { color: #72767d; font-size: 12px; margin-left: 6px; }
.content { white-space: pre-wrap; word-wrap: break-word; }
.embed { border-left: 4px solid #4f545c; margin: 4px 0; padding: 4px 8px; background: #2f3136; }
.attachment a { color: #00aff4; }
</style>
</head>
<body>
<header>
<h1>{{.Title}}</h1>
{{with .Ticket}}<div class="meta">
Subject: {{.Subject}} &middot; Category: {{.Category}} &middot; Opened by {{.UserID}} on {{ts .CreatedAt}}
{{if .ClosedBy}}&middot; Closed by {{.ClosedBy}}{{end}}{{if .CloseReason}} ({{.CloseReason}}){{end}}
</div>{{end}}
<div class="meta">{{len .Messages}} messages &middot; generated {{ts .GeneratedAt}}</div>
</header>
{{range .Messages}}<div class="message">
<span class="author">{{.AuthorName}}</span>{{if .AuthorBot}}<span class="bot">BOT</span>{{end}}<span class="time">{{ts .Timestamp}}</span>
{{if .Content}}<div class="content">{{.Content}}</div>{{end}}
{{range .Embeds}}<div class="embed">{{.}}</div>{{end}}
{{range .Attachments}}<div class="attachment"><a href="{{.}}">{{.}}</a></div>{{end}}
</div>
{{end}}</body>
</html>
`))

// Render fetches up to opts.Limit messages and renders them.
func (r *Renderer) Render(ctx context.Context, channelID string, opts ticket.TranscriptOptions) (*models.Transcript, error) {
	msgs, err := r.fetcher.FetchRecentMessages(ctx, channelID, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages for %s: %w", channelID, err)
	}

	name := fmt.Sprintf("transcript-%s.html", channelID)
	title := "Transcript"
	if opts.Ticket != nil {
		name = fmt.Sprintf("ticket-%s.html", opts.Ticket.DisplayNumber())
		title = fmt.Sprintf("Ticket #%s Transcript", opts.Ticket.DisplayNumber())
	}

	var buf bytes.Buffer
	err = pageTmpl.Execute(&buf, page{
		Title:       title,
		Ticket:      opts.Ticket,
		Messages:    msgs,
		GeneratedAt: time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render transcript: %w", err)
	}

	return &models.Transcript{
		Name:        name,
		ContentType: "text/html",
		Data:        buf.Bytes(),
	}, nil
}

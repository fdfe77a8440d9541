package models

import (
	"bytes"
	"io"
	"time"
)

// Embed colors used for notices.
const (
	ColorInfo    = 0x5865F2
	ColorSuccess = 0x00ff00
	ColorWarn    = 0xffff00
	ColorError   = 0xff0000
	ColorRating  = 0xFFD700
)

// Notice is a platform-agnostic outbound message. The Discord adapter
// renders it as content plus a single embed, buttons and attachments.
type Notice struct {
	Content     string
	Title       string
	Description string
	Color       int
	Fields      []Field
	Buttons     []Button
	Files       []File
	Timestamp   time.Time
}

// Field is a named embed field.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// File is an attachment blob.
type File struct {
	Name        string
	ContentType string
	Reader      io.Reader
}

// ButtonStyle maps to the platform's button styles.
type ButtonStyle int

const (
	ButtonPrimary ButtonStyle = iota + 1
	ButtonSecondary
	ButtonSuccess
	ButtonDanger
)

// Button is a choice offered to the user. Action identifies what a click does.
type Button struct {
	Label  string
	Emoji  string
	Style  ButtonStyle
	Action ComponentAction
}

// Component enumerates the interactive actions the bot understands.
type Component int

const (
	ComponentUnknown Component = iota
	ComponentCreateTicket
	ComponentCloseTicket
	ComponentClaimTicket
	ComponentTranscriptTicket
	ComponentRate
	ComponentCreateTicketModal
	ComponentRatingModal
)

// ComponentAction is a decoded interactive identifier. TicketID is empty for
// prompts issued before ticket references were carried.
type ComponentAction struct {
	Component Component
	TicketID  string
	Rating    int
}

// HistoryMessage is one message of a channel's history, oldest first when returned
// by a channel provider.
type HistoryMessage struct {
	ID          string
	AuthorID    string
	AuthorName  string
	AuthorBot   bool
	Content     string
	Embeds      []string
	Attachments []string
	Timestamp   time.Time
}

// Transcript is a rendered capture of a channel's history.
type Transcript struct {
	Name        string
	ContentType string
	Data        []byte
}

// File returns a fresh attachment reading the transcript bytes.
func (t *Transcript) File() File {
	return File{Name: t.Name, ContentType: t.ContentType, Reader: bytes.NewReader(t.Data)}
}

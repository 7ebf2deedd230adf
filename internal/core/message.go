package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/vovakirdan/wirechat-relay/internal/store"
)

// Message is the domain model for a chat message.
type Message struct {
	ID             int64
	ConversationID int64
	SenderID       int64
	Text           string
	ImageURL       string
	VideoURL       string
	Seen           bool
	CreatedAt      time.Time
}

// Draft is an outgoing message before it is persisted.
type Draft struct {
	Text     string
	ImageURL string
	VideoURL string
}

// Normalize trims surrounding whitespace from every field.
func (d Draft) Normalize() Draft {
	return Draft{
		Text:     strings.TrimSpace(d.Text),
		ImageURL: strings.TrimSpace(d.ImageURL),
		VideoURL: strings.TrimSpace(d.VideoURL),
	}
}

// Validate requires at least one of text, image or video.
func (d Draft) Validate() error {
	n := d.Normalize()
	if n.Text == "" && n.ImageURL == "" && n.VideoURL == "" {
		return fmt.Errorf("%w: message needs text, image or video", ErrValidation)
	}
	return nil
}

func messageFromStore(m *store.Message) Message {
	return Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Text:           m.Text,
		ImageURL:       m.ImageURL,
		VideoURL:       m.VideoURL,
		Seen:           m.Seen,
		CreatedAt:      m.CreatedAt,
	}
}

func messagesFromStore(ms []*store.Message) []Message {
	out := make([]Message, 0, len(ms))
	for _, m := range ms {
		out = append(out, messageFromStore(m))
	}
	return out
}

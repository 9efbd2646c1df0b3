package models

import (
	"strings"
	"time"
)

// DefaultChatTitle is the title a freshly created chat carries until the
// first message replaces it.
const DefaultChatTitle = "New chat"

// TempIDPrefix marks optimistic entries that have not been confirmed by the
// server yet. Reconciliation locates them by this tag, never by position.
const TempIDPrefix = "tmp-"

// Chat is a conversation with the assistant, as listed in the sidebar.
type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is one entry in a chat transcript.
type Message struct {
	ID      string `json:"id"`
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
)

// Temporary reports whether the message is an unconfirmed optimistic entry.
func (m Message) Temporary() bool {
	return strings.HasPrefix(m.ID, TempIDPrefix)
}

// Thread is a chat together with its ordered transcript.
type Thread struct {
	Chat     Chat      `json:"chat"`
	Messages []Message `json:"messages"`
}

// TitleFromMessage derives a chat title from the first user message,
// truncated to 50 characters on a rune boundary.
func TitleFromMessage(content string) string {
	content = strings.TrimSpace(content)
	if runes := []rune(content); len(runes) > 50 {
		content = string(runes[:50])
	}
	if content == "" {
		return DefaultChatTitle
	}
	return content
}

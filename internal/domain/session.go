package domain

import (
	"time"
)

// Session represents a conversation thread owned by one user.
type Session struct {
	SessionID string    `json:"id"`
	UserID    string    `json:"-"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	IsActive  bool      `json:"is_active"`
}

// Message represents a single message in a session.
type Message struct {
	MessageID string                 `json:"id"`
	SessionID string                 `json:"-"`
	Role      MessageRole            `json:"role"`
	Content   string                 `json:"content"`
	CreatedAt time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// MessagePreview is the shortened latest message shown next to a session.
type MessagePreview struct {
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
	Role      MessageRole `json:"role,omitempty"`
}

// SessionListItem is the lightweight projection used for listings.
type SessionListItem struct {
	SessionID     string          `json:"id"`
	Title         string          `json:"title"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	LatestMessage *MessagePreview `json:"latest_message"`
	MessageCount  int             `json:"message_count"`
}

// SessionDetail embeds the full ordered history of a session.
type SessionDetail struct {
	Session
	Messages      []Message       `json:"messages"`
	LatestMessage *MessagePreview `json:"latest_message"`
	MessageCount  int             `json:"message_count"`
}

// Pagination describes one page of a message listing.
type Pagination struct {
	CurrentPage   int  `json:"current_page"`
	TotalPages    int  `json:"total_pages"`
	HasNext       bool `json:"has_next"`
	HasPrevious   bool `json:"has_previous"`
	TotalMessages int  `json:"total_messages"`
}

// MessagePage is a page of messages in ascending timestamp order.
type MessagePage struct {
	Messages   []Message  `json:"messages"`
	Pagination Pagination `json:"pagination"`
}

// Turn is one user message paired with the assistant reply, committed atomically.
// NewSession is set when the turn opens a conversation.
type Turn struct {
	NewSession *Session
	SessionID  string
	UserID     string
	User       *Message
	Assistant  *Message
}

// Preview shortens content to max characters, appending an ellipsis when cut.
func Preview(content string, max int) string {
	runes := []rune(content)
	if len(runes) <= max {
		return content
	}
	return string(runes[:max]) + "..."
}

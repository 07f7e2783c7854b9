package domain

import "encoding/json"

// SendMessageRequest is the body of POST /send-message/.
type SendMessageRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// SendMessageResponse returns both persisted halves of a turn.
type SendMessageResponse struct {
	SessionID   string   `json:"session_id"`
	UserMessage *Message `json:"user_message"`
	BotResponse *Message `json:"bot_response"`
	Warning     string   `json:"warning,omitempty"`
}

// CreateSessionRequest is the body of POST /sessions/.
type CreateSessionRequest struct {
	Title        string `json:"title"`
	FirstMessage string `json:"first_message"`
}

// UpdateSessionRequest is the body of PUT/PATCH /sessions/:id/.
type UpdateSessionRequest struct {
	Title *string `json:"title"`
}

// SummaryResponse is the body of GET /sessions/:id/summary/.
type SummaryResponse struct {
	Summary string `json:"summary"`
}

// DeleteAllResponse reports how many sessions a bulk delete deactivated.
type DeleteAllResponse struct {
	Message      string `json:"message"`
	DeletedCount int64  `json:"deleted_count"`
}

// Activity is a fire-and-forget audit record.
type Activity struct {
	ActivityID  string          `json:"activity_id"`
	UserID      string          `json:"user_id"`
	Type        ActivityType    `json:"activity_type"`
	Description string          `json:"description"`
	Ts          int64           `json:"ts"` // Unix milliseconds
	Payload     json.RawMessage `json:"payload,omitempty"`
}

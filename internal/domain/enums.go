// Package domain defines the core domain models for the chat service.
package domain

// MessageRole tags who authored a message.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Valid reports whether r is a role the store accepts.
func (r MessageRole) Valid() bool {
	switch r {
	case MessageRoleUser, MessageRoleAssistant:
		return true
	}
	return false
}

// ActivityType represents the type of a recorded platform activity.
type ActivityType string

const (
	ActivityTypeSessionCreated  ActivityType = "chat_session_created"
	ActivityTypeMessageSent     ActivityType = "chat_message_sent"
	ActivityTypeSessionDeleted  ActivityType = "chat_session_deleted"
	ActivityTypeSessionsCleared ActivityType = "chat_sessions_cleared"
)

// PolicyDecision is the outcome of the session retention policy.
type PolicyDecision string

const (
	PolicyDecisionAllow PolicyDecision = "allow"
	PolicyDecisionWarn  PolicyDecision = "warn"
)

// Field limits shared by validation and storage.
const (
	MaxMessageLength  = 5000
	MaxTitleLength    = 255
	MaxBotNameLength  = 100
	MaxLanguageLength = 10

	DefaultSessionTitle = "New Chat"
	DefaultPageSize     = 50
)

package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Defaults applied when a user's preferences row is first created.
const (
	DefaultBotName            = "AI Assistant"
	DefaultBotPersonality     = "You are a helpful AI assistant."
	DefaultLanguagePreference = "en"
	DefaultMaxSessionMessages = 100
)

// Preferences holds per-user chat behaviour.
type Preferences struct {
	UserID             string    `json:"-"`
	BotName            string    `json:"bot_name"`
	BotPersonality     string    `json:"bot_personality"`
	LanguagePreference string    `json:"language_preference"`
	MaxSessionMessages int       `json:"max_session_messages"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// DefaultPreferences returns the documented default row for userID.
func DefaultPreferences(userID string, now time.Time) *Preferences {
	return &Preferences{
		UserID:             userID,
		BotName:            DefaultBotName,
		BotPersonality:     DefaultBotPersonality,
		LanguagePreference: DefaultLanguagePreference,
		MaxSessionMessages: DefaultMaxSessionMessages,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// PreferencesUpdate is a partial update; nil fields are left unchanged.
type PreferencesUpdate struct {
	BotName            *string `json:"bot_name"`
	BotPersonality     *string `json:"bot_personality"`
	LanguagePreference *string `json:"language_preference"`
	MaxSessionMessages *int    `json:"max_session_messages"`
}

// Validate checks field limits.
func (u PreferencesUpdate) Validate() error {
	if u.BotName != nil {
		if strings.TrimSpace(*u.BotName) == "" || utf8.RuneCountInString(*u.BotName) > MaxBotNameLength {
			return fmt.Errorf("%w: bot_name must be 1-%d characters", ErrInvalidPreferences, MaxBotNameLength)
		}
	}
	if u.BotPersonality != nil && strings.TrimSpace(*u.BotPersonality) == "" {
		return fmt.Errorf("%w: bot_personality may not be blank", ErrInvalidPreferences)
	}
	if u.LanguagePreference != nil {
		if strings.TrimSpace(*u.LanguagePreference) == "" || utf8.RuneCountInString(*u.LanguagePreference) > MaxLanguageLength {
			return fmt.Errorf("%w: language_preference must be 1-%d characters", ErrInvalidPreferences, MaxLanguageLength)
		}
	}
	if u.MaxSessionMessages != nil && *u.MaxSessionMessages < 1 {
		return fmt.Errorf("%w: max_session_messages must be positive", ErrInvalidPreferences)
	}
	return nil
}

// Apply copies the set fields onto p.
func (u PreferencesUpdate) Apply(p *Preferences) {
	if u.BotName != nil {
		p.BotName = *u.BotName
	}
	if u.BotPersonality != nil {
		p.BotPersonality = *u.BotPersonality
	}
	if u.LanguagePreference != nil {
		p.LanguagePreference = *u.LanguagePreference
	}
	if u.MaxSessionMessages != nil {
		p.MaxSessionMessages = *u.MaxSessionMessages
	}
}

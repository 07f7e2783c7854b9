// Package assembler builds the bounded prompt context handed to the oracle.
package assembler

import (
	"strings"

	"github.com/taleemedge/chatbot/internal/domain"
)

// HistoryLimit caps how many prior messages enter a prompt. It is independent
// of the per-user max_session_messages preference.
const HistoryLimit = 10

// Speaker labels used in the transcript.
const (
	SpeakerSystem    = "System"
	SpeakerHuman     = "Human"
	SpeakerAssistant = "Assistant"
)

// Line is one speaker-tagged entry of the transcript.
type Line struct {
	Speaker string
	Text    string
}

func (l Line) String() string {
	if l.Text == "" {
		return l.Speaker + ":"
	}
	return l.Speaker + ": " + l.Text
}

// Context is the ordered transcript for a single turn.
type Context struct {
	Lines []Line
	// History holds the prior messages that made it into the window.
	History []domain.Message
}

// Assemble builds the context for userMessage. history must be in ascending
// timestamp order and must not contain userMessage itself; only its last
// HistoryLimit entries are used.
func Assemble(persona string, history []domain.Message, userMessage string) Context {
	if len(history) > HistoryLimit {
		history = history[len(history)-HistoryLimit:]
	}

	lines := make([]Line, 0, len(history)+3)
	if strings.TrimSpace(persona) != "" {
		lines = append(lines, Line{Speaker: SpeakerSystem, Text: persona})
	}
	for _, msg := range history {
		lines = append(lines, Line{Speaker: speakerFor(msg.Role), Text: msg.Content})
	}
	lines = append(lines, Line{Speaker: SpeakerHuman, Text: userMessage})
	// Trailing cue marks where the reply begins.
	lines = append(lines, Line{Speaker: SpeakerAssistant})

	return Context{Lines: lines, History: history}
}

// Prompt renders the transcript as newline-separated text.
func (c Context) Prompt() string {
	parts := make([]string, len(c.Lines))
	for i, l := range c.Lines {
		parts[i] = l.String()
	}
	return strings.Join(parts, "\n")
}

func speakerFor(role domain.MessageRole) string {
	if role == domain.MessageRoleAssistant {
		return SpeakerAssistant
	}
	return SpeakerHuman
}

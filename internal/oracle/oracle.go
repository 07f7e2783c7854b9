// Package oracle turns the raw LLM client into the three text operations the
// chat service needs. None of them return an error: every failure of the
// backend is logged and replaced by a fixed fallback string.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/taleemedge/chatbot/internal/adapter/llm"
	"github.com/taleemedge/chatbot/internal/assembler"
	"github.com/taleemedge/chatbot/internal/domain"
	"github.com/taleemedge/chatbot/internal/metrics"
)

// Fallback texts.
const (
	FallbackReply   = "I'm experiencing some technical difficulties. Please try again later."
	EmptyReply      = "I'm sorry, I couldn't generate a response. Please try again."
	FallbackTitle   = domain.DefaultSessionTitle
	FallbackSummary = "No summary available"
)

// Operation names used in logs and metrics.
const (
	OpReply   = "reply"
	OpTitle   = "title"
	OpSummary = "summary"
)

const (
	maxTitleLength   = 50
	summaryHeadTail  = 3
	summaryThreshold = 6
)

var errEmptyOutput = errors.New("empty output")

// Config tunes the oracle.
type Config struct {
	Model string
	// Timeout bounds each call; zero disables it.
	Timeout time.Duration
}

// Oracle is the generation adapter.
type Oracle struct {
	client  llm.LLMClient
	cfg     Config
	log     logrus.FieldLogger
	metrics *metrics.Metrics
}

// New creates an Oracle. m may be nil.
func New(client llm.LLMClient, cfg Config, log logrus.FieldLogger, m *metrics.Metrics) *Oracle {
	return &Oracle{client: client, cfg: cfg, log: log, metrics: m}
}

type sessionKey struct{}

// WithSessionID attaches a session id to ctx for diagnostics.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey{}, sessionID)
}

func sessionIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// GenerateReply produces the assistant reply to userMessage given the prior
// history (oldest first) and the persona prompt.
func (o *Oracle) GenerateReply(ctx context.Context, userMessage string, history []domain.Message, persona string) string {
	prompt := assembler.Assemble(persona, history, userMessage).Prompt()

	text, err := o.complete(ctx, OpReply, prompt)
	switch {
	case errors.Is(err, errEmptyOutput):
		return EmptyReply
	case err != nil:
		return FallbackReply
	}
	return text
}

// GenerateTitle derives a short session title from the opening message.
func (o *Oracle) GenerateTitle(ctx context.Context, firstMessage string) string {
	prompt := fmt.Sprintf("Generate a short, descriptive title (maximum 5 words) for a chat conversation that starts with this message:\n\n\"%s\"\n\nJust return the title, nothing else.", firstMessage)

	title, err := o.complete(ctx, OpTitle, prompt)
	if err != nil {
		return FallbackTitle
	}
	return clampTitle(title)
}

// Summarize condenses a conversation. Long conversations are represented by
// their first and last three messages only.
func (o *Oracle) Summarize(ctx context.Context, messages []domain.Message) string {
	selected := SummaryWindow(messages)

	lines := make([]string, 0, len(selected))
	for _, msg := range selected {
		speaker := "User"
		if msg.Role == domain.MessageRoleAssistant {
			speaker = "Bot"
		}
		lines = append(lines, speaker+": "+msg.Content)
	}
	prompt := "Provide a brief summary (2-3 sentences) of this conversation:\n\n" + strings.Join(lines, "\n")

	summary, err := o.complete(ctx, OpSummary, prompt)
	if err != nil {
		return FallbackSummary
	}
	return summary
}

// SummaryWindow returns the messages sent for summarization.
func SummaryWindow(messages []domain.Message) []domain.Message {
	if len(messages) <= summaryThreshold {
		return messages
	}
	selected := make([]domain.Message, 0, 2*summaryHeadTail)
	selected = append(selected, messages[:summaryHeadTail]...)
	selected = append(selected, messages[len(messages)-summaryHeadTail:]...)
	return selected
}

func clampTitle(title string) string {
	if utf8.RuneCountInString(title) <= maxTitleLength {
		return title
	}
	runes := []rune(title)
	return string(runes[:maxTitleLength-3]) + "..."
}

// complete sends prompt as a single user message and returns the trimmed text.
func (o *Oracle) complete(ctx context.Context, op, prompt string) (string, error) {
	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, &llm.ChatCompletionRequest{
		Model:    o.cfg.Model,
		Messages: []llm.ChatMessage{{Role: llm.RoleUser, Content: prompt}},
	})
	elapsed := time.Since(start)

	var text string
	if err == nil {
		text = strings.TrimSpace(resp.Content())
		if text == "" {
			err = errEmptyOutput
		}
	}

	if err != nil {
		outcome := metrics.OutcomeError
		if errors.Is(err, errEmptyOutput) {
			outcome = metrics.OutcomeFallback
		}
		o.metrics.ObserveOracle(op, outcome, elapsed.Seconds())
		o.log.WithFields(logrus.Fields{
			"operation":  op,
			"session_id": sessionIDFrom(ctx),
			"elapsed_ms": elapsed.Milliseconds(),
		}).WithError(err).Warn("oracle call failed, using fallback")
		return "", err
	}

	o.metrics.ObserveOracle(op, metrics.OutcomeSuccess, elapsed.Seconds())
	return text, nil
}

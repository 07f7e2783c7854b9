package assembler

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taleemedge/chatbot/internal/domain"
)

func makeHistory(n int) []domain.Message {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	history := make([]domain.Message, n)
	for i := range history {
		role := domain.MessageRoleUser
		if i%2 == 1 {
			role = domain.MessageRoleAssistant
		}
		history[i] = domain.Message{
			MessageID: fmt.Sprintf("m%d", i),
			Role:      role,
			Content:   fmt.Sprintf("msg %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
	}
	return history
}

func TestAssembleKeepsLastTen(t *testing.T) {
	ctx := Assemble("Be kind.", makeHistory(15), "new question")

	require.Len(t, ctx.History, HistoryLimit)
	assert.Equal(t, "m5", ctx.History[0].MessageID)
	assert.Equal(t, "m14", ctx.History[9].MessageID)

	// persona + 10 prior + new turn + cue
	require.Len(t, ctx.Lines, 13)
	assert.Equal(t, Line{Speaker: SpeakerSystem, Text: "Be kind."}, ctx.Lines[0])
	assert.Equal(t, "msg 5", ctx.Lines[1].Text)
	assert.Equal(t, Line{Speaker: SpeakerHuman, Text: "new question"}, ctx.Lines[11])
	assert.Equal(t, Line{Speaker: SpeakerAssistant}, ctx.Lines[12])
}

func TestAssembleFewerThanLimit(t *testing.T) {
	ctx := Assemble("Be kind.", makeHistory(3), "next")

	require.Len(t, ctx.History, 3)
	assert.Equal(t, "System: Be kind.\nHuman: msg 0\nAssistant: msg 1\nHuman: msg 2\nHuman: next\nAssistant:", ctx.Prompt())
}

func TestAssembleNoHistory(t *testing.T) {
	ctx := Assemble("You are a helpful AI assistant.", nil, "Explain gravity")

	assert.Empty(t, ctx.History)
	assert.Equal(t, "System: You are a helpful AI assistant.\nHuman: Explain gravity\nAssistant:", ctx.Prompt())
}

func TestAssembleBlankPersona(t *testing.T) {
	ctx := Assemble("  ", nil, "hi")
	assert.Equal(t, "Human: hi\nAssistant:", ctx.Prompt())
}

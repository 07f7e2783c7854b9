package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taleemedge/chatbot/internal/adapter/llm"
	"github.com/taleemedge/chatbot/internal/domain"
	"github.com/taleemedge/chatbot/internal/metrics"
	"github.com/taleemedge/chatbot/internal/oracle"
	"github.com/taleemedge/chatbot/internal/repository"
	"github.com/taleemedge/chatbot/policy"
	"github.com/taleemedge/chatbot/tests/helpers"
)

type testEnv struct {
	svc    *Service
	db     *store.SQLiteStore
	client *llm.MockClient
}

func newTestService(t *testing.T, client *llm.MockClient) *testEnv {
	t.Helper()
	db := helpers.NewTestSQLiteStore(t)
	return newTestServiceWithStore(t, db, db, client)
}

func newTestServiceWithStore(t *testing.T, db *store.SQLiteStore, st store.Store, client *llm.MockClient) *testEnv {
	t.Helper()
	log, _ := test.NewNullLogger()
	m := metrics.New()
	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	require.NoError(t, err)

	o := oracle.New(client, oracle.Config{Model: "test", Timeout: time.Second}, log, m)
	svc := New(st, o, log,
		WithPolicy(engine),
		WithActivitySink(NewStoreActivitySink(st, log)),
		WithMetrics(m),
	)
	return &testEnv{svc: svc, db: db, client: client}
}

// failingCommitStore fails every CommitTurn.
type failingCommitStore struct {
	store.Store
}

func (f failingCommitStore) CommitTurn(ctx context.Context, turn *domain.Turn) error {
	return errors.New("disk full")
}

func TestSendMessageConversation(t *testing.T) {
	ctx := context.Background()
	env := newTestService(t, &llm.MockClient{Response: "Gravity attracts masses."})

	first, err := env.svc.SendMessage(ctx, "u1", domain.SendMessageRequest{Message: "  Explain gravity  "})
	require.NoError(t, err)
	require.NotEmpty(t, first.SessionID)
	assert.Equal(t, "Explain gravity", first.UserMessage.Content)
	assert.Equal(t, domain.MessageRoleUser, first.UserMessage.Role)
	assert.Equal(t, "Gravity attracts masses.", first.BotResponse.Content)
	assert.True(t, first.BotResponse.CreatedAt.After(first.UserMessage.CreatedAt))

	second, err := env.svc.SendMessage(ctx, "u1", domain.SendMessageRequest{Message: "And on the moon?", SessionID: first.SessionID})
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)

	detail, err := env.svc.GetSession(ctx, "u1", first.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "Gravity attracts masses.", detail.Title)
	require.Len(t, detail.Messages, 4)
	assert.Equal(t, 4, detail.MessageCount)
	roles := []domain.MessageRole{domain.MessageRoleUser, domain.MessageRoleAssistant, domain.MessageRoleUser, domain.MessageRoleAssistant}
	for i, msg := range detail.Messages {
		assert.Equal(t, roles[i], msg.Role, "message %d", i)
	}
	assert.Equal(t, "And on the moon?", detail.Messages[2].Content)
	require.NotNil(t, detail.LatestMessage)
	assert.Equal(t, domain.MessageRoleAssistant, detail.LatestMessage.Role)

	// title, first reply, second reply
	reqs := env.client.Requests()
	require.Len(t, reqs, 3)
	assert.Equal(t,
		"System: You are a helpful AI assistant.\nHuman: Explain gravity\nAssistant: Gravity attracts masses.\nHuman: And on the moon?\nAssistant:",
		reqs[2].Messages[0].Content)

	activities, err := env.db.ListActivities(ctx, "u1", 0)
	require.NoError(t, err)
	types := make(map[domain.ActivityType]int)
	for _, a := range activities {
		types[a.Type]++
	}
	assert.Equal(t, 1, types[domain.ActivityTypeSessionCreated])
	assert.Equal(t, 2, types[domain.ActivityTypeMessageSent])
}

func TestSendMessageValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestService(t, llm.NewMockClient())

	_, err := env.svc.SendMessage(ctx, "u1", domain.SendMessageRequest{Message: "   "})
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)

	_, err = env.svc.SendMessage(ctx, "u1", domain.SendMessageRequest{Message: strings.Repeat("x", domain.MaxMessageLength+1)})
	assert.ErrorIs(t, err, domain.ErrMessageTooLong)

	_, err = env.svc.SendMessage(ctx, "u1", domain.SendMessageRequest{Message: "hi", SessionID: "not-a-uuid"})
	assert.ErrorIs(t, err, domain.ErrInvalidSessionID)

	assert.Empty(t, env.client.Requests())
}

func TestSendMessageForeignSessionIsNotFound(t *testing.T) {
	ctx := context.Background()
	env := newTestService(t, llm.NewMockClient())

	resp, err := env.svc.SendMessage(ctx, "alice", domain.SendMessageRequest{Message: "hello"})
	require.NoError(t, err)

	_, err = env.svc.SendMessage(ctx, "bob", domain.SendMessageRequest{Message: "hi", SessionID: resp.SessionID})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = env.svc.GetSession(ctx, "bob", resp.SessionID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSendMessageOracleFailureUsesFallback(t *testing.T) {
	ctx := context.Background()
	env := newTestService(t, &llm.MockClient{Err: errors.New("quota exceeded")})

	resp, err := env.svc.SendMessage(ctx, "u1", domain.SendMessageRequest{Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, oracle.FallbackReply, resp.BotResponse.Content)

	detail, err := env.svc.GetSession(ctx, "u1", resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "New Chat", detail.Title)
	assert.Len(t, detail.Messages, 2)
}

func TestSendMessageStorageFailureLeavesNothing(t *testing.T) {
	ctx := context.Background()
	db := helpers.NewTestSQLiteStore(t)
	env := newTestServiceWithStore(t, db, failingCommitStore{Store: db}, llm.NewMockClient())

	_, err := env.svc.SendMessage(ctx, "u1", domain.SendMessageRequest{Message: "hello"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProcessingFailed)

	sessions, err := db.ListSessions(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestSendMessageToDeletedSession(t *testing.T) {
	ctx := context.Background()
	env := newTestService(t, llm.NewMockClient())

	resp, err := env.svc.SendMessage(ctx, "u1", domain.SendMessageRequest{Message: "hello"})
	require.NoError(t, err)
	require.NoError(t, env.svc.DeleteSession(ctx, "u1", resp.SessionID))

	_, err = env.svc.SendMessage(ctx, "u1", domain.SendMessageRequest{Message: "again", SessionID: resp.SessionID})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSendMessageRetentionWarning(t *testing.T) {
	ctx := context.Background()
	env := newTestService(t, &llm.MockClient{Response: "ok"})

	limit := 3
	_, err := env.svc.UpdatePreferences(ctx, "u1", domain.PreferencesUpdate{MaxSessionMessages: &limit})
	require.NoError(t, err)

	first, err := env.svc.SendMessage(ctx, "u1", domain.SendMessageRequest{Message: "one"})
	require.NoError(t, err)
	assert.Empty(t, first.Warning)
	assert.NotContains(t, first.BotResponse.Metadata, MetadataSessionLimitReached)

	second, err := env.svc.SendMessage(ctx, "u1", domain.SendMessageRequest{Message: "two", SessionID: first.SessionID})
	require.NoError(t, err)
	assert.NotEmpty(t, second.Warning)
	assert.Equal(t, true, second.BotResponse.Metadata[MetadataSessionLimitReached])

	detail, err := env.svc.GetSession(ctx, "u1", first.SessionID)
	require.NoError(t, err)
	assert.Len(t, detail.Messages, 4)
	assert.Equal(t, true, detail.Messages[3].Metadata[MetadataSessionLimitReached])
}

func TestSendMessageUsesPersona(t *testing.T) {
	ctx := context.Background()
	env := newTestService(t, &llm.MockClient{Response: "ok"})

	persona := "You are a patient physics tutor."
	_, err := env.svc.UpdatePreferences(ctx, "u1", domain.PreferencesUpdate{BotPersonality: &persona})
	require.NoError(t, err)

	_, err = env.svc.SendMessage(ctx, "u1", domain.SendMessageRequest{Message: "hi"})
	require.NoError(t, err)

	reqs := env.client.Requests()
	require.Len(t, reqs, 2)
	assert.True(t, strings.HasPrefix(reqs[1].Messages[0].Content, "System: "+persona+"\n"))
}

func TestSendMessageHistoryWindow(t *testing.T) {
	ctx := context.Background()
	env := newTestService(t, &llm.MockClient{Response: "ok"})

	resp, err := env.svc.SendMessage(ctx, "u1", domain.SendMessageRequest{Message: "turn 0"})
	require.NoError(t, err)
	for i := 1; i < 8; i++ {
		_, err := env.svc.SendMessage(ctx, "u1", domain.SendMessageRequest{Message: "turn " + string(rune('0'+i)), SessionID: resp.SessionID})
		require.NoError(t, err)
	}

	_, err = env.svc.SendMessage(ctx, "u1", domain.SendMessageRequest{Message: "final", SessionID: resp.SessionID})
	require.NoError(t, err)

	reqs := env.client.Requests()
	prompt := reqs[len(reqs)-1].Messages[0].Content
	lines := strings.Split(prompt, "\n")
	// persona + 10 prior + new turn + cue
	require.Len(t, lines, 13)
	assert.Equal(t, "Human: turn 3", lines[1])
	assert.Equal(t, "Human: final", lines[11])
	assert.NotContains(t, prompt, "turn 2")
}

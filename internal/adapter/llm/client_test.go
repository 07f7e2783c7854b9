package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientCreateChatCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected auth header: %q", got)
		}
		var req ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Stream {
			t.Errorf("expected non-streaming request")
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt","choices":[{"index":0,"message":{"role":"assistant","content":"hi"},"finish_reason":"stop"}],"usage":{"prompt_tokens":1,"completion_tokens":2,"total_tokens":3}}`)
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", "secret", time.Second)
	resp, err := client.CreateChatCompletion(context.Background(), &ChatCompletionRequest{
		Model:    "gpt",
		Messages: []ChatMessage{{Role: RoleUser, Content: "hello"}},
		Stream:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, "gpt", resp.Model)
	assert.Equal(t, "hi", resp.Content())
	assert.Equal(t, 3, resp.Usage.TotalTokens)
}

func TestClientCreateChatCompletionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"bad","type":"invalid_request_error"}}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second)
	_, err := client.CreateChatCompletion(context.Background(), &ChatCompletionRequest{
		Model:    "gpt",
		Messages: []ChatMessage{{Role: RoleUser, Content: "hello"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_request_error")
}

func TestResponseContentEmpty(t *testing.T) {
	var nilResp *ChatCompletionResponse
	assert.Equal(t, "", nilResp.Content())
	assert.Equal(t, "", (&ChatCompletionResponse{}).Content())
	assert.Equal(t, "", (&ChatCompletionResponse{Choices: []Choice{{Index: 0}}}).Content())
}

type fakeChatModel struct {
	got []*schema.Message
	out *schema.Message
	err error
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.got = input
	return f.out, f.err
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

func TestEinoClientCreateChatCompletion(t *testing.T) {
	fake := &fakeChatModel{out: &schema.Message{
		Role:    schema.Assistant,
		Content: "pong",
		ResponseMeta: &schema.ResponseMeta{
			FinishReason: "stop",
			Usage:        &schema.TokenUsage{PromptTokens: 4, CompletionTokens: 1, TotalTokens: 5},
		},
	}}
	client := NewEinoClient(fake, "doubao")

	temp := 0.5
	resp, err := client.CreateChatCompletion(context.Background(), &ChatCompletionRequest{
		Messages: []ChatMessage{
			{Role: RoleSystem, Content: "persona"},
			{Role: RoleUser, Content: "ping"},
			{Role: RoleAssistant, Content: "earlier"},
		},
		Temperature: &temp,
	})
	require.NoError(t, err)
	assert.Equal(t, "pong", resp.Content())
	assert.Equal(t, "doubao", resp.Model)
	assert.Equal(t, "stop", resp.Choices[0].FinishReason)
	assert.Equal(t, 5, resp.Usage.TotalTokens)

	require.Len(t, fake.got, 3)
	assert.Equal(t, schema.System, fake.got[0].Role)
	assert.Equal(t, schema.User, fake.got[1].Role)
	assert.Equal(t, schema.Assistant, fake.got[2].Role)
}

func TestEinoClientPropagatesError(t *testing.T) {
	client := NewEinoClient(&fakeChatModel{err: errors.New("boom")}, "m")
	_, err := client.CreateChatCompletion(context.Background(), &ChatCompletionRequest{
		Messages: []ChatMessage{{Role: RoleUser, Content: "ping"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestNewArkClientRequiresCredentials(t *testing.T) {
	_, err := NewArkClient(context.Background(), ArkConfig{Model: "doubao"})
	assert.Error(t, err)

	_, err = NewArkClient(context.Background(), ArkConfig{APIKey: "k"})
	assert.Error(t, err)
}

func TestMockClientEchoesLatestHumanLine(t *testing.T) {
	client := NewMockClient()
	resp, err := client.CreateChatCompletion(context.Background(), &ChatCompletionRequest{
		Messages: []ChatMessage{{Role: RoleUser, Content: "System: be nice\nHuman: first\nAssistant: ok\nHuman: second\nAssistant:"}},
	})
	require.NoError(t, err)
	assert.Contains(t, resp.Content(), `"second"`)
	assert.Len(t, client.Requests(), 1)
}

func TestMockClientHonoursContext(t *testing.T) {
	client := &MockClient{Delay: time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := client.CreateChatCompletion(ctx, &ChatCompletionRequest{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewLLMClientSelectsProvider(t *testing.T) {
	log, _ := test.NewNullLogger()

	t.Setenv(EnvChatMode, "")
	client, err := NewLLMClient(context.Background(), Options{Provider: ProviderOpenAI, BaseURL: "http://llm"}, log)
	require.NoError(t, err)
	assert.IsType(t, &Client{}, client)

	_, err = NewLLMClient(context.Background(), Options{Provider: ProviderOpenAI}, log)
	assert.Error(t, err)

	client, err = NewLLMClient(context.Background(), Options{Provider: ProviderMock}, log)
	require.NoError(t, err)
	assert.IsType(t, &MockClient{}, client)

	_, err = NewLLMClient(context.Background(), Options{Provider: "carrier-pigeon"}, log)
	assert.Error(t, err)
}

func TestNewLLMClientMockModeOverrides(t *testing.T) {
	t.Setenv(EnvChatMode, ModeMock)
	client, err := NewLLMClient(context.Background(), Options{Provider: ProviderArk}, logrus.New())
	require.NoError(t, err)
	assert.IsType(t, &MockClient{}, client)
}

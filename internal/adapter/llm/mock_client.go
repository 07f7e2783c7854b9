package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MockClient is a mock implementation of LLMClient for testing and offline runs.
// When Err is set every call fails with it; when Response is set it is
// returned verbatim. Otherwise a reply is derived from the prompt.
type MockClient struct {
	Response string
	Err      error
	Delay    time.Duration

	mu       sync.Mutex
	requests []*ChatCompletionRequest
}

// NewMockClient creates a new mock LLM client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// CreateChatCompletion returns a mock response.
func (m *MockClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.Delay):
		}
	}
	if m.Err != nil {
		return nil, m.Err
	}

	responseContent := m.Response
	if responseContent == "" {
		responseContent = m.generateMockResponse(req)
	}

	return &ChatCompletionResponse{
		ID:      fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []Choice{
			{
				Index: 0,
				Message: &ChatMessage{
					Role:    RoleAssistant,
					Content: responseContent,
				},
				FinishReason: "stop",
			},
		},
		Usage: &Usage{
			PromptTokens:     m.estimateTokens(req),
			CompletionTokens: len(responseContent) / 4,
			TotalTokens:      m.estimateTokens(req) + len(responseContent)/4,
		},
		SystemFingerprint: "mock-fp",
	}, nil
}

// Requests returns a copy of every request received so far.
func (m *MockClient) Requests() []*ChatCompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*ChatCompletionRequest(nil), m.requests...)
}

// generateMockResponse generates a mock response based on the request.
func (m *MockClient) generateMockResponse(req *ChatCompletionRequest) string {
	// Get the last user message
	var lastUserMessage string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == RoleUser {
			lastUserMessage = req.Messages[i].Content
			break
		}
	}

	// Transcript prompts carry the newest turn on the last "Human:" line.
	lines := strings.Split(lastUserMessage, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.HasPrefix(lines[i], "Human: ") {
			lastUserMessage = strings.TrimPrefix(lines[i], "Human: ")
			break
		}
	}

	if strings.TrimSpace(lastUserMessage) == "" {
		return "[MOCK] This is a mock response from the LLM client."
	}

	return fmt.Sprintf("[MOCK] Received your message: %q. This is a mock response.", truncate(lastUserMessage, 100))
}

// estimateTokens provides a rough token count estimate.
func (m *MockClient) estimateTokens(req *ChatCompletionRequest) int {
	total := 0
	for _, msg := range req.Messages {
		total += len(msg.Content) / 4
	}
	return total
}

// truncate truncates a string to the given length.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

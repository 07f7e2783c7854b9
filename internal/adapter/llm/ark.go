package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
)

// ArkConfig configures a Volcengine Ark chat model.
type ArkConfig struct {
	BaseURL     string
	Region      string
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	Temperature *float32
	TopP        *float32
	MaxTokens   *int
}

// NewArkClient builds an Ark chat model and wraps it as an LLMClient.
func NewArkClient(ctx context.Context, cfg ArkConfig) (*EinoClient, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("ark model is required")
	}
	if cfg.APIKey == "" && (cfg.AccessKey == "" || cfg.SecretKey == "") {
		return nil, fmt.Errorf("ark requires an api key or an access/secret key pair")
	}

	chatModel, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:     cfg.BaseURL,
		Region:      cfg.Region,
		APIKey:      cfg.APIKey,
		AccessKey:   cfg.AccessKey,
		SecretKey:   cfg.SecretKey,
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ark chat model: %w", err)
	}
	return NewEinoClient(chatModel, cfg.Model), nil
}

// EinoClient adapts an eino chat model to LLMClient.
type EinoClient struct {
	chatModel model.BaseChatModel
	modelName string
}

// NewEinoClient wraps chatModel. modelName is reported back in responses.
func NewEinoClient(chatModel model.BaseChatModel, modelName string) *EinoClient {
	return &EinoClient{chatModel: chatModel, modelName: modelName}
}

// CreateChatCompletion converts the request to eino messages and calls Generate.
func (c *EinoClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	messages := make([]*schema.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, toSchemaMessage(m))
	}

	var opts []model.Option
	if req.Temperature != nil {
		opts = append(opts, model.WithTemperature(float32(*req.Temperature)))
	}
	if req.TopP != nil {
		opts = append(opts, model.WithTopP(float32(*req.TopP)))
	}
	if req.MaxTokens != nil {
		opts = append(opts, model.WithMaxTokens(*req.MaxTokens))
	}

	out, err := c.chatModel.Generate(ctx, messages, opts...)
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}
	if out == nil {
		return nil, fmt.Errorf("generation returned no message")
	}

	resp := &ChatCompletionResponse{
		ID:      "chatcmpl-" + uuid.NewString(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   c.modelName,
		Choices: []Choice{{
			Index:   0,
			Message: &ChatMessage{Role: RoleAssistant, Content: out.Content},
		}},
	}
	if out.ResponseMeta != nil {
		resp.Choices[0].FinishReason = out.ResponseMeta.FinishReason
		if u := out.ResponseMeta.Usage; u != nil {
			resp.Usage = &Usage{
				PromptTokens:     u.PromptTokens,
				CompletionTokens: u.CompletionTokens,
				TotalTokens:      u.TotalTokens,
			}
		}
	}
	return resp, nil
}

func toSchemaMessage(m ChatMessage) *schema.Message {
	switch m.Role {
	case RoleSystem:
		return schema.SystemMessage(m.Content)
	case RoleAssistant:
		return schema.AssistantMessage(m.Content, nil)
	default:
		return schema.UserMessage(m.Content)
	}
}

package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// EnvChatMode is the environment variable name for mode selection.
	EnvChatMode = "CHAT_MODE"
	// ModeMock indicates mock mode should be used.
	ModeMock = "MOCK"
)

// Supported providers.
const (
	ProviderOpenAI = "openai"
	ProviderArk    = "ark"
	ProviderMock   = "mock"
)

// Options selects and configures a backend.
type Options struct {
	Provider string
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	Ark      ArkConfig
}

// NewLLMClient creates an LLM client for the configured provider.
// CHAT_MODE=MOCK forces the mock client regardless of provider.
func NewLLMClient(ctx context.Context, opts Options, log logrus.FieldLogger) (LLMClient, error) {
	if os.Getenv(EnvChatMode) == ModeMock {
		log.Info("CHAT_MODE=MOCK detected, using mock LLM client")
		return NewMockClient(), nil
	}

	switch strings.ToLower(opts.Provider) {
	case "", ProviderOpenAI:
		if opts.BaseURL == "" {
			return nil, fmt.Errorf("LLM_BASE_URL is required for provider %q", ProviderOpenAI)
		}
		log.WithField("base_url", opts.BaseURL).Info("using OpenAI-compatible LLM client")
		return NewClient(opts.BaseURL, opts.APIKey, opts.Timeout), nil
	case ProviderArk:
		log.WithFields(logrus.Fields{"model": opts.Ark.Model, "region": opts.Ark.Region}).Info("using Ark LLM client")
		return NewArkClient(ctx, opts.Ark)
	case ProviderMock:
		log.Info("using mock LLM client")
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", opts.Provider)
	}
}

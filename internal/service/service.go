// Package service implements the chat session orchestration.
package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/taleemedge/chatbot/internal/domain"
	"github.com/taleemedge/chatbot/internal/metrics"
	"github.com/taleemedge/chatbot/internal/repository"
	"github.com/taleemedge/chatbot/policy"
)

// Generator produces text for the chat pipeline. Implementations never fail;
// they fall back to fixed strings instead.
type Generator interface {
	GenerateReply(ctx context.Context, userMessage string, history []domain.Message, persona string) string
	GenerateTitle(ctx context.Context, firstMessage string) string
	Summarize(ctx context.Context, messages []domain.Message) string
}

// RetentionPolicy decides whether a session has grown past its advisory limit.
type RetentionPolicy interface {
	Evaluate(ctx context.Context, input policy.RetentionInput) (domain.PolicyDecision, string, error)
}

// ActivitySink receives fire-and-forget activity records.
type ActivitySink interface {
	Record(ctx context.Context, activity domain.Activity)
}

type Service struct {
	store    store.Store
	oracle   Generator
	policy   RetentionPolicy
	activity ActivitySink
	metrics  *metrics.Metrics
	log      logrus.FieldLogger
	now      func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithPolicy sets the retention policy. Without one every turn is allowed.
func WithPolicy(p RetentionPolicy) Option {
	return func(s *Service) { s.policy = p }
}

// WithActivitySink sets where activity records go.
func WithActivitySink(sink ActivitySink) Option {
	return func(s *Service) { s.activity = sink }
}

// WithMetrics sets the metrics collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(store store.Store, oracle Generator, log logrus.FieldLogger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		oracle: oracle,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Package policy evaluates the session retention policy with OPA.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
	"github.com/taleemedge/chatbot/internal/domain"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// RetentionInput is the document the policy is evaluated against.
type RetentionInput struct {
	MessageCount       int `json:"message_count"`
	MaxSessionMessages int `json:"max_session_messages"`
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.chat_policy.decision"),
		rego.Module("chat_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate checks the retention policy for a session that will hold
// input.MessageCount messages after the current turn.
// Returns: decision (allow, warn), reason, error.
func (e *Engine) Evaluate(ctx context.Context, input RetentionInput) (domain.PolicyDecision, string, error) {
	doc := map[string]interface{}{
		"message_count":        input.MessageCount,
		"max_session_messages": input.MaxSessionMessages,
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(doc))
	if err != nil {
		return "", "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		// The policy is expected to define a default.
		return domain.PolicyDecisionAllow, "default", nil
	}

	switch val := results[0].Expressions[0].Value.(type) {
	case string:
		return domain.PolicyDecision(val), "", nil
	case map[string]interface{}:
		decision, _ := val["decision"].(string)
		reason, _ := val["reason"].(string)
		if decision == "" {
			return domain.PolicyDecisionAllow, "missing decision", nil
		}
		return domain.PolicyDecision(decision), reason, nil
	}

	return domain.PolicyDecisionAllow, "unexpected return type", nil
}

// DefaultPolicy is the default policy content. The per-session limit is
// advisory: reaching it warns but never blocks a turn.
const DefaultPolicy = `
package chat_policy

default decision = {"decision": "allow", "reason": ""}

decision = {"decision": "warn", "reason": msg} {
	input.max_session_messages > 0
	input.message_count >= input.max_session_messages
	msg := sprintf("this conversation has reached %d messages, the configured limit is %d; consider starting a new chat", [input.message_count, input.max_session_messages])
}
`

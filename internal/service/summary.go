package service

import (
	"context"
	"fmt"

	"github.com/taleemedge/chatbot/internal/oracle"
)

// EmptySessionSummary is returned for sessions without messages.
const EmptySessionSummary = "No messages in this conversation yet."

// SummarizeSession summarizes an owned session.
func (s *Service) SummarizeSession(ctx context.Context, userID, sessionID string) (string, error) {
	session, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return "", err
	}
	messages, err := s.store.AllMessages(ctx, session.SessionID)
	if err != nil {
		return "", fmt.Errorf("failed to get messages: %w", err)
	}
	if len(messages) == 0 {
		return EmptySessionSummary, nil
	}
	return s.oracle.Summarize(oracle.WithSessionID(ctx, session.SessionID), messages), nil
}

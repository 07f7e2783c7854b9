package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/taleemedge/chatbot/internal/assembler"
	"github.com/taleemedge/chatbot/internal/domain"
	"github.com/taleemedge/chatbot/internal/metrics"
	"github.com/taleemedge/chatbot/internal/oracle"
	"github.com/taleemedge/chatbot/policy"
)

// MetadataSessionLimitReached marks a reply produced past the advisory limit.
const MetadataSessionLimitReached = "session_limit_reached"

func validateMessage(message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", domain.ErrEmptyMessage
	}
	if utf8.RuneCountInString(message) > domain.MaxMessageLength {
		return "", fmt.Errorf("%w: maximum is %d characters", domain.ErrMessageTooLong, domain.MaxMessageLength)
	}
	return message, nil
}

// SendMessage runs one conversational turn. Without a session id a new
// session is opened and titled from the message.
func (s *Service) SendMessage(ctx context.Context, userID string, req domain.SendMessageRequest) (*domain.SendMessageResponse, error) {
	text, err := validateMessage(req.Message)
	if err != nil {
		return nil, err
	}

	if req.SessionID != "" {
		session, err := s.ownedSession(ctx, userID, req.SessionID)
		if err != nil {
			return nil, err
		}
		return s.runTurn(ctx, session, false, text)
	}

	now := s.now()
	session := &domain.Session{
		SessionID: uuid.New().String(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
		IsActive:  true,
	}
	session.Title = s.oracle.GenerateTitle(oracle.WithSessionID(ctx, session.SessionID), text)

	resp, err := s.runTurn(ctx, session, true, text)
	if err != nil {
		return nil, err
	}
	s.recordActivity(ctx, userID, domain.ActivityTypeSessionCreated, "Started chat: "+session.Title, map[string]string{
		"session_id": session.SessionID,
	})
	return resp, nil
}

// runTurn generates a reply to text and commits both messages together with
// the session timestamp. When isNew is set the session row is inserted in the
// same transaction. Nothing is written unless the whole turn commits.
func (s *Service) runTurn(ctx context.Context, session *domain.Session, isNew bool, text string) (*domain.SendMessageResponse, error) {
	ctx = oracle.WithSessionID(ctx, session.SessionID)
	log := s.log.WithFields(logrus.Fields{"session_id": session.SessionID, "user_id": session.UserID})

	prefs, err := s.store.GetOrCreatePreferences(ctx, session.UserID)
	if err != nil {
		return nil, s.turnFailed(log, "load preferences", err)
	}

	var history []domain.Message
	var priorCount int
	if !isNew {
		history, err = s.store.RecentMessages(ctx, session.SessionID, assembler.HistoryLimit)
		if err != nil {
			return nil, s.turnFailed(log, "load history", err)
		}
		priorCount, err = s.store.CountMessages(ctx, session.SessionID)
		if err != nil {
			return nil, s.turnFailed(log, "count messages", err)
		}
	}

	userMsg := &domain.Message{
		MessageID: uuid.New().String(),
		SessionID: session.SessionID,
		Role:      domain.MessageRoleUser,
		Content:   text,
		CreatedAt: s.now(),
		Metadata:  map[string]interface{}{},
	}

	reply := s.oracle.GenerateReply(ctx, text, history, prefs.BotPersonality)

	replyAt := s.now()
	if !replyAt.After(userMsg.CreatedAt) {
		replyAt = userMsg.CreatedAt.Add(time.Microsecond)
	}
	botMsg := &domain.Message{
		MessageID: uuid.New().String(),
		SessionID: session.SessionID,
		Role:      domain.MessageRoleAssistant,
		Content:   reply,
		CreatedAt: replyAt,
		Metadata:  map[string]interface{}{},
	}

	resp := &domain.SendMessageResponse{
		SessionID:   session.SessionID,
		UserMessage: userMsg,
		BotResponse: botMsg,
	}

	if s.policy != nil {
		decision, reason, err := s.policy.Evaluate(ctx, policy.RetentionInput{
			MessageCount:       priorCount + 2,
			MaxSessionMessages: prefs.MaxSessionMessages,
		})
		if err != nil {
			// Advisory only; a broken policy never blocks a turn.
			log.WithError(err).Warn("retention policy evaluation failed")
		} else if decision == domain.PolicyDecisionWarn {
			botMsg.Metadata[MetadataSessionLimitReached] = true
			resp.Warning = reason
		}
	}

	turn := &domain.Turn{
		SessionID: session.SessionID,
		UserID:    session.UserID,
		User:      userMsg,
		Assistant: botMsg,
	}
	if isNew {
		turn.NewSession = session
	}
	if err := s.store.CommitTurn(ctx, turn); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			// Deleted while the reply was being generated.
			s.metrics.ObserveTurn(metrics.OutcomeError)
			return nil, err
		}
		return nil, s.turnFailed(log, "commit turn", err)
	}
	session.UpdatedAt = botMsg.CreatedAt

	s.metrics.ObserveTurn(metrics.OutcomeSuccess)
	s.recordActivity(ctx, session.UserID, domain.ActivityTypeMessageSent, "Sent chat message", map[string]string{
		"session_id": session.SessionID,
		"message_id": userMsg.MessageID,
	})
	return resp, nil
}

func (s *Service) turnFailed(log logrus.FieldLogger, step string, err error) error {
	s.metrics.ObserveTurn(metrics.OutcomeError)
	log.WithField("step", step).WithError(err).Error("send message failed")
	return fmt.Errorf("%w: %s: %v", domain.ErrProcessingFailed, step, err)
}

// ListMessages returns one page of an owned session's messages.
func (s *Service) ListMessages(ctx context.Context, userID, sessionID string, page, perPage int) (*domain.MessagePage, error) {
	session, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if perPage < 1 {
		perPage = domain.DefaultPageSize
	}
	result, err := s.store.ListMessages(ctx, session.SessionID, page, perPage)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	return result, nil
}

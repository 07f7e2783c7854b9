package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/taleemedge/chatbot/internal/domain"
	"github.com/taleemedge/chatbot/internal/oracle"
)

// CreateSessionResult separates the created session from the outcome of the
// optional first-message pipeline.
type CreateSessionResult struct {
	Session *domain.SessionDetail
	// EnrichmentErr is set when titling or the first turn failed. The session
	// itself was still created.
	EnrichmentErr error
}

func parseSessionID(id string) (string, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidSessionID, id)
	}
	return parsed.String(), nil
}

func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if utf8.RuneCountInString(title) > domain.MaxTitleLength {
		return "", fmt.Errorf("%w: maximum is %d characters", domain.ErrTitleTooLong, domain.MaxTitleLength)
	}
	return title, nil
}

// ListSessions returns the caller's active sessions, most recent first.
func (s *Service) ListSessions(ctx context.Context, userID string) ([]domain.SessionListItem, error) {
	sessions, err := s.store.ListSessions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// CreateSession creates a session and, when firstMessage is given, titles it
// from that message and runs the first turn. Only the initial insert can fail
// the call.
func (s *Service) CreateSession(ctx context.Context, userID string, req domain.CreateSessionRequest) (*CreateSessionResult, error) {
	title, err := normalizeTitle(req.Title)
	if err != nil {
		return nil, err
	}
	firstMessage := strings.TrimSpace(req.FirstMessage)
	if utf8.RuneCountInString(firstMessage) > domain.MaxMessageLength {
		return nil, fmt.Errorf("%w: maximum is %d characters", domain.ErrMessageTooLong, domain.MaxMessageLength)
	}

	now := s.now()
	session := &domain.Session{
		SessionID: uuid.New().String(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		IsActive:  true,
	}
	if session.Title == "" {
		session.Title = domain.DefaultSessionTitle
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.recordActivity(ctx, userID, domain.ActivityTypeSessionCreated, "Started chat: "+session.Title, map[string]string{
		"session_id": session.SessionID,
	})

	result := &CreateSessionResult{}
	if firstMessage != "" {
		result.EnrichmentErr = s.enrichNewSession(ctx, session, title == "", firstMessage)
		if result.EnrichmentErr != nil {
			s.log.WithField("session_id", session.SessionID).WithError(result.EnrichmentErr).
				Warn("first message pipeline failed, returning bare session")
		}
	}

	detail, err := s.sessionDetail(ctx, session)
	if err != nil {
		// The session exists; fall back to what we already know.
		s.log.WithField("session_id", session.SessionID).WithError(err).Warn("failed to load created session")
		detail = &domain.SessionDetail{Session: *session, Messages: []domain.Message{}}
	}
	result.Session = detail
	return result, nil
}

func (s *Service) enrichNewSession(ctx context.Context, session *domain.Session, generateTitle bool, firstMessage string) error {
	if generateTitle {
		title := s.oracle.GenerateTitle(oracle.WithSessionID(ctx, session.SessionID), firstMessage)
		updated, err := s.store.UpdateSessionTitle(ctx, session.SessionID, session.UserID, title)
		if err != nil {
			return fmt.Errorf("failed to set generated title: %w", err)
		}
		*session = *updated
	}

	if _, err := s.runTurn(ctx, session, false, firstMessage); err != nil {
		return err
	}
	refreshed, err := s.store.GetSession(ctx, session.SessionID, session.UserID)
	if err != nil {
		return fmt.Errorf("failed to reload session: %w", err)
	}
	*session = *refreshed
	return nil
}

// GetSession returns an owned, active session with its full history.
func (s *Service) GetSession(ctx context.Context, userID, sessionID string) (*domain.SessionDetail, error) {
	session, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	return s.sessionDetail(ctx, session)
}

// UpdateSession renames a session. A nil title leaves it unchanged; a blank
// one restores the default.
func (s *Service) UpdateSession(ctx context.Context, userID, sessionID string, req domain.UpdateSessionRequest) (*domain.SessionDetail, error) {
	session, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		title, err := normalizeTitle(*req.Title)
		if err != nil {
			return nil, err
		}
		if title == "" {
			title = domain.DefaultSessionTitle
		}
		session, err = s.store.UpdateSessionTitle(ctx, session.SessionID, userID, title)
		if err != nil {
			return nil, fmt.Errorf("failed to update session: %w", err)
		}
	}
	return s.sessionDetail(ctx, session)
}

// DeleteSession soft-deletes a session. Messages are retained.
func (s *Service) DeleteSession(ctx context.Context, userID, sessionID string) error {
	id, err := parseSessionID(sessionID)
	if err != nil {
		return err
	}
	if err := s.store.SoftDeleteSession(ctx, id, userID); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}
	s.recordActivity(ctx, userID, domain.ActivityTypeSessionDeleted, "Deleted chat session", map[string]string{
		"session_id": id,
	})
	return nil
}

// DeleteAllSessions soft-deletes every active session of the caller.
func (s *Service) DeleteAllSessions(ctx context.Context, userID string) (int64, error) {
	count, err := s.store.SoftDeleteAllSessions(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete sessions: %w", err)
	}
	if count > 0 {
		s.recordActivity(ctx, userID, domain.ActivityTypeSessionsCleared, fmt.Sprintf("Deleted %d chat sessions", count), map[string]int64{
			"deleted_count": count,
		})
	}
	return count, nil
}

func (s *Service) ownedSession(ctx context.Context, userID, sessionID string) (*domain.Session, error) {
	id, err := parseSessionID(sessionID)
	if err != nil {
		return nil, err
	}
	session, err := s.store.GetSession(ctx, id, userID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

func (s *Service) sessionDetail(ctx context.Context, session *domain.Session) (*domain.SessionDetail, error) {
	messages, err := s.store.AllMessages(ctx, session.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}

	detail := &domain.SessionDetail{
		Session:      *session,
		Messages:     messages,
		MessageCount: len(messages),
	}
	if n := len(messages); n > 0 {
		latest := messages[n-1]
		detail.LatestMessage = &domain.MessagePreview{
			Content:   domain.Preview(latest.Content, 100),
			Timestamp: latest.CreatedAt,
			Role:      latest.Role,
		}
	}
	return detail, nil
}

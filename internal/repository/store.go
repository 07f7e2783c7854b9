// Package store defines the storage interface and implementations.
package store

import (
	"context"

	"github.com/taleemedge/chatbot/internal/domain"
)

// Store defines the interface for data persistence.
//
// Session lookups are always scoped to an owner and to active sessions; a
// session that exists but belongs to someone else, or was soft-deleted, is
// reported as domain.ErrSessionNotFound.
type Store interface {
	// Session operations
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, sessionID, userID string) (*domain.Session, error)
	ListSessions(ctx context.Context, userID string) ([]domain.SessionListItem, error)
	UpdateSessionTitle(ctx context.Context, sessionID, userID, title string) (*domain.Session, error)
	SoftDeleteSession(ctx context.Context, sessionID, userID string) error
	SoftDeleteAllSessions(ctx context.Context, userID string) (int64, error)

	// Message operations
	AppendMessage(ctx context.Context, message *domain.Message) error
	ListMessages(ctx context.Context, sessionID string, page, pageSize int) (*domain.MessagePage, error)
	RecentMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error)
	AllMessages(ctx context.Context, sessionID string) ([]domain.Message, error)
	CountMessages(ctx context.Context, sessionID string) (int, error)
	LatestMessage(ctx context.Context, sessionID string) (*domain.Message, error)

	// CommitTurn persists a user message and its reply as one unit.
	CommitTurn(ctx context.Context, turn *domain.Turn) error

	// Preference operations
	GetOrCreatePreferences(ctx context.Context, userID string) (*domain.Preferences, error)
	UpdatePreferences(ctx context.Context, userID string, update domain.PreferencesUpdate) (*domain.Preferences, error)

	// Activity operations
	RecordActivity(ctx context.Context, activity *domain.Activity) error
	ListActivities(ctx context.Context, userID string, limit int) ([]domain.Activity, error)

	// Lifecycle
	Close() error
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/taleemedge/chatbot/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT 'New Chat',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			is_active INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id, is_active, updated_at)`,
		`CREATE TABLE IF NOT EXISTS messages (
			message_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			metadata TEXT,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS chat_preferences (
			user_id TEXT PRIMARY KEY,
			bot_name TEXT NOT NULL,
			bot_personality TEXT NOT NULL,
			language_preference TEXT NOT NULL,
			max_session_messages INTEGER NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS activities (
			activity_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			activity_type TEXT NOT NULL,
			description TEXT NOT NULL,
			ts INTEGER NOT NULL,
			payload TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_user ON activities(user_id, ts)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateSession creates a new session.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *domain.Session) error {
	return insertSession(ctx, s.db, session)
}

func insertSession(ctx context.Context, ex execer, session *domain.Session) error {
	_, err := ex.ExecContext(ctx,
		`INSERT INTO sessions (session_id, user_id, title, created_at, updated_at, is_active) VALUES (?, ?, ?, ?, ?, ?)`,
		session.SessionID, session.UserID, session.Title, session.CreatedAt, session.UpdatedAt, session.IsActive)
	return err
}

// GetSession retrieves an active session owned by userID.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID, userID string) (*domain.Session, error) {
	var session domain.Session
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, user_id, title, created_at, updated_at, is_active FROM sessions
		 WHERE session_id = ? AND user_id = ? AND is_active = 1`,
		sessionID, userID).Scan(&session.SessionID, &session.UserID, &session.Title, &session.CreatedAt, &session.UpdatedAt, &session.IsActive)
	if err == sql.ErrNoRows {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// ListSessions lists a user's active sessions, most recently updated first.
func (s *SQLiteStore) ListSessions(ctx context.Context, userID string) ([]domain.SessionListItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.session_id, s.title, s.created_at, s.updated_at,
		        (SELECT COUNT(*) FROM messages m WHERE m.session_id = s.session_id)
		 FROM sessions s
		 WHERE s.user_id = ? AND s.is_active = 1
		 ORDER BY s.updated_at DESC, s.rowid DESC`,
		userID)
	if err != nil {
		return nil, err
	}

	items := []domain.SessionListItem{}
	for rows.Next() {
		var item domain.SessionListItem
		if err := rows.Scan(&item.SessionID, &item.Title, &item.CreatedAt, &item.UpdatedAt, &item.MessageCount); err != nil {
			rows.Close()
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// Release the connection before issuing follow-up queries; in-memory
	// stores run on a single connection.
	rows.Close()

	for i := range items {
		if items[i].MessageCount == 0 {
			continue
		}
		latest, err := s.LatestMessage(ctx, items[i].SessionID)
		if err != nil {
			return nil, err
		}
		if latest != nil {
			items[i].LatestMessage = &domain.MessagePreview{
				Content:   domain.Preview(latest.Content, 50),
				Timestamp: latest.CreatedAt,
			}
		}
	}
	return items, nil
}

// UpdateSessionTitle renames an active session owned by userID.
func (s *SQLiteStore) UpdateSessionTitle(ctx context.Context, sessionID, userID, title string) (*domain.Session, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET title = ?, updated_at = ? WHERE session_id = ? AND user_id = ? AND is_active = 1`,
		title, time.Now().UTC(), sessionID, userID)
	if err != nil {
		return nil, err
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}
	return s.GetSession(ctx, sessionID, userID)
}

// SoftDeleteSession marks a session inactive. Its messages are retained.
func (s *SQLiteStore) SoftDeleteSession(ctx context.Context, sessionID, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET is_active = 0, updated_at = ? WHERE session_id = ? AND user_id = ? AND is_active = 1`,
		time.Now().UTC(), sessionID, userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// SoftDeleteAllSessions deactivates every active session of userID and
// returns how many were affected.
func (s *SQLiteStore) SoftDeleteAllSessions(ctx context.Context, userID string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET is_active = 0 WHERE user_id = ? AND is_active = 1`,
		userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// AppendMessage inserts a message and bumps the session's last activity.
func (s *SQLiteStore) AppendMessage(ctx context.Context, message *domain.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertMessage(ctx, tx, message); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET updated_at = ? WHERE session_id = ?`,
		message.CreatedAt, message.SessionID)
	if err != nil {
		return err
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	return tx.Commit()
}

func insertMessage(ctx context.Context, ex execer, message *domain.Message) error {
	if !message.Role.Valid() {
		return fmt.Errorf("invalid message role %q", message.Role)
	}
	metadata, err := json.Marshal(message.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	_, err = ex.ExecContext(ctx,
		`INSERT INTO messages (message_id, session_id, role, content, created_at, metadata) VALUES (?, ?, ?, ?, ?, ?)`,
		message.MessageID, message.SessionID, message.Role, message.Content, message.CreatedAt, string(metadata))
	return err
}

// CommitTurn writes the user message, the assistant reply and the session
// timestamp in a single transaction. For an existing session the owner and
// active flag are re-checked inside the transaction.
func (s *SQLiteStore) CommitTurn(ctx context.Context, turn *domain.Turn) error {
	if turn.User == nil || turn.Assistant == nil {
		return errors.New("turn requires both messages")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	touchedAt := turn.Assistant.CreatedAt
	if turn.NewSession != nil {
		turn.NewSession.UpdatedAt = touchedAt
		if err := insertSession(ctx, tx, turn.NewSession); err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
	} else {
		res, err := tx.ExecContext(ctx,
			`UPDATE sessions SET updated_at = ? WHERE session_id = ? AND user_id = ? AND is_active = 1`,
			touchedAt, turn.SessionID, turn.UserID)
		if err != nil {
			return err
		}
		if err := requireAffected(res); err != nil {
			return err
		}
	}

	if err := insertMessage(ctx, tx, turn.User); err != nil {
		return fmt.Errorf("failed to save user message: %w", err)
	}
	if err := insertMessage(ctx, tx, turn.Assistant); err != nil {
		return fmt.Errorf("failed to save assistant message: %w", err)
	}
	return tx.Commit()
}

const messageColumns = `message_id, session_id, role, content, created_at, metadata`

// ListMessages returns one page of a session's messages in ascending order.
// Out-of-range pages are clamped the way a paginator would: below 1 becomes
// the first page, past the end becomes the last page.
func (s *SQLiteStore) ListMessages(ctx context.Context, sessionID string, page, pageSize int) (*domain.MessagePage, error) {
	if pageSize < 1 {
		pageSize = domain.DefaultPageSize
	}
	total, err := s.CountMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	messages, err := s.queryMessages(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE session_id = ?
		 ORDER BY created_at ASC, rowid ASC LIMIT ? OFFSET ?`,
		sessionID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	return &domain.MessagePage{
		Messages: messages,
		Pagination: domain.Pagination{
			CurrentPage:   page,
			TotalPages:    totalPages,
			HasNext:       page < totalPages,
			HasPrevious:   page > 1,
			TotalMessages: total,
		},
	}, nil
}

// RecentMessages returns the most recent limit messages, oldest first.
func (s *SQLiteStore) RecentMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	messages, err := s.queryMessages(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE session_id = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		sessionID, limit)
	if err != nil {
		return nil, err
	}

	// Reverse to chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// AllMessages returns the full ordered history of a session.
func (s *SQLiteStore) AllMessages(ctx context.Context, sessionID string) ([]domain.Message, error) {
	return s.queryMessages(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE session_id = ? ORDER BY created_at ASC, rowid ASC`,
		sessionID)
}

// CountMessages counts the messages of a session.
func (s *SQLiteStore) CountMessages(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE session_id = ?`, sessionID).Scan(&count)
	return count, err
}

// LatestMessage returns the maximum-timestamp message, or nil for an empty session.
func (s *SQLiteStore) LatestMessage(ctx context.Context, sessionID string) (*domain.Message, error) {
	messages, err := s.queryMessages(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE session_id = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		sessionID)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, nil
	}
	return &messages[0], nil
}

func (s *SQLiteStore) queryMessages(ctx context.Context, query string, args ...interface{}) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var msg domain.Message
		var metadata sql.NullString
		if err := rows.Scan(&msg.MessageID, &msg.SessionID, &msg.Role, &msg.Content, &msg.CreatedAt, &metadata); err != nil {
			return nil, err
		}
		msg.Metadata = map[string]interface{}{}
		if metadata.Valid && metadata.String != "" && metadata.String != "null" {
			if err := json.Unmarshal([]byte(metadata.String), &msg.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode metadata of %s: %w", msg.MessageID, err)
			}
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// GetOrCreatePreferences returns the user's preferences, creating the
// default row on first access.
func (s *SQLiteStore) GetOrCreatePreferences(ctx context.Context, userID string) (*domain.Preferences, error) {
	if err := ensurePreferences(ctx, s.db, userID); err != nil {
		return nil, err
	}
	return scanPreferences(s.db.QueryRowContext(ctx, preferencesQuery, userID))
}

// UpdatePreferences applies a partial update, creating defaults first.
func (s *SQLiteStore) UpdatePreferences(ctx context.Context, userID string, update domain.PreferencesUpdate) (*domain.Preferences, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := ensurePreferences(ctx, tx, userID); err != nil {
		return nil, err
	}
	prefs, err := scanPreferences(tx.QueryRowContext(ctx, preferencesQuery, userID))
	if err != nil {
		return nil, err
	}

	update.Apply(prefs)
	prefs.UpdatedAt = time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`UPDATE chat_preferences SET bot_name = ?, bot_personality = ?, language_preference = ?, max_session_messages = ?, updated_at = ?
		 WHERE user_id = ?`,
		prefs.BotName, prefs.BotPersonality, prefs.LanguagePreference, prefs.MaxSessionMessages, prefs.UpdatedAt, userID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return prefs, nil
}

const preferencesQuery = `SELECT user_id, bot_name, bot_personality, language_preference, max_session_messages, created_at, updated_at
	FROM chat_preferences WHERE user_id = ?`

func ensurePreferences(ctx context.Context, ex execer, userID string) error {
	d := domain.DefaultPreferences(userID, time.Now().UTC())
	_, err := ex.ExecContext(ctx,
		`INSERT OR IGNORE INTO chat_preferences (user_id, bot_name, bot_personality, language_preference, max_session_messages, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.UserID, d.BotName, d.BotPersonality, d.LanguagePreference, d.MaxSessionMessages, d.CreatedAt, d.UpdatedAt)
	return err
}

func scanPreferences(row *sql.Row) (*domain.Preferences, error) {
	var p domain.Preferences
	if err := row.Scan(&p.UserID, &p.BotName, &p.BotPersonality, &p.LanguagePreference, &p.MaxSessionMessages, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// RecordActivity stores an activity record.
func (s *SQLiteStore) RecordActivity(ctx context.Context, activity *domain.Activity) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activities (activity_id, user_id, activity_type, description, ts, payload) VALUES (?, ?, ?, ?, ?, ?)`,
		activity.ActivityID, activity.UserID, activity.Type, activity.Description, activity.Ts, nullStringBytes(activity.Payload))
	return err
}

// ListActivities returns the latest activities of a user, newest first.
func (s *SQLiteStore) ListActivities(ctx context.Context, userID string, limit int) ([]domain.Activity, error) {
	query := `SELECT activity_id, user_id, activity_type, description, ts, payload FROM activities WHERE user_id = ? ORDER BY ts DESC, rowid DESC`
	args := []interface{}{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []domain.Activity
	for rows.Next() {
		var a domain.Activity
		var payload sql.NullString
		if err := rows.Scan(&a.ActivityID, &a.UserID, &a.Type, &a.Description, &a.Ts, &payload); err != nil {
			return nil, err
		}
		if payload.Valid {
			a.Payload = json.RawMessage(payload.String)
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func nullStringBytes(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

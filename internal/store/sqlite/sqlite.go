package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/wirerelay/internal/store"
)

//go:embed schema.sql
var schema string

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens the SQLite database at dbPath and applies the schema.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, ApplySchema)
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to seed or reshape the database.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; ":memory:" requires it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// ApplySchema creates the tables used by the store if they are missing.
func ApplySchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveMessage persists a message to storage.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	query := `
		INSERT INTO messages (sender, recipient, body, created_at)
		VALUES (?, ?, ?, ?)
	`
	var recipient sql.NullString
	if msg.Recipient != "" {
		recipient = sql.NullString{String: msg.Recipient, Valid: true}
	}

	result, err := s.db.ExecContext(ctx, query, msg.Sender, recipient, msg.Body, msg.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	msg.ID = id
	return nil
}

// ListConversation retrieves the direct messages between two users.
func (s *SQLiteStore) ListConversation(ctx context.Context, user1, user2 string, limit int) ([]*store.Message, error) {
	var query string
	var args []interface{}

	if limit > 0 {
		// Newest N, flipped back to chronological order below.
		query = `
			SELECT id, sender, recipient, body, created_at
			FROM messages
			WHERE (sender = ? AND recipient = ?) OR (sender = ? AND recipient = ?)
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		`
		args = []interface{}{user1, user2, user2, user1, limit}
	} else {
		query = `
			SELECT id, sender, recipient, body, created_at
			FROM messages
			WHERE (sender = ? AND recipient = ?) OR (sender = ? AND recipient = ?)
			ORDER BY created_at ASC, id ASC
		`
		args = []interface{}{user1, user2, user2, user1}
	}

	messages, err := s.queryMessages(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if limit > 0 {
		reverse(messages)
	}
	return messages, nil
}

// ListBroadcasts retrieves the most recent broadcast messages.
func (s *SQLiteStore) ListBroadcasts(ctx context.Context, limit int) ([]*store.Message, error) {
	if limit <= 0 {
		return []*store.Message{}, nil
	}

	query := `
		SELECT id, sender, recipient, body, created_at
		FROM messages
		WHERE recipient IS NULL
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	messages, err := s.queryMessages(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	reverse(messages)
	return messages, nil
}

func (s *SQLiteStore) queryMessages(ctx context.Context, query string, args ...interface{}) ([]*store.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*store.Message, 0)
	for rows.Next() {
		var (
			msg       store.Message
			recipient sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&msg.ID, &msg.Sender, &recipient, &msg.Body, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if recipient.Valid {
			msg.Recipient = recipient.String
		}
		msg.CreatedAt = time.Unix(0, createdAt).UTC()
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}

func reverse(messages []*store.Message) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}

// Ensure SQLiteStore implements store.Store
var _ store.Store = (*SQLiteStore)(nil)

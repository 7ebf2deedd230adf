package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vovakirdan/wirechat-relay/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ store.Store = (*SQLiteStore)(nil)

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, Migrate)
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply schema against an in-memory database.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps ":memory:" shared.
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

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser creates a new user.
func (s *SQLiteStore) CreateUser(ctx context.Context, name, avatarURL, passwordHash string) (*store.User, error) {
	query := `
		INSERT INTO users (name, avatar_url, password_hash)
		VALUES (?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, name, avatarURL, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `
		SELECT id, name, avatar_url, password_hash, created_at
		FROM users
		WHERE id = ?
	`
	var user store.User
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.AvatarURL,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// ==== ConversationStore implementation ====

const conversationColumns = `id, initiator_id, responder_id, pair_key, created_at, updated_at`

func scanConversation(row interface{ Scan(...any) error }) (*store.Conversation, error) {
	var c store.Conversation
	if err := row.Scan(&c.ID, &c.InitiatorID, &c.ResponderID, &c.PairKey, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// FindConversation looks up the conversation for the unordered pair.
func (s *SQLiteStore) FindConversation(ctx context.Context, a, b int64) (*store.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE pair_key = ?`
	conv, err := scanConversation(s.db.QueryRowContext(ctx, query, store.PairKey(a, b)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("conversation %s: %w", store.PairKey(a, b), store.ErrNotFound)
		}
		return nil, fmt.Errorf("query conversation: %w", err)
	}
	return conv, nil
}

// FindOrCreateConversation returns the pair's conversation, inserting it if missing.
// The UNIQUE pair_key makes the insert a no-op for a losing concurrent creator.
func (s *SQLiteStore) FindOrCreateConversation(ctx context.Context, a, b int64) (*store.Conversation, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO conversations (initiator_id, responder_id, pair_key, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(pair_key) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, a, b, store.PairKey(a, b), now, now); err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}
	return s.FindConversation(ctx, a, b)
}

// ListConversations lists conversations involving userID, most recently updated first.
func (s *SQLiteStore) ListConversations(ctx context.Context, userID int64) ([]*store.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE initiator_id = ? OR responder_id = ?
		ORDER BY updated_at DESC, id DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var convs []*store.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		convs = append(convs, conv)
	}

	return convs, rows.Err()
}

// AppendMessage persists msg and bumps the conversation's updated_at in one transaction.
func (s *SQLiteStore) AppendMessage(ctx context.Context, conversationID int64, msg *store.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO messages (conversation_id, sender_id, text, image_url, video_url, seen, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)
	`, conversationID, msg.SenderID, msg.Text, msg.ImageURL, msg.VideoURL, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	updated, err := tx.ExecContext(ctx, `UPDATE conversations SET updated_at = ? WHERE id = ?`, msg.CreatedAt, conversationID)
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	if n, _ := updated.RowsAffected(); n == 0 {
		return fmt.Errorf("conversation %d: %w", conversationID, store.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	msg.ID = id
	msg.ConversationID = conversationID
	msg.Seen = false
	return nil
}

const messageColumns = `id, conversation_id, sender_id, text, image_url, video_url, seen, created_at`

func scanMessage(row interface{ Scan(...any) error }) (*store.Message, error) {
	var m store.Message
	if err := row.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Text, &m.ImageURL, &m.VideoURL, &m.Seen, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMessages returns the conversation's messages in append order.
func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID int64) ([]*store.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE conversation_id = ? ORDER BY id ASC`
	rows, err := s.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*store.Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

// LastMessage returns the most recent message of the conversation.
func (s *SQLiteStore) LastMessage(ctx context.Context, conversationID int64) (*store.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE conversation_id = ? ORDER BY id DESC LIMIT 1`
	msg, err := scanMessage(s.db.QueryRowContext(ctx, query, conversationID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("last message of %d: %w", conversationID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query last message: %w", err)
	}
	return msg, nil
}

// CountUnseen counts unseen messages sent by senderID.
func (s *SQLiteStore) CountUnseen(ctx context.Context, conversationID, senderID int64) (int, error) {
	query := `SELECT COUNT(*) FROM messages WHERE conversation_id = ? AND sender_id = ? AND seen = 0`
	var n int
	if err := s.db.QueryRowContext(ctx, query, conversationID, senderID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count unseen: %w", err)
	}
	return n, nil
}

// MarkSeen flips senderID's unseen messages to seen. Already-seen rows are untouched.
func (s *SQLiteStore) MarkSeen(ctx context.Context, conversationID, senderID int64) (int64, error) {
	query := `UPDATE messages SET seen = 1 WHERE conversation_id = ? AND sender_id = ? AND seen = 0`
	result, err := s.db.ExecContext(ctx, query, conversationID, senderID)
	if err != nil {
		return 0, fmt.Errorf("mark seen: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

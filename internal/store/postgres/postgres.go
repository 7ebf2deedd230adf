package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vovakirdan/wirechat-relay/internal/store"
)

// Schema is the relay's PostgreSQL schema. Statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id            BIGSERIAL PRIMARY KEY,
	name          TEXT NOT NULL,
	avatar_url    TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS conversations (
	id           BIGSERIAL PRIMARY KEY,
	initiator_id BIGINT NOT NULL REFERENCES users(id),
	responder_id BIGINT NOT NULL REFERENCES users(id),
	pair_key     TEXT NOT NULL UNIQUE,
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id              BIGSERIAL PRIMARY KEY,
	conversation_id BIGINT NOT NULL REFERENCES conversations(id),
	sender_id       BIGINT NOT NULL REFERENCES users(id),
	text            TEXT NOT NULL DEFAULT '',
	image_url       TEXT NOT NULL DEFAULT '',
	video_url       TEXT NOT NULL DEFAULT '',
	seen            BOOLEAN NOT NULL DEFAULT false,
	created_at      TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conversations_initiator ON conversations(initiator_id, updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_conversations_responder ON conversations(responder_id, updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, id);
CREATE INDEX IF NOT EXISTS idx_messages_unseen ON messages(conversation_id, sender_id) WHERE NOT seen;
`

// PostgresStore implements store.Store on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*PostgresStore)(nil)

// New connects to dsn, verifies the connection and applies the schema.
func New(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	if cfg.MaxConns == 0 {
		cfg.MaxConns = 8
	}
	if cfg.MaxConnIdleTime == 0 {
		cfg.MaxConnIdleTime = 5 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: new pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, Schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: apply schema: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, name, avatarURL, passwordHash string) (*store.User, error) {
	u := &store.User{}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (name, avatar_url, password_hash) VALUES ($1, $2, $3)
		 RETURNING id, name, avatar_url, password_hash, created_at`,
		name, avatarURL, passwordHash,
	).Scan(&u.ID, &u.Name, &u.AvatarURL, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("postgres.CreateUser: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	u := &store.User{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, avatar_url, password_hash, created_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Name, &u.AvatarURL, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres.GetUserByID: %w", err)
	}
	return u, nil
}

const conversationColumns = `id, initiator_id, responder_id, pair_key, created_at, updated_at`

func scanConversation(row pgx.Row) (*store.Conversation, error) {
	c := &store.Conversation{}
	if err := row.Scan(&c.ID, &c.InitiatorID, &c.ResponderID, &c.PairKey, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *PostgresStore) FindConversation(ctx context.Context, a, b int64) (*store.Conversation, error) {
	key := store.PairKey(a, b)
	conv, err := scanConversation(s.pool.QueryRow(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE pair_key = $1`, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("conversation %s: %w", key, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres.FindConversation: %w", err)
	}
	return conv, nil
}

func (s *PostgresStore) FindOrCreateConversation(ctx context.Context, a, b int64) (*store.Conversation, error) {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO conversations (initiator_id, responder_id, pair_key, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $4) ON CONFLICT (pair_key) DO NOTHING`,
		a, b, store.PairKey(a, b), now,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres.FindOrCreateConversation: %w", err)
	}
	return s.FindConversation(ctx, a, b)
}

func (s *PostgresStore) ListConversations(ctx context.Context, userID int64) ([]*store.Conversation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+conversationColumns+` FROM conversations
		 WHERE initiator_id = $1 OR responder_id = $1
		 ORDER BY updated_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres.ListConversations: %w", err)
	}
	defer rows.Close()

	var convs []*store.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres.ListConversations scan: %w", err)
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

func (s *PostgresStore) AppendMessage(ctx context.Context, conversationID int64, msg *store.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres.AppendMessage begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO messages (conversation_id, sender_id, text, image_url, video_url, seen, created_at)
		 VALUES ($1, $2, $3, $4, $5, false, $6) RETURNING id`,
		conversationID, msg.SenderID, msg.Text, msg.ImageURL, msg.VideoURL, msg.CreatedAt,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("postgres.AppendMessage insert: %w", err)
	}

	tag, err := tx.Exec(ctx, `UPDATE conversations SET updated_at = $1 WHERE id = $2`, msg.CreatedAt, conversationID)
	if err != nil {
		return fmt.Errorf("postgres.AppendMessage touch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("conversation %d: %w", conversationID, store.ErrNotFound)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres.AppendMessage commit: %w", err)
	}

	msg.ID = id
	msg.ConversationID = conversationID
	msg.Seen = false
	return nil
}

const messageColumns = `id, conversation_id, sender_id, text, image_url, video_url, seen, created_at`

func scanMessage(row pgx.Row) (*store.Message, error) {
	m := &store.Message{}
	if err := row.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Text, &m.ImageURL, &m.VideoURL, &m.Seen, &m.CreatedAt); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *PostgresStore) ListMessages(ctx context.Context, conversationID int64) ([]*store.Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE conversation_id = $1 ORDER BY id ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("postgres.ListMessages: %w", err)
	}
	defer rows.Close()

	messages := make([]*store.Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres.ListMessages scan: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (s *PostgresStore) LastMessage(ctx context.Context, conversationID int64) (*store.Message, error) {
	msg, err := scanMessage(s.pool.QueryRow(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE conversation_id = $1 ORDER BY id DESC LIMIT 1`, conversationID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("last message of %d: %w", conversationID, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres.LastMessage: %w", err)
	}
	return msg, nil
}

func (s *PostgresStore) CountUnseen(ctx context.Context, conversationID, senderID int64) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE conversation_id = $1 AND sender_id = $2 AND NOT seen`,
		conversationID, senderID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres.CountUnseen: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) MarkSeen(ctx context.Context, conversationID, senderID int64) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE messages SET seen = true WHERE conversation_id = $1 AND sender_id = $2 AND NOT seen`,
		conversationID, senderID,
	)
	if err != nil {
		return 0, fmt.Errorf("postgres.MarkSeen: %w", err)
	}
	return tag.RowsAffected(), nil
}

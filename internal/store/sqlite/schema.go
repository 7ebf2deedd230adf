package sqlite

import (
	"database/sql"
	"fmt"
)

// Schema is the relay's SQLite schema. Statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	name          TEXT NOT NULL,
	avatar_url    TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS conversations (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	initiator_id INTEGER NOT NULL,
	responder_id INTEGER NOT NULL,
	pair_key     TEXT NOT NULL UNIQUE,
	created_at   DATETIME NOT NULL,
	updated_at   DATETIME NOT NULL,
	FOREIGN KEY (initiator_id) REFERENCES users(id),
	FOREIGN KEY (responder_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS messages (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id INTEGER NOT NULL,
	sender_id       INTEGER NOT NULL,
	text            TEXT NOT NULL DEFAULT '',
	image_url       TEXT NOT NULL DEFAULT '',
	video_url       TEXT NOT NULL DEFAULT '',
	seen            BOOLEAN NOT NULL DEFAULT 0,
	created_at      DATETIME NOT NULL,
	FOREIGN KEY (conversation_id) REFERENCES conversations(id),
	FOREIGN KEY (sender_id) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_conversations_initiator ON conversations(initiator_id, updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_conversations_responder ON conversations(responder_id, updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, id);
CREATE INDEX IF NOT EXISTS idx_messages_unseen ON messages(conversation_id, sender_id, seen);
`

// Migrate applies Schema to db.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

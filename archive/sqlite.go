package archive

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/raciswarm/raciswarm/core"
)

// SQLiteStore is a durable archive backed by an SQLite database. WAL mode is
// enabled so concurrent readers do not block the archival writer.
type SQLiteStore struct {
	conn *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id         TEXT PRIMARY KEY,
	swarm_name TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	state      TEXT NOT NULL,
	created    TIMESTAMP NOT NULL,
	closed_at  TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS envelopes (
	conversation_id    TEXT NOT NULL,
	sequence_no        INTEGER NOT NULL,
	sender_id          TEXT NOT NULL,
	recipient_id       TEXT NOT NULL,
	pending_user_reply INTEGER,
	content            TEXT NOT NULL,
	ts                 TIMESTAMP NOT NULL,
	late               INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (conversation_id, sequence_no, late)
);
CREATE TABLE IF NOT EXISTS fragments (
	conversation_id TEXT NOT NULL,
	position        INTEGER NOT NULL,
	sequence_no     INTEGER NOT NULL,
	sender          TEXT NOT NULL,
	content         TEXT NOT NULL,
	summary         INTEGER NOT NULL,
	PRIMARY KEY (conversation_id, position)
);
`

// OpenSQLite opens (and if needed initializes) an archive database at path,
// creating parent directories.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive database: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("apply archive schema: %w", err)
	}
	return &SQLiteStore{conn: conn}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error { return s.conn.Close() }

// Archive implements Store.
func (s *SQLiteStore) Archive(rec Record) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin archive tx: %w", err)
	}
	defer tx.Rollback()

	c := rec.Conversation
	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO conversations (id, swarm_name, user_id, state, created, closed_at) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.SwarmName, c.UserID, c.State.String(), c.Created, rec.ClosedAt,
	); err != nil {
		return fmt.Errorf("archive conversation %s: %w", c.ID, err)
	}
	for _, env := range c.Envelopes {
		if err := insertEnvelope(tx, env, false); err != nil {
			return err
		}
	}
	for i, f := range rec.Fragments {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO fragments (conversation_id, position, sequence_no, sender, content, summary) VALUES (?, ?, ?, ?, ?, ?)`,
			c.ID, i, f.SequenceNo, f.Sender, f.Content, f.Summary,
		); err != nil {
			return fmt.Errorf("archive fragment %d of %s: %w", i, c.ID, err)
		}
	}
	return tx.Commit()
}

// AppendLate implements Store.
func (s *SQLiteStore) AppendLate(conversationID string, env core.Envelope) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin late-append tx: %w", err)
	}
	defer tx.Rollback()
	if err := insertEnvelope(tx, env, true); err != nil {
		return err
	}
	return tx.Commit()
}

func insertEnvelope(tx *sql.Tx, env core.Envelope, late bool) error {
	var pending any
	if env.PendingUserReply != nil {
		pending = *env.PendingUserReply
	}
	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO envelopes (conversation_id, sequence_no, sender_id, recipient_id, pending_user_reply, content, ts, late) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		env.ConversationID, env.SequenceNo, env.SenderID, env.RecipientID, pending, env.Content, env.Timestamp, late,
	); err != nil {
		return fmt.Errorf("archive envelope %d of %s: %w", env.SequenceNo, env.ConversationID, err)
	}
	return nil
}

// Get implements Store.
func (s *SQLiteStore) Get(conversationID string) (Record, error) {
	var rec Record
	var state string
	err := s.conn.QueryRow(
		`SELECT id, swarm_name, user_id, state, created, closed_at FROM conversations WHERE id = ?`,
		conversationID,
	).Scan(&rec.Conversation.ID, &rec.Conversation.SwarmName, &rec.Conversation.UserID, &state, &rec.Conversation.Created, &rec.ClosedAt)
	if err == sql.ErrNoRows {
		return Record{}, fmt.Errorf("conversation %s: %w", conversationID, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("load conversation %s: %w", conversationID, err)
	}
	rec.Conversation.State = core.StateClosed

	rows, err := s.conn.Query(
		`SELECT sequence_no, sender_id, recipient_id, pending_user_reply, content, ts FROM envelopes WHERE conversation_id = ? AND late = 0 ORDER BY sequence_no`,
		conversationID,
	)
	if err != nil {
		return Record{}, fmt.Errorf("load envelopes of %s: %w", conversationID, err)
	}
	defer rows.Close()
	for rows.Next() {
		env := core.Envelope{ConversationID: conversationID}
		var pending sql.NullBool
		var ts time.Time
		if err := rows.Scan(&env.SequenceNo, &env.SenderID, &env.RecipientID, &pending, &env.Content, &ts); err != nil {
			return Record{}, fmt.Errorf("scan envelope of %s: %w", conversationID, err)
		}
		env.Timestamp = ts
		if pending.Valid {
			v := pending.Bool
			env.PendingUserReply = &v
		}
		rec.Conversation.Envelopes = append(rec.Conversation.Envelopes, env)
	}
	return rec, rows.Err()
}

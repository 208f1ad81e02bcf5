// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package conversation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Senchy071/Meton-sub000/pkg/config"
	"github.com/Senchy071/Meton-sub000/pkg/utils"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

var ErrSessionNotFound = errors.New("session not found")

// Session is a persisted conversation.
type Session struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// Store persists sessions and their messages in a SQL database. MySQL DSNs
// need parseTime=true.
type Store struct {
	db      *sql.DB
	dialect string
}

var schemas = map[string][]string{
	"sqlite3": {
		`CREATE TABLE IF NOT EXISTS sessions (
    id VARCHAR(64) PRIMARY KEY,
    title TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS conversation_messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id VARCHAR(64) NOT NULL,
    role VARCHAR(32) NOT NULL,
    content TEXT NOT NULL,
    sequence_num INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_conversation_messages_session ON conversation_messages(session_id, sequence_num)`,
	},
	"postgres": {
		`CREATE TABLE IF NOT EXISTS sessions (
    id VARCHAR(64) PRIMARY KEY,
    title TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS conversation_messages (
    id SERIAL PRIMARY KEY,
    session_id VARCHAR(64) NOT NULL,
    role VARCHAR(32) NOT NULL,
    content TEXT NOT NULL,
    sequence_num BIGINT NOT NULL,
    created_at TIMESTAMP NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_conversation_messages_session ON conversation_messages(session_id, sequence_num)`,
	},
	"mysql": {
		`CREATE TABLE IF NOT EXISTS sessions (
    id VARCHAR(64) PRIMARY KEY,
    title TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS conversation_messages (
    id BIGINT PRIMARY KEY AUTO_INCREMENT,
    session_id VARCHAR(64) NOT NULL,
    role VARCHAR(32) NOT NULL,
    content MEDIUMTEXT NOT NULL,
    sequence_num BIGINT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    INDEX idx_conversation_messages_session (session_id, sequence_num)
)`,
	},
}

// OpenStore opens the database named by cfg and prepares the schema.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (*Store, error) {
	if cfg.Driver == "sqlite3" {
		if err := utils.EnsureParentDir(cfg.DSN); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.Driver == "sqlite3" {
		db.SetMaxOpenConns(1)
	}
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", cfg.Driver, err)
	}

	store, err := NewStore(ctx, db, cfg.Driver)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewStore wraps an open database. dialect is sqlite3, postgres or mysql.
func NewStore(ctx context.Context, db *sql.DB, dialect string) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	statements, ok := schemas[dialect]
	if !ok {
		return nil, fmt.Errorf("unsupported dialect: %s (supported: sqlite3, postgres, mysql)", dialect)
	}

	s := &Store{db: db, dialect: dialect}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return s, nil
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *Store) rebind(query string) string {
	if s.dialect != "postgres" {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// CreateSession starts a new session with a generated id.
func (s *Store) CreateSession(ctx context.Context, title string) (Session, error) {
	now := time.Now().UTC()
	session := Session{ID: uuid.NewString(), Title: title, CreatedAt: now, UpdatedAt: now}

	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO sessions (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`),
		session.ID, session.Title, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return Session{}, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// AppendMessage stores msg as the next message of the session.
func (s *Store) AppendMessage(ctx context.Context, sessionID string, msg Message) (err error) {
	if sessionID == "" {
		return fmt.Errorf("sessionID cannot be empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var exists int
	err = tx.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM sessions WHERE id = ?`), sessionID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to look up session: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	var seq int64
	err = tx.QueryRowContext(ctx, s.rebind(`SELECT COALESCE(MAX(sequence_num), 0) FROM conversation_messages WHERE session_id = ?`), sessionID).Scan(&seq)
	if err != nil {
		return fmt.Errorf("failed to get sequence number: %w", err)
	}

	created := msg.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	created = created.UTC()

	_, err = tx.ExecContext(ctx, s.rebind(`INSERT INTO conversation_messages (session_id, role, content, sequence_num, created_at) VALUES (?, ?, ?, ?, ?)`),
		sessionID, msg.Role, msg.Content, seq+1, created)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	_, err = tx.ExecContext(ctx, s.rebind(`UPDATE sessions SET updated_at = ? WHERE id = ?`), created, sessionID)
	if err != nil {
		return fmt.Errorf("failed to update session timestamp: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Messages returns the last limit messages of a session in order. A limit
// of zero returns all of them.
func (s *Store) Messages(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	query := `SELECT role, content, created_at FROM conversation_messages WHERE session_id = ? ORDER BY sequence_num ASC`
	args := []any{sessionID}
	if limit > 0 {
		query = `SELECT role, content, created_at FROM (
    SELECT role, content, created_at, sequence_num FROM conversation_messages
    WHERE session_id = ? ORDER BY sequence_num DESC LIMIT ?
) recent ORDER BY sequence_num ASC`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// GetSession returns one session with its message count.
func (s *Store) GetSession(ctx context.Context, id string) (Session, error) {
	var sess Session
	err := s.db.QueryRowContext(ctx, s.rebind(`
SELECT s.id, s.title, s.created_at, s.updated_at, COUNT(m.id)
FROM sessions s LEFT JOIN conversation_messages m ON m.session_id = s.id
WHERE s.id = ?
GROUP BY s.id, s.title, s.created_at, s.updated_at`), id).
		Scan(&sess.ID, &sess.Title, &sess.CreatedAt, &sess.UpdatedAt, &sess.MessageCount)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return Session{}, fmt.Errorf("failed to load session: %w", err)
	}
	return sess, nil
}

// ListSessions returns all sessions, most recently updated first.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT s.id, s.title, s.created_at, s.updated_at, COUNT(m.id)
FROM sessions s LEFT JOIN conversation_messages m ON m.session_id = s.id
GROUP BY s.id, s.title, s.created_at, s.updated_at
ORDER BY s.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.Title, &sess.CreatedAt, &sess.UpdatedAt, &sess.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// DeleteSession removes a session and its messages.
func (s *Store) DeleteSession(ctx context.Context, id string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, s.rebind(`DELETE FROM conversation_messages WHERE session_id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM sessions WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		return err
	}
	return tx.Commit()
}

func (s *Store) Close() error {
	return s.db.Close()
}

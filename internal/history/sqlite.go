package history

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/quocvuong92/ai-shell/internal/logging"
)

const createTranscriptsSQL = `
CREATE TABLE IF NOT EXISTS transcripts (
	id         TEXT PRIMARY KEY,
	messages   TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLiteStore keeps every transcript as one row of a SQLite database.
// A write is a single upsert, so readers see the old or the new transcript.
type SQLiteStore struct {
	db     *sql.DB
	logger *logging.Logger
}

// OpenSQLiteStore opens (or creates) the database at path
func OpenSQLiteStore(path string, logger *logging.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = logging.DefaultLogger
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: an in-memory database is per connection, and the CLI
	// has a single writer anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	if _, err := db.Exec(createTranscriptsSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create transcripts table: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Read loads the transcript of session id
func (s *SQLiteStore) Read(id string) []Message {
	var raw string
	err := s.db.QueryRow("SELECT messages FROM transcripts WHERE id = ?", id).Scan(&raw)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Error("Failed to read transcript", err, logging.Fields{"id": id})
		}
		return nil
	}

	var msgs []Message
	if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
		s.logger.Error("Corrupt transcript", err, logging.Fields{"id": id})
		return nil
	}
	return msgs
}

// Write replaces the transcript of session id
func (s *SQLiteStore) Write(id string, msgs []Message) error {
	if id == "" {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	if msgs == nil {
		msgs = []Message{}
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("failed to encode transcript %s: %w", id, err)
	}

	_, err = s.db.Exec(`
		INSERT INTO transcripts (id, messages, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET messages = excluded.messages, updated_at = excluded.updated_at`,
		id, string(data), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to write transcript %s: %w", id, err)
	}
	s.logger.Debug("Transcript written", logging.Fields{"id": id, "messages": len(msgs), "backend": "sqlite"})
	return nil
}

// Delete removes the transcript of session id
func (s *SQLiteStore) Delete(id string) error {
	if _, err := s.db.Exec("DELETE FROM transcripts WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete transcript %s: %w", id, err)
	}
	return nil
}

// Exists reports whether a row exists for session id
func (s *SQLiteStore) Exists(id string) bool {
	var one int
	err := s.db.QueryRow("SELECT 1 FROM transcripts WHERE id = ?", id).Scan(&one)
	return err == nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

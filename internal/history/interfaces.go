// Package history provides durable transcript storage for chat sessions.
//
// A transcript is the ordered list of messages of one session. It is both
// the persisted log and the exact payload replayed to the model on every
// turn, so stores always read and write it whole.
package history

import (
	"fmt"
	"path/filepath"

	"github.com/quocvuong92/ai-shell/internal/constants"
	"github.com/quocvuong92/ai-shell/internal/logging"
)

// Store defines the interface for transcript persistence.
// This interface enables dependency injection and easier testing.
type Store interface {
	// Read returns the transcript of a session. A missing or unreadable
	// transcript reads as empty; the failure is logged, not returned.
	Read(id string) []Message

	// Write replaces the whole transcript of a session atomically
	Write(id string, msgs []Message) error

	// Delete removes the transcript of a session. Missing is not an error.
	Delete(id string) error

	// Exists reports whether a transcript has been written for the session
	Exists(id string) bool

	// Close releases resources held by the store
	Close() error
}

// Ensure concrete types implement the interface
var (
	_ Store = (*FileStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)

// Open returns the transcript store for backend under stateDir
func Open(backend, stateDir string, logger *logging.Logger) (Store, error) {
	switch backend {
	case "", constants.StorageFile:
		return NewFileStore(filepath.Join(stateDir, constants.ChatDirName), logger), nil
	case constants.StorageSQLite:
		s, err := OpenSQLiteStore(filepath.Join(stateDir, constants.SQLiteFileName), logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

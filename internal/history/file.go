package history

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/quocvuong92/ai-shell/internal/logging"
	"github.com/quocvuong92/ai-shell/internal/storage"
)

// ErrInvalidID is returned for session ids that cannot name a transcript file
var ErrInvalidID = errors.New("invalid session id")

// FileStore keeps one JSON document per session in a directory
type FileStore struct {
	dir    string
	logger *logging.Logger
}

// NewFileStore creates a store rooted at dir. The directory is created on
// first write.
func NewFileStore(dir string, logger *logging.Logger) *FileStore {
	if logger == nil {
		logger = logging.DefaultLogger
	}
	return &FileStore{dir: dir, logger: logger}
}

func (s *FileStore) path(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || id == "." || id == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return filepath.Join(s.dir, id+".json"), nil
}

// Read loads the transcript of session id
func (s *FileStore) Read(id string) []Message {
	path, err := s.path(id)
	if err != nil {
		s.logger.Warn("Cannot read transcript", logging.Fields{"id": id, "error": err.Error()})
		return nil
	}

	var msgs []Message
	if err := storage.ReadJSON(path, &msgs); err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error("Failed to read transcript", err, logging.Fields{"id": id})
		}
		return nil
	}
	return msgs
}

// Write replaces the transcript of session id
func (s *FileStore) Write(id string, msgs []Message) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	if msgs == nil {
		msgs = []Message{}
	}
	if err := storage.WriteJSON(path, msgs); err != nil {
		return fmt.Errorf("failed to write transcript %s: %w", id, err)
	}
	s.logger.Debug("Transcript written", logging.Fields{"id": id, "messages": len(msgs)})
	return nil
}

// Delete removes the transcript of session id
func (s *FileStore) Delete(id string) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	return storage.Remove(path)
}

// Exists reports whether a transcript file exists for session id
func (s *FileStore) Exists(id string) bool {
	path, err := s.path(id)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Close is a no-op for FileStore
func (s *FileStore) Close() error {
	return nil
}

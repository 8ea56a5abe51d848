package session

import (
	"errors"
	"os"

	"github.com/quocvuong92/ai-shell/internal/logging"
	"github.com/quocvuong92/ai-shell/internal/storage"
)

type pointerDoc struct {
	CurrentChat string `json:"current_chat"`
}

// pointer is the one-slot active-session document (session.json)
type pointer struct {
	path   string
	logger *logging.Logger
}

// load returns the id of the active session, or "" when none is set
func (p *pointer) load() string {
	var doc pointerDoc
	if err := storage.ReadJSON(p.path, &doc); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			p.logger.Warn("Failed to read active session, treating as unset", logging.Fields{
				"path":  p.path,
				"error": err.Error(),
			})
		}
		return ""
	}
	return doc.CurrentChat
}

func (p *pointer) save(id string) error {
	return storage.WriteJSON(p.path, pointerDoc{CurrentChat: id})
}

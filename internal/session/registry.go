// Package session manages named chat sessions: the title registry, the
// active-session pointer and the default system prompt.
//
// Each of these is a separate JSON document under the state directory and
// is written atomically on its own, so a corrupt document never affects the
// others. Unreadable documents degrade to empty (or to the built-in default
// prompt) and the failure is logged.
package session

import (
	"errors"
	"os"
	"sort"

	"github.com/quocvuong92/ai-shell/internal/logging"
	"github.com/quocvuong92/ai-shell/internal/storage"
)

// titleMap maps session titles to session ids
type titleMap map[string]string

// registry is the title -> id document (chats/chat_map.json)
type registry struct {
	path   string
	logger *logging.Logger
}

func (r *registry) load() titleMap {
	m := titleMap{}
	if err := storage.ReadJSON(r.path, &m); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			r.logger.Warn("Failed to read session registry, treating as empty", logging.Fields{
				"path":  r.path,
				"error": err.Error(),
			})
		}
		return titleMap{}
	}
	return m
}

func (r *registry) save(m titleMap) error {
	return storage.WriteJSON(r.path, m)
}

// titles returns the titles of m, sorted
func (m titleMap) titles() []string {
	out := make([]string, 0, len(m))
	for t := range m {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// titleOf finds the title mapped to id
func (m titleMap) titleOf(id string) (string, bool) {
	for t, v := range m {
		if v == id {
			return t, true
		}
	}
	return "", false
}

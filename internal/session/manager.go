package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/quocvuong92/ai-shell/internal/constants"
	"github.com/quocvuong92/ai-shell/internal/history"
	"github.com/quocvuong92/ai-shell/internal/logging"
)

// Session errors
var (
	ErrEmptyTitle      = errors.New("session title must not be empty")
	ErrSessionNotFound = errors.New("chat session not found")
	ErrTitleExists     = errors.New("chat session title already exists")
	ErrNoActiveSession = errors.New("no active chat session")
)

// Ref identifies a session by id and title. It is the explicit "current
// session" value handed to conversation operations.
type Ref struct {
	ID    string
	Title string
}

// IsEphemeralTitle reports whether title follows the ephemeral naming
// convention
func IsEphemeralTitle(title string) bool {
	return strings.HasPrefix(title, constants.EphemeralPrefix)
}

// EphemeralTitle returns the console session title of the current process
func EphemeralTitle() string {
	return constants.EphemeralPrefix + strconv.Itoa(os.Getpid())
}

// Manager owns the session lifecycle: creating, loading, renaming, deleting
// and pruning sessions, and tracking which one is active.
type Manager struct {
	mu      sync.Mutex
	store   history.Store
	titles  *registry
	active  *pointer
	prompts *promptConfig
	logger  *logging.Logger
	newID   func() string
}

// NewManager creates a manager keeping its documents under stateDir and
// transcripts in store
func NewManager(stateDir string, store history.Store, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.DefaultLogger
	}
	return &Manager{
		store:   store,
		titles:  &registry{path: filepath.Join(stateDir, constants.ChatDirName, constants.ChatMapFile), logger: logger},
		active:  &pointer{path: filepath.Join(stateDir, constants.SessionFile), logger: logger},
		prompts: &promptConfig{path: filepath.Join(stateDir, constants.PromptFile), logger: logger},
		logger:  logger,
		newID:   uuid.NewString,
	}
}

// CreateOrLoad returns the session named title, creating it when absent.
// A new session starts with the default system prompt as its only message.
// The session becomes the active one.
func (m *Manager) CreateOrLoad(title string) (Ref, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createOrLoad(title)
}

func (m *Manager) createOrLoad(title string) (Ref, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Ref{}, ErrEmptyTitle
	}

	titles := m.titles.load()
	id, ok := titles[title]
	if ok {
		m.logger.Debug("Loading existing chat session", logging.Fields{"title": title, "id": id})
	} else {
		id = m.newID()
		titles[title] = id
		if err := m.titles.save(titles); err != nil {
			return Ref{}, fmt.Errorf("failed to register session %q: %w", title, err)
		}
	}
	ref := Ref{ID: id, Title: title}

	if !m.store.Exists(id) {
		prompt, err := m.prompts.ensure()
		if err != nil {
			m.logger.Warn("Failed to save default system prompt", logging.Fields{"error": err.Error()})
		}
		if err := m.store.Write(id, []history.Message{history.System(prompt)}); err != nil {
			return Ref{}, fmt.Errorf("failed to create transcript for %q: %w", title, err)
		}
		m.logger.Info("Created new chat session", logging.Fields{"title": title, "id": id})
	} else if err := m.repair(id); err != nil {
		return Ref{}, err
	}

	if err := m.active.save(id); err != nil {
		return Ref{}, fmt.Errorf("failed to set active session: %w", err)
	}
	return ref, nil
}

// repair rewrites a stored transcript that lost its leading system message
func (m *Manager) repair(id string) error {
	msgs, repaired := history.EnsureSystemPrompt(m.store.Read(id), m.prompts.get())
	if !repaired {
		return nil
	}
	m.logger.Debug("Restored missing system prompt", logging.Fields{"id": id})
	if err := m.store.Write(id, msgs); err != nil {
		return fmt.Errorf("failed to repair transcript %s: %w", id, err)
	}
	return nil
}

// Rename moves the mapping of oldTitle to newTitle. The session id and its
// transcript are unchanged.
func (m *Manager) Rename(oldTitle, newTitle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	newTitle = strings.TrimSpace(newTitle)
	if newTitle == "" {
		return ErrEmptyTitle
	}
	titles := m.titles.load()
	id, ok := titles[oldTitle]
	if !ok {
		m.logger.Warn("Chat session not found", logging.Fields{"title": oldTitle})
		return fmt.Errorf("%w: %s", ErrSessionNotFound, oldTitle)
	}
	if oldTitle == newTitle {
		return nil
	}
	if _, taken := titles[newTitle]; taken {
		return fmt.Errorf("%w: %s", ErrTitleExists, newTitle)
	}

	delete(titles, oldTitle)
	titles[newTitle] = id
	if err := m.titles.save(titles); err != nil {
		return fmt.Errorf("failed to rename session: %w", err)
	}
	m.logger.Info("Chat session renamed", logging.Fields{"from": oldTitle, "to": newTitle})
	return nil
}

// Delete removes a session mapping and its transcript. The active-session
// pointer is left alone; if it named this session it now resolves to no
// active session.
func (m *Manager) Delete(title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	titles := m.titles.load()
	id, ok := titles[title]
	if !ok {
		m.logger.Warn("Chat session not found", logging.Fields{"title": title})
		return fmt.Errorf("%w: %s", ErrSessionNotFound, title)
	}
	delete(titles, title)
	if err := m.titles.save(titles); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if err := m.store.Delete(id); err != nil {
		return fmt.Errorf("failed to delete transcript of %q: %w", title, err)
	}
	m.logger.Info("Chat session deleted", logging.Fields{"title": title, "id": id})
	return nil
}

// PruneEphemeral removes every ephemeral session and returns how many were
// removed
func (m *Manager) PruneEphemeral() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	titles := m.titles.load()
	removed := 0
	for title, id := range titles {
		if !IsEphemeralTitle(title) {
			continue
		}
		delete(titles, title)
		if err := m.store.Delete(id); err != nil {
			m.logger.Warn("Failed to remove temporary chat transcript", logging.Fields{
				"title": title,
				"error": err.Error(),
			})
		}
		m.logger.Debug("Removed temporary chat", logging.Fields{"title": title})
		removed++
	}
	if err := m.titles.save(titles); err != nil {
		return removed, fmt.Errorf("failed to save session registry: %w", err)
	}
	return removed, nil
}

// DefaultSystemPrompt returns the prompt used for new sessions and for
// repairing transcripts without a leading system message
func (m *Manager) DefaultSystemPrompt() string {
	return m.prompts.get()
}

// SetDefaultSystemPrompt updates the prompt used for future sessions
func (m *Manager) SetDefaultSystemPrompt(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.prompts.set(text); err != nil {
		return fmt.Errorf("failed to save default system prompt: %w", err)
	}
	return nil
}

// SetSessionSystemPrompt replaces the leading system message of the
// session's transcript, inserting one when the transcript has none.
func (m *Manager) SetSessionSystemPrompt(ref Ref, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ref.ID == "" {
		return ErrNoActiveSession
	}
	msgs := m.store.Read(ref.ID)
	if len(msgs) > 0 && msgs[0].Role == history.RoleSystem {
		msgs[0] = history.System(text)
	} else {
		msgs = append([]history.Message{history.System(text)}, msgs...)
	}
	if err := m.store.Write(ref.ID, msgs); err != nil {
		return fmt.Errorf("failed to update system prompt: %w", err)
	}
	return nil
}

// Titles returns all session titles, sorted
func (m *Manager) Titles() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.titles.load().titles()
}

// Lookup resolves a session by title
func (m *Manager) Lookup(title string) (Ref, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.titles.load()[title]
	if !ok {
		return Ref{}, false
	}
	return Ref{ID: id, Title: title}, true
}

// Current resolves the active-session pointer. A pointer to a session that
// is no longer registered reads as no active session.
func (m *Manager) Current() (Ref, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current()
}

func (m *Manager) current() (Ref, bool) {
	id := m.active.load()
	if id == "" {
		return Ref{}, false
	}
	title, ok := m.titles.load().titleOf(id)
	if !ok {
		m.logger.Debug("Active session is not registered", logging.Fields{"id": id})
		return Ref{}, false
	}
	return Ref{ID: id, Title: title}, true
}

// CurrentOrEphemeral returns the active session, creating and activating
// this process's ephemeral session when there is none
func (m *Manager) CurrentOrEphemeral() (Ref, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ref, ok := m.current(); ok {
		return ref, nil
	}
	m.logger.Info("No active chat session, starting temporary chat")
	return m.createOrLoad(EphemeralTitle())
}

// Transcript returns the stored transcript of the session named title, or
// of the active session when title is empty
func (m *Manager) Transcript(title string) (Ref, []history.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ref Ref
	if title == "" {
		var ok bool
		if ref, ok = m.current(); !ok {
			return Ref{}, nil, ErrNoActiveSession
		}
	} else {
		id, ok := m.titles.load()[title]
		if !ok {
			return Ref{}, nil, fmt.Errorf("%w: %s", ErrSessionNotFound, title)
		}
		ref = Ref{ID: id, Title: title}
	}
	return ref, m.store.Read(ref.ID), nil
}

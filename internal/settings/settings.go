// Package settings holds the command deny rules that the shell tools
// enforce before running a command the model asked for.
//
// Rules come from two JSON documents, merged in order:
//
//	<state dir>/settings.json     user rules, edited with /deny and /undeny
//	./.ai-shell/settings.json     project rules, read only
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/quocvuong92/ai-shell/internal/constants"
	"github.com/quocvuong92/ai-shell/internal/logging"
	"github.com/quocvuong92/ai-shell/internal/storage"
)

// ErrEmptyPattern is returned when a rule pattern is blank
var ErrEmptyPattern = errors.New("rule pattern must not be empty")

// Settings is the on-disk settings document
type Settings struct {
	// Deny lists command patterns the model may not run
	Deny []string `json:"deny"`
}

// Manager loads, merges and saves command rules
type Manager struct {
	mu          sync.RWMutex
	global      Settings
	project     Settings
	globalPath  string
	projectPath string
	logger      *logging.Logger
}

// NewManager creates a manager for the settings under stateDir and the
// project directory of the working directory
func NewManager(stateDir string, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.DefaultLogger
	}
	m := &Manager{
		globalPath: filepath.Join(stateDir, constants.SettingsFile),
		logger:     logger,
	}
	if cwd, err := os.Getwd(); err == nil {
		m.projectPath = filepath.Join(cwd, constants.ProjectDirName, constants.SettingsFile)
	}
	return m
}

// Load reads both documents. Missing files are empty; a corrupt file is
// logged and treated as empty.
func (m *Manager) Load() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.global = m.read(m.globalPath)
	m.project = m.read(m.projectPath)
}

func (m *Manager) read(path string) Settings {
	var s Settings
	if path == "" {
		return s
	}
	if err := storage.ReadJSON(path, &s); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			m.logger.Warn("Ignoring unreadable settings file", logging.Fields{"path": path, "error": err.Error()})
		}
		return Settings{}
	}
	return s
}

// DenyRules returns the merged deny patterns, user rules first
func (m *Manager) DenyRules() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rules := make([]string, 0, len(m.global.Deny)+len(m.project.Deny))
	rules = append(rules, m.global.Deny...)
	return append(rules, m.project.Deny...)
}

// Blocked reports the deny rule matching any segment of command
func (m *Manager) Blocked(command string) (string, bool) {
	rule, ok := FirstMatch(command, m.DenyRules())
	if ok {
		m.logger.Info("Command blocked by deny rule", logging.Fields{"command": command, "rule": rule})
	}
	return rule, ok
}

// AddDeny adds pattern to the user rules and saves them. Adding an
// existing pattern is a no-op.
func (m *Manager) AddDeny(pattern string) error {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return ErrEmptyPattern
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if slices.Contains(m.global.Deny, pattern) {
		return nil
	}
	next := m.global
	next.Deny = append(slices.Clone(m.global.Deny), pattern)
	if err := m.save(next); err != nil {
		return err
	}
	m.global = next
	return nil
}

// RemoveDeny removes pattern from the user rules and reports whether it
// was present. Project rules cannot be removed here.
func (m *Manager) RemoveDeny(pattern string) (bool, error) {
	pattern = strings.TrimSpace(pattern)

	m.mu.Lock()
	defer m.mu.Unlock()
	i := slices.Index(m.global.Deny, pattern)
	if i < 0 {
		return false, nil
	}
	next := m.global
	next.Deny = slices.Delete(slices.Clone(m.global.Deny), i, i+1)
	if err := m.save(next); err != nil {
		return false, err
	}
	m.global = next
	return true, nil
}

func (m *Manager) save(s Settings) error {
	if err := storage.WriteJSON(m.globalPath, s); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

package session

import (
	"errors"
	"os"

	"github.com/quocvuong92/ai-shell/internal/constants"
	"github.com/quocvuong92/ai-shell/internal/logging"
	"github.com/quocvuong92/ai-shell/internal/storage"
)

type promptDoc struct {
	DefaultSystemPrompt *string `json:"default_system_prompt,omitempty"`
}

// promptConfig is the process-wide prompt document (config.json)
type promptConfig struct {
	path   string
	logger *logging.Logger
}

func (c *promptConfig) read() promptDoc {
	var doc promptDoc
	if err := storage.ReadJSON(c.path, &doc); err != nil && !errors.Is(err, os.ErrNotExist) {
		c.logger.Warn("Failed to read prompt config, using defaults", logging.Fields{
			"path":  c.path,
			"error": err.Error(),
		})
	}
	return doc
}

// get returns the configured default system prompt, falling back to the
// built-in one
func (c *promptConfig) get() string {
	if doc := c.read(); doc.DefaultSystemPrompt != nil {
		return *doc.DefaultSystemPrompt
	}
	return constants.DefaultSystemPrompt
}

// ensure writes the built-in prompt when none is configured yet and returns
// the effective prompt
func (c *promptConfig) ensure() (string, error) {
	doc := c.read()
	if doc.DefaultSystemPrompt != nil {
		return *doc.DefaultSystemPrompt, nil
	}
	prompt := constants.DefaultSystemPrompt
	if err := c.set(prompt); err != nil {
		return prompt, err
	}
	return prompt, nil
}

func (c *promptConfig) set(text string) error {
	return storage.WriteJSON(c.path, promptDoc{DefaultSystemPrompt: &text})
}

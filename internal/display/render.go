package display

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/glamour"
)

var (
	rendererMu sync.Mutex
	renderer   *glamour.TermRenderer
)

// InitRenderer prepares the markdown renderer used by ShowContentRendered
func InitRenderer() error {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	rendererMu.Lock()
	renderer = r
	rendererMu.Unlock()
	return nil
}

// RenderMarkdown renders content as terminal markdown, returning it
// unchanged when no renderer is available
func RenderMarkdown(content string) string {
	rendererMu.Lock()
	r := renderer
	rendererMu.Unlock()
	if r == nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return out
}

// ShowContentRendered prints assistant output rendered as markdown
func ShowContentRendered(content string) {
	fmt.Fprint(Stdout, RenderMarkdown(content))
}

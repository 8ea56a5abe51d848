package display

import (
	"context"
	"fmt"
	"strings"

	"github.com/elk-language/go-prompt"

	"github.com/quocvuong92/ai-shell/internal/executor"
)

// LineReader reads one edited line from the user, starting from initial
type LineReader func(prefix, initial string) string

// PromptLine reads a line with the go-prompt line editor
func PromptLine(prefix, initial string) string {
	return prompt.Input(
		prompt.WithPrefix(prefix),
		prompt.WithInitialText(initial),
		prompt.WithPrefixTextColor(prompt.Yellow),
	)
}

// CommandConfirmer asks the user to accept, edit or decline each command
// the model wants to run. The command is shown pre-filled in a line editor;
// clearing the line declines it.
type CommandConfirmer struct {
	read LineReader
}

// NewCommandConfirmer creates a confirmer reading from the terminal
func NewCommandConfirmer() *CommandConfirmer {
	return &CommandConfirmer{read: PromptLine}
}

// Confirm shows command with its risk level and returns the line the user
// accepted, or "" when declined
func (c *CommandConfirmer) Confirm(ctx context.Context, command string, risk executor.RiskLevel) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	box := commandBoxStyle
	label := mutedStyle.Render(risk.String())
	if risk == executor.Dangerous {
		box = dangerBoxStyle
		label = errorStyle.Render(risk.String())
	}
	fmt.Fprintln(Stdout, warningStyle.Render("AI wants to run a command ")+label)
	fmt.Fprintln(Stdout, box.Render(command))
	fmt.Fprintln(Stdout, mutedStyle.Render("Enter to run, edit the line first to change it, clear it to cancel."))

	answer := strings.TrimSpace(c.read("$ ", command))
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return answer, nil
}

// Ask prompts for a single value, offering suggestion as the editable
// default
func Ask(question, suggestion string) string {
	fmt.Fprintln(Stdout, infoStyle.Render(question))
	return strings.TrimSpace(PromptLine("> ", suggestion))
}

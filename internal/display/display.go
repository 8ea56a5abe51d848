// Package display renders assistant output, command activity and prompts
// in the terminal.
package display

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))

	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	toolStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	systemStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("135")).Bold(true)

	commandBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	dangerBoxStyle = commandBoxStyle.BorderForeground(lipgloss.Color("196"))
)

// Stdout and Stderr are the writers used by the package-level helpers
var (
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr
)

// ShowError prints an error message to stderr
func ShowError(msg string) {
	fmt.Fprintln(Stderr, errorStyle.Render("Error: ")+msg)
}

// ShowWarning prints a warning to stderr
func ShowWarning(msg string) {
	fmt.Fprintln(Stderr, warningStyle.Render("Warning: ")+msg)
}

// ShowInfo prints an informational line
func ShowInfo(msg string) {
	fmt.Fprintln(Stdout, infoStyle.Render(msg))
}

// ShowSuccess prints a confirmation line
func ShowSuccess(msg string) {
	fmt.Fprintln(Stdout, successStyle.Render("✓ ")+msg)
}

// ShowTitle prints a highlighted heading
func ShowTitle(msg string) {
	fmt.Fprintln(Stdout, titleStyle.Render(msg))
}

// ShowList prints a heading followed by one bulleted line per item
func ShowList(heading string, items []string) {
	fmt.Fprintln(Stdout, infoStyle.Render(heading))
	for _, item := range items {
		fmt.Fprintln(Stdout, mutedStyle.Render(" - ")+titleStyle.Render(item))
	}
}

// ShowContent prints assistant output as plain text
func ShowContent(content string) {
	fmt.Fprintln(Stdout, assistantStyle.Render("AI: ")+content)
}

// ShowCommandExecuting shows the command about to run
func ShowCommandExecuting(command string) {
	fmt.Fprintln(Stdout, commandBoxStyle.Render(mutedStyle.Render("$ ")+command))
}

// ShowCommandOutput prints the output of a finished command
func ShowCommandOutput(output string) {
	output = strings.TrimRight(output, "\n")
	if output == "" {
		fmt.Fprintln(Stdout, mutedStyle.Render("(no output)"))
		return
	}
	fmt.Fprintln(Stdout, output)
}

// ShowCommandError prints the failure of a command
func ShowCommandError(command, stderr string) {
	msg := strings.TrimSpace(stderr)
	if msg == "" {
		msg = "command failed"
	}
	fmt.Fprintln(Stderr, errorStyle.Render("✗ "+command+": ")+msg)
}

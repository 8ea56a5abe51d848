package display

import (
	"fmt"
	"strings"

	"github.com/quocvuong92/ai-shell/internal/executor"
	"github.com/quocvuong92/ai-shell/internal/history"
)

// Console reports turn activity in the terminal: tool requests, commands
// as they run and their results.
type Console struct {
	// Verbose also echoes the numbered user message of each turn
	Verbose bool
}

// UserMessage echoes the user's message with its ordinal
func (c *Console) UserMessage(index int, content string) {
	if !c.Verbose {
		return
	}
	fmt.Fprintln(Stdout, userStyle.Render(fmt.Sprintf("User[%d]: ", index))+content)
}

// ToolRequested announces a tool call the model made, with the command it
// carries if any
func (c *Console) ToolRequested(call history.ToolCall) {
	if !c.Verbose {
		return
	}
	line := toolStyle.Render("Tool: ") + call.Name
	if command := call.StringArg("command"); command != "" {
		line += " " + mutedStyle.Render(command)
	}
	fmt.Fprintln(Stdout, line)
}

// CommandStarted shows a command that is about to run
func (c *Console) CommandStarted(command string) {
	ShowCommandExecuting(command)
}

// CommandFinished shows the result of a command
func (c *Console) CommandFinished(result *executor.ExecutionResult) {
	if result == nil {
		return
	}
	if result.IsSuccess() {
		ShowCommandOutput(result.Output)
		return
	}
	ShowCommandError(result.Command, result.Error)
}

// ShowTranscript prints a session transcript. User messages are numbered
// by their ordinal among user messages, which is what the edit flag takes
// via its "last" form; message positions are shown for absolute edits.
func ShowTranscript(title string, msgs []history.Message, showSystem bool) {
	ShowTitle("Chat: " + title)
	user := 0
	for i, m := range msgs {
		pos := mutedStyle.Render(fmt.Sprintf("[%d] ", i))
		switch m.Role {
		case history.RoleSystem:
			if showSystem {
				fmt.Fprintln(Stdout, pos+systemStyle.Render("System: ")+m.Content)
			}
		case history.RoleUser:
			fmt.Fprintln(Stdout, pos+userStyle.Render(fmt.Sprintf("User[%d]: ", user))+m.Content)
			user++
		case history.RoleAssistant:
			content := m.Content
			if len(m.ToolCalls) > 0 {
				names := make([]string, 0, len(m.ToolCalls))
				for _, tc := range m.ToolCalls {
					names = append(names, tc.Name)
				}
				content = strings.TrimSpace(content + " " + mutedStyle.Render("(calls "+strings.Join(names, ", ")+")"))
			}
			fmt.Fprintln(Stdout, pos+assistantStyle.Render("AI: ")+content)
		case history.RoleTool:
			fmt.Fprintln(Stdout, pos+toolStyle.Render("Tool: ")+strings.TrimRight(m.Content, "\n"))
		}
	}
}

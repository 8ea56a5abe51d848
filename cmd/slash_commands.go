package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/quocvuong92/ai-shell/internal/display"
)

type slashCommand struct {
	name        string
	usage       string
	description string
}

// slashCommands lists the REPL commands in help order
var slashCommands = []slashCommand{
	{"/chat", "/chat <title>", "Create or switch to a chat"},
	{"/chats", "/chats", "List chats"},
	{"/current", "/current", "Show the active chat"},
	{"/messages", "/messages [title]", "Show the messages of a chat"},
	{"/rename", "/rename <old> <new>", "Rename a chat"},
	{"/delete", "/delete <title>", "Delete a chat"},
	{"/edit", "/edit [index|last] <text>", "Edit a user message and resend"},
	{"/run", "/run <command>", "Run a command and add its output to the chat"},
	{"/system", "/system <prompt>", "Replace the system prompt of the active chat"},
	{"/default-system", "/default-system <prompt>", "Set the system prompt for new chats"},
	{"/temp-flush", "/temp-flush", "Remove all temporary chats"},
	{"/deny", "/deny [pattern]", "Block commands the model proposes (e.g., sudo:*); lists rules without a pattern"},
	{"/undeny", "/undeny <pattern>", "Remove a deny rule"},
	{"/render", "/render", "Toggle markdown rendering"},
	{"/help", "/help, /h", "Show this help"},
	{"/exit", "/exit, /quit, /q", "Exit interactive mode"},
}

// handleCommand processes a slash command. It reports whether the REPL
// should exit.
func (s *InteractiveSession) handleCommand(ctx context.Context, input string) (bool, error) {
	name, rest, _ := strings.Cut(input, " ")
	name = strings.ToLower(name)
	rest = strings.TrimSpace(rest)
	app := s.app

	switch name {
	case "/exit", "/quit", "/q":
		fmt.Fprintln(display.Stdout, "Goodbye!")
		return true, nil

	case "/help", "/h":
		showHelp()

	case "/chat":
		if rest == "" {
			return false, usageError("/chat")
		}
		return false, app.loadChat(rest)

	case "/chats":
		app.listChats()

	case "/current":
		app.showCurrentTitle()

	case "/messages":
		return false, app.listMessages(rest)

	case "/rename":
		titles := strings.Fields(rest)
		if len(titles) != 2 {
			return false, usageError("/rename")
		}
		return false, app.renameChat(titles[0], titles[1])

	case "/delete":
		if rest == "" {
			return false, usageError("/delete")
		}
		return false, app.deleteChat(rest)

	case "/edit":
		index, text, err := parseEditLine(rest)
		if err != nil {
			return false, err
		}
		return false, app.editMessage(ctx, index, text)

	case "/run":
		if rest == "" {
			return false, usageError("/run")
		}
		return false, app.executeCommand(ctx, rest)

	case "/system":
		if rest == "" {
			return false, usageError("/system")
		}
		return false, app.setSessionPrompt(rest)

	case "/default-system":
		if rest == "" {
			return false, usageError("/default-system")
		}
		if err := app.sessions.SetDefaultSystemPrompt(rest); err != nil {
			return false, err
		}
		display.ShowSuccess("Default system prompt saved")

	case "/temp-flush":
		return false, app.flushTempChats()

	case "/deny":
		if rest == "" {
			s.showRules()
			return false, nil
		}
		if err := app.rules.AddDeny(rest); err != nil {
			return false, err
		}
		display.ShowSuccess("Deny rule added: " + rest)

	case "/undeny":
		if rest == "" {
			return false, usageError("/undeny")
		}
		removed, err := app.rules.RemoveDeny(rest)
		if err != nil {
			return false, err
		}
		if !removed {
			display.ShowWarning("No user deny rule: " + rest)
			return false, nil
		}
		display.ShowSuccess("Deny rule removed: " + rest)

	case "/render":
		app.cfg.Render = !app.cfg.Render
		if app.cfg.Render {
			if err := display.InitRenderer(); err != nil {
				app.cfg.Render = false
				return false, err
			}
			display.ShowInfo("Markdown rendering on")
		} else {
			display.ShowInfo("Markdown rendering off")
		}

	default:
		fmt.Fprintf(display.Stdout, "Unknown command: %s\n", name)
		fmt.Fprintln(display.Stdout, "Type /help for available commands")
	}

	return false, nil
}

// parseEditLine splits "/edit" arguments. The first word is taken as the
// index only when it is "last" or a number and text follows it.
func parseEditLine(rest string) (*int, string, error) {
	if rest == "" {
		return nil, "", errEditUsage
	}
	first, text, found := strings.Cut(rest, " ")
	text = strings.TrimSpace(text)
	if found && text != "" {
		if _, err := strconv.Atoi(first); err == nil || strings.EqualFold(first, "last") {
			return parseEditArgs([]string{first, text})
		}
	}
	return parseEditArgs([]string{rest})
}

func usageError(name string) error {
	for _, c := range slashCommands {
		if c.name == name {
			return fmt.Errorf("usage: %s", c.usage)
		}
	}
	return fmt.Errorf("usage: %s", name)
}

func (s *InteractiveSession) showRules() {
	rules := s.app.rules.DenyRules()
	if len(rules) == 0 {
		display.ShowInfo("No deny rules.")
		return
	}
	display.ShowList("Deny rules:", rules)
}

// showHelp displays the help message with all available commands.
func showHelp() {
	fmt.Fprintln(display.Stdout, "\nCommands:")
	for _, c := range slashCommands {
		fmt.Fprintf(display.Stdout, "  %-28s %s\n", c.usage, c.description)
	}
	fmt.Fprintln(display.Stdout, "\nAnything else is sent to the active chat.")
	fmt.Fprintln(display.Stdout)
}

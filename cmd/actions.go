package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quocvuong92/ai-shell/internal/display"
	"github.com/quocvuong92/ai-shell/internal/session"
)

var errEditUsage = errors.New("usage: -e [INDEX|last] MESSAGE")

// dispatch runs the one action selected by the flags
func (app *App) dispatch(ctx context.Context, cmd *cobra.Command, args []string) error {
	o := app.opts
	switch {
	case o.execute != "":
		return app.executeCommand(ctx, o.execute)
	case o.chat != "":
		return app.loadChat(o.chat)
	case o.currentChatTitle:
		app.showCurrentTitle()
		return nil
	case o.loadChat != "":
		return app.loadChat(o.loadChat)
	case o.listChats:
		app.listChats()
		return nil
	case o.renameChat:
		if len(args) != 2 {
			return errors.New("usage: --rename-chat OLD_TITLE NEW_TITLE")
		}
		return app.renameChat(args[0], args[1])
	case o.deleteChat != "":
		return app.deleteChat(o.deleteChat)
	case o.defaultSystemPrompt != "":
		if err := app.sessions.SetDefaultSystemPrompt(o.defaultSystemPrompt); err != nil {
			return err
		}
		display.ShowSuccess("Default system prompt saved")
		return nil
	case o.systemPrompt != "":
		return app.setSessionPrompt(o.systemPrompt)
	case o.sendMessage != "":
		return app.sendMessage(ctx, o.sendMessage)
	case o.tempChat != "":
		return app.tempChat(ctx, o.tempChat)
	case o.edit:
		index, text, err := parseEditArgs(args)
		if err != nil {
			return err
		}
		return app.editMessage(ctx, index, text)
	case o.tempFlush:
		return app.flushTempChats()
	case o.listMessages:
		title := ""
		if len(args) > 0 {
			title = args[0]
		}
		return app.listMessages(title)
	case app.cfg.Interactive:
		return app.runInteractive(ctx)
	case len(args) == 1:
		return app.sendMessage(ctx, args[0])
	case len(args) > 1:
		return fmt.Errorf("expected a single message, got %d arguments (quote the message)", len(args))
	default:
		display.ShowInfo("No command provided. Use --help for options.")
		return nil
	}
}

// parseEditArgs reads "[INDEX|last] MESSAGE". A nil index means the last
// user message.
func parseEditArgs(args []string) (*int, string, error) {
	switch len(args) {
	case 1:
		return nil, args[0], nil
	case 2:
		if strings.EqualFold(args[0], "last") {
			return nil, args[1], nil
		}
		i, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, "", fmt.Errorf("invalid message index %q: %w", args[0], errEditUsage)
		}
		return &i, args[1], nil
	default:
		return nil, "", errEditUsage
	}
}

func (app *App) loadChat(title string) error {
	ref, err := app.sessions.CreateOrLoad(title)
	if err != nil {
		return err
	}
	display.ShowSuccess("Current chat: " + ref.Title)
	return nil
}

func (app *App) showCurrentTitle() {
	ref, ok := app.sessions.Current()
	if !ok {
		display.ShowInfo("No active chat session. Use --list-chats to list chats and -l TITLE to load one.")
		return
	}
	display.ShowInfo("Current chat: " + ref.Title)
}

func (app *App) listChats() {
	titles := app.sessions.Titles()
	if len(titles) == 0 {
		display.ShowInfo("No chats yet. Use -c TITLE to create one.")
		return
	}
	display.ShowList("Chats:", titles)
}

func (app *App) renameChat(oldTitle, newTitle string) error {
	if err := app.sessions.Rename(oldTitle, newTitle); err != nil {
		return err
	}
	display.ShowSuccess(fmt.Sprintf("Chat renamed: %s -> %s", oldTitle, newTitle))
	return nil
}

func (app *App) deleteChat(title string) error {
	if err := app.sessions.Delete(title); err != nil {
		return err
	}
	display.ShowSuccess("Chat deleted: " + title)
	return nil
}

func (app *App) setSessionPrompt(text string) error {
	ref, ok := app.sessions.Current()
	if !ok {
		return session.ErrNoActiveSession
	}
	if err := app.sessions.SetSessionSystemPrompt(ref, text); err != nil {
		return err
	}
	display.ShowSuccess("System prompt updated for " + ref.Title)
	return nil
}

func (app *App) sendMessage(ctx context.Context, text string) error {
	ref, err := app.sessions.CurrentOrEphemeral()
	if err != nil {
		return err
	}
	return app.runTurn(ctx, ref, text)
}

func (app *App) tempChat(ctx context.Context, text string) error {
	ref, err := app.sessions.CreateOrLoad(session.EphemeralTitle())
	if err != nil {
		return err
	}
	return app.runTurn(ctx, ref, text)
}

func (app *App) runTurn(ctx context.Context, ref session.Ref, text string) error {
	e, err := app.turnEngine(ctx)
	if err != nil {
		return err
	}
	reply, err := e.RunTurn(ctx, ref.ID, text)
	if err != nil {
		return err
	}
	app.showReply(reply)
	return nil
}

func (app *App) editMessage(ctx context.Context, index *int, text string) error {
	ref, ok := app.sessions.Current()
	if !ok {
		return session.ErrNoActiveSession
	}
	e, err := app.turnEngine(ctx)
	if err != nil {
		return err
	}
	reply, err := e.EditAndResend(ctx, ref.ID, index, text)
	if err != nil {
		return err
	}
	app.showReply(reply)
	return nil
}

func (app *App) executeCommand(ctx context.Context, command string) error {
	ref, err := app.sessions.CurrentOrEphemeral()
	if err != nil {
		return err
	}
	e, err := app.turnEngine(ctx)
	if err != nil {
		return err
	}
	_, err = e.RunCommandTurn(ctx, ref.ID, command)
	return err
}

func (app *App) flushTempChats() error {
	n, err := app.sessions.PruneEphemeral()
	if err != nil {
		return err
	}
	display.ShowSuccess(fmt.Sprintf("Removed %d temporary chat(s)", n))
	return nil
}

func (app *App) listMessages(title string) error {
	ref, msgs, err := app.sessions.Transcript(title)
	if err != nil {
		return err
	}
	display.ShowTranscript(ref.Title, msgs, app.cfg.Verbose)
	return nil
}

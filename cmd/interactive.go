package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/elk-language/go-prompt"
	istrings "github.com/elk-language/go-prompt/strings"

	"github.com/quocvuong92/ai-shell/internal/display"
	"github.com/quocvuong92/ai-shell/internal/logging"
)

// InteractiveSession holds the state of the REPL. The active chat is
// resolved from the session pointer on every turn, so chat switches made
// with slash commands or from another console take effect immediately.
type InteractiveSession struct {
	app         *App
	ctx         context.Context
	exitFlag    bool
	inputBuffer []string // lines continued with a trailing backslash

	// newTurnContext derives the context of a single turn; interrupting a
	// turn cancels only that turn
	newTurnContext func(parent context.Context) (context.Context, context.CancelFunc)
}

func newInteractiveSession(ctx context.Context, app *App) *InteractiveSession {
	return &InteractiveSession{
		app: app,
		// The process-wide interrupt context must not end the REPL
		ctx: context.WithoutCancel(ctx),
		newTurnContext: func(parent context.Context) (context.Context, context.CancelFunc) {
			return signal.NotifyContext(parent, os.Interrupt)
		},
	}
}

// completer suggests slash commands, and chat titles for the commands that
// take one
func (s *InteractiveSession) completer(d prompt.Document) ([]prompt.Suggest, istrings.RuneNumber, istrings.RuneNumber) {
	text := d.TextBeforeCursor()
	endIndex := d.CurrentRuneIndex()
	w := d.GetWordBeforeCursor()
	startIndex := endIndex - istrings.RuneCountInString(w)

	if !strings.HasPrefix(text, "/") {
		return []prompt.Suggest{}, startIndex, endIndex
	}

	lower := strings.ToLower(text)
	for _, c := range []string{"/chat ", "/delete ", "/messages ", "/rename "} {
		if strings.HasPrefix(lower, c) {
			var suggestions []prompt.Suggest
			for _, title := range s.app.sessions.Titles() {
				suggestions = append(suggestions, prompt.Suggest{Text: title})
			}
			return prompt.FilterHasPrefix(suggestions, w, true), startIndex, endIndex
		}
	}

	if strings.HasPrefix(lower, "/edit ") {
		suggestions := []prompt.Suggest{{Text: "last", Description: "Edit the last user message"}}
		return prompt.FilterHasPrefix(suggestions, w, true), startIndex, endIndex
	}

	suggestions := make([]prompt.Suggest, 0, len(slashCommands))
	for _, c := range slashCommands {
		suggestions = append(suggestions, prompt.Suggest{Text: c.name, Description: c.description})
	}
	return prompt.FilterHasPrefix(suggestions, w, true), startIndex, endIndex
}

// runInteractive starts the REPL. It reads lines until /exit, Ctrl+C on
// an idle prompt or Ctrl+D on an empty line. Lines ending with a backslash
// continue on the next line.
func (app *App) runInteractive(ctx context.Context) error {
	ref, err := app.sessions.CurrentOrEphemeral()
	if err != nil {
		return err
	}
	if _, err := app.turnEngine(ctx); err != nil {
		return err
	}

	display.ShowTitle("ai-shell - Interactive Mode")
	fmt.Fprintf(display.Stdout, "Chat: %s\n", ref.Title)
	fmt.Fprintf(display.Stdout, "Provider: %s, model: %s\n", app.cfg.Provider, app.cfg.Model)
	fmt.Fprintln(display.Stdout, "Type /help for commands, Ctrl+C or Ctrl+D to quit")
	fmt.Fprintln(display.Stdout, "End a line with \\ for multiline input")
	fmt.Fprintln(display.Stdout)

	s := newInteractiveSession(ctx, app)
	p := prompt.New(
		s.execute,
		prompt.WithCompleter(s.completer),
		prompt.WithPrefix("> "),
		prompt.WithTitle("ai-shell"),
		prompt.WithPrefixTextColor(prompt.Green),
		prompt.WithSuggestionBGColor(prompt.DarkBlue),
		prompt.WithSuggestionTextColor(prompt.White),
		prompt.WithSelectedSuggestionBGColor(prompt.Cyan),
		prompt.WithSelectedSuggestionTextColor(prompt.Black),
		prompt.WithDescriptionBGColor(prompt.DarkBlue),
		prompt.WithDescriptionTextColor(prompt.LightGray),
		prompt.WithSelectedDescriptionBGColor(prompt.Cyan),
		prompt.WithSelectedDescriptionTextColor(prompt.Black),
		prompt.WithMaxSuggestion(15),
		prompt.WithCompletionOnDown(),
		prompt.WithExitChecker(func(in string, breakline bool) bool {
			return s.exitFlag
		}),
		prompt.WithKeyBind(prompt.KeyBind{
			Key: prompt.ControlC,
			Fn: func(p *prompt.Prompt) bool {
				fmt.Fprintln(display.Stdout, "\nGoodbye!")
				s.exitFlag = true
				return false
			},
		}),
		prompt.WithKeyBind(prompt.KeyBind{
			Key: prompt.ControlD,
			Fn: func(p *prompt.Prompt) bool {
				if p.Buffer().Text() == "" {
					fmt.Fprintln(display.Stdout, "Goodbye!")
					s.exitFlag = true
				}
				return false
			},
		}),
	)

	p.Run()
	return nil
}

// execute handles one line read by the prompt
func (s *InteractiveSession) execute(input string) {
	if s.exitFlag {
		return
	}

	if strings.HasSuffix(input, "\\") {
		s.inputBuffer = append(s.inputBuffer, strings.TrimSuffix(input, "\\"))
		fmt.Fprint(display.Stdout, "... ")
		return
	}
	if len(s.inputBuffer) > 0 {
		s.inputBuffer = append(s.inputBuffer, input)
		input = strings.Join(s.inputBuffer, "\n")
		s.inputBuffer = nil
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return
	}

	ctx, cancel := s.newTurnContext(s.ctx)
	defer cancel()

	var err error
	if strings.HasPrefix(input, "/") {
		var exit bool
		exit, err = s.handleCommand(ctx, input)
		s.exitFlag = exit
	} else {
		fmt.Fprintln(display.Stdout)
		err = s.app.sendMessage(ctx, input)
	}
	s.report(err)
}

// report shows the error of a line without leaving the REPL
func (s *InteractiveSession) report(err error) {
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(display.Stdout)
		display.ShowWarning("Cancelled.")
	default:
		s.app.logger.Debug("Interactive command failed", logging.Fields{"error": err.Error()})
		display.ShowError(err.Error())
	}
}

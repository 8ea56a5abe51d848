package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quocvuong92/ai-shell/internal/api"
	"github.com/quocvuong92/ai-shell/internal/config"
	"github.com/quocvuong92/ai-shell/internal/display"
	"github.com/quocvuong92/ai-shell/internal/engine"
	"github.com/quocvuong92/ai-shell/internal/executor"
	"github.com/quocvuong92/ai-shell/internal/history"
	"github.com/quocvuong92/ai-shell/internal/logging"
	"github.com/quocvuong92/ai-shell/internal/session"
	"github.com/quocvuong92/ai-shell/internal/settings"
	"github.com/quocvuong92/ai-shell/internal/tools"
)

// cancelledMessage is printed when the user interrupts a command
const cancelledMessage = "Operation cancelled by user. Exiting gracefully..."

// options holds the session and messaging flags
type options struct {
	chat                string
	loadChat            string
	listChats           bool
	renameChat          bool
	deleteChat          string
	defaultSystemPrompt string
	systemPrompt        string
	sendMessage         string
	tempChat            string
	edit                bool
	tempFlush           bool
	execute             string
	listMessages        bool
	currentChatTitle    bool
}

// App holds the application state
type App struct {
	cfg    *config.Config
	opts   options
	logger *logging.Logger

	// Collaborators, replaceable in tests
	newOracle  func(ctx context.Context, cfg *config.Config, logger *logging.Logger) (api.Oracle, error)
	confirmer  tools.Confirmer
	indicator  engine.Indicator
	ask        func(question, suggestion string) string
	saveConfig func(mutate func(fc *config.FileConfig)) (string, error)

	// Opened per invocation
	store    history.Store
	sessions *session.Manager
	rules    *settings.Manager
	engine   *engine.Engine
}

// NewApp creates a new App instance with default configuration
func NewApp() *App {
	return &App{
		cfg:        config.NewConfig(),
		logger:     logging.DefaultLogger,
		newOracle:  api.NewOracle,
		confirmer:  display.NewCommandConfirmer(),
		indicator:  display.NewSpinner("Thinking"),
		ask:        display.Ask,
		saveConfig: config.SaveFileConfig,
	}
}

// Execute runs the root command
func Execute() {
	if tools.IsEvalChild() {
		os.Exit(tools.RunEvalChild(os.Stdin, os.Stdout))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := NewApp()
	err := app.newRootCmd().ExecuteContext(ctx)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(os.Stderr)
		display.ShowInfo(cancelledMessage)
	default:
		display.ShowError(err.Error())
		stop()
		os.Exit(1)
	}
}

func (app *App) newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ai-shell [message]",
		Short: "A terminal assistant with persistent chat sessions that can run commands",
		Long: `ai-shell keeps named, persistent chat sessions with a language model
(Google Gemini or any OpenAI-compatible API). The model can propose shell
commands, which you review and may edit before they run, and evaluate Go
snippets. Command output flows back into the conversation.

Examples:
  ai-shell -c work                       # create or load the "work" chat
  ai-shell "which process uses port 8080?"
  ai-shell -x "git status"               # run a command and keep its output in the chat
  ai-shell -e last "try again with sudo" # edit the last message and resend
  ai-shell -e 1 "start over"             # edit the message at position 1
  ai-shell --rename-chat work infra
  ai-shell -t "quick question"           # use this console's temporary chat
  ai-shell -i                            # interactive mode`,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, args)
		},
	}

	f := rootCmd.Flags()
	f.StringVarP(&app.opts.chat, "chat", "c", "", "Create or load a chat session with the given title")
	f.StringVarP(&app.opts.loadChat, "load-chat", "l", "", "Load an existing chat session with the given title")
	f.BoolVar(&app.opts.listChats, "list-chats", false, "List all chat sessions")
	f.BoolVar(&app.opts.renameChat, "rename-chat", false, "Rename a chat session: --rename-chat OLD NEW")
	f.StringVar(&app.opts.deleteChat, "delete-chat", "", "Delete the chat session with the given title")
	f.StringVar(&app.opts.defaultSystemPrompt, "default-system-prompt", "", "Set the default system prompt for new chats")
	f.StringVar(&app.opts.systemPrompt, "system-prompt", "", "Replace the system prompt of the active chat")
	f.StringVarP(&app.opts.sendMessage, "send-message", "m", "", "Send a message to the active chat")
	f.StringVarP(&app.opts.tempChat, "temp-chat", "t", "", "Send a message in this console's temporary chat")
	f.BoolVarP(&app.opts.edit, "edit", "e", false, "Edit a message and resend: -e [INDEX|last] MESSAGE")
	f.BoolVar(&app.opts.tempFlush, "temp-flush", false, "Remove all temporary chats")
	f.StringVarP(&app.opts.execute, "execute", "x", "", "Run a shell command and add it with its output to the active chat")
	f.BoolVar(&app.opts.listMessages, "list-messages", false, "Print the messages of the active chat, or of: --list-messages TITLE")
	f.BoolVar(&app.opts.currentChatTitle, "current-chat-title", false, "Print the title of the active chat")

	f.BoolVarP(&app.cfg.Interactive, "interactive", "i", false, "Interactive chat mode")
	f.BoolVarP(&app.cfg.Render, "render", "r", false, "Render markdown with colors and formatting")
	f.BoolVarP(&app.cfg.Verbose, "verbose", "v", false, "Enable debug output")
	f.StringVar(&app.cfg.Model, "model", "", "Model name (default depends on the provider)")
	f.StringVar(&app.cfg.Storage, "storage", "", "Transcript storage backend: file or sqlite")

	rootCmd.AddCommand(app.newProviderCmd())
	rootCmd.AddCommand(app.newSetAPIKeyCmd())
	rootCmd.AddCommand(app.newSetTemperatureCmd())
	rootCmd.AddCommand(app.newConfigCmd())

	return rootCmd
}

func (app *App) run(cmd *cobra.Command, args []string) error {
	app.setupLogging()

	if err := app.ensureConfig(); err != nil {
		return err
	}
	// Settings from the environment and config file are known now
	app.setupLogging()
	closeLog, err := app.openLogFile()
	if err != nil {
		return err
	}
	defer closeLog()

	if app.cfg.Render {
		if err := display.InitRenderer(); err != nil {
			app.logger.Warn("Failed to initialize renderer", logging.Fields{"error": err.Error()})
		}
	}

	if err := app.open(); err != nil {
		return err
	}
	defer app.close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return app.dispatch(ctx, cmd, args)
}

func (app *App) setupLogging() {
	level := logging.LevelWarn
	if app.cfg.LogLevel != "" {
		level = logging.ParseLevel(app.cfg.LogLevel)
	}
	if app.cfg.Verbose {
		level = logging.LevelDebug
	}
	app.logger.SetLevel(level)
}

// openLogFile sends log output to the configured log file. The returned
// func restores stderr and closes the file.
func (app *App) openLogFile() (func(), error) {
	if app.cfg.LogFile == "" {
		return func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(app.cfg.LogFile), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(app.cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	app.logger.SetOutput(f)
	return func() {
		app.logger.Sync()
		app.logger.SetOutput(os.Stderr)
		f.Close()
	}, nil
}

// open prepares the transcript store and session manager
func (app *App) open() error {
	store, err := history.Open(app.cfg.Storage, app.cfg.StateDir, app.logger)
	if err != nil {
		return fmt.Errorf("failed to open transcript store: %w", err)
	}
	app.store = store
	app.sessions = session.NewManager(app.cfg.StateDir, store, app.logger)
	app.rules = settings.NewManager(app.cfg.StateDir, app.logger)
	app.rules.Load()
	return nil
}

func (app *App) close() {
	if app.store != nil {
		if err := app.store.Close(); err != nil {
			app.logger.Warn("Failed to close transcript store", logging.Fields{"error": err.Error()})
		}
	}
	app.store, app.sessions, app.rules, app.engine = nil, nil, nil, nil
}

// turnEngine builds the conversation engine on first use
func (app *App) turnEngine(ctx context.Context) (*engine.Engine, error) {
	if app.engine != nil {
		return app.engine, nil
	}
	oracle, err := app.newOracle(ctx, app.cfg, app.logger)
	if err != nil {
		return nil, err
	}

	exec := executor.NewExecutor()
	exec.SetLogger(app.logger)
	console := &display.Console{Verbose: app.cfg.Verbose}

	interactive := tools.NewInteractiveShell(exec, app.confirmer, console, app.logger)
	interactive.SetPolicy(app.rules)
	direct := tools.NewDirectShell(exec, console, app.logger)
	direct.SetPolicy(app.rules)

	registry := tools.NewRegistry(interactive, tools.NewCodeEval(app.logger))
	registry.AddHidden(direct)

	e := engine.New(app.store, oracle, registry, app.sessions)
	e.SetIndicator(app.indicator)
	e.SetObserver(console)
	e.SetLogger(app.logger)
	app.engine = e
	return e, nil
}

// showReply prints the final answer of a turn
func (app *App) showReply(content string) {
	if content == "" {
		return
	}
	if app.cfg.Render {
		display.ShowContentRendered(content)
		return
	}
	display.ShowContent(content)
}

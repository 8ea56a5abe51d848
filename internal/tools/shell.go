package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/quocvuong92/ai-shell/internal/api"
	"github.com/quocvuong92/ai-shell/internal/executor"
	"github.com/quocvuong92/ai-shell/internal/logging"
)

// Tool names
const (
	InteractiveShellName = "interactive_shell_tool"
	DirectShellName      = "direct_shell_tool"
	CodeEvalName         = "run_go_code"
)

// CancelledByUser is returned when the user declines a proposed command
const CancelledByUser = "Command cancelled by user."

// Confirmer asks the user to accept or edit a proposed command
type Confirmer interface {
	// Confirm returns the command to run; empty means the user declined
	Confirm(ctx context.Context, command string, risk executor.RiskLevel) (string, error)
}

// Output shows tool activity to the user
type Output interface {
	CommandStarted(command string)
	CommandFinished(result *executor.ExecutionResult)
}

// Policy vetoes commands before they run
type Policy interface {
	// Blocked returns the rule that forbids command, if any
	Blocked(command string) (rule string, blocked bool)
}

type nopOutput struct{}

func (nopOutput) CommandStarted(string)                      {}
func (nopOutput) CommandFinished(*executor.ExecutionResult) {}

var commandParams = api.StringParams([2]string{"command", "The shell command to run"})

// DirectShell runs commands without confirmation
type DirectShell struct {
	exec   executor.CommandExecutor
	out    Output
	policy Policy
	logger *logging.Logger
}

// NewDirectShell creates the direct-run shell tool
func NewDirectShell(exec executor.CommandExecutor, out Output, logger *logging.Logger) *DirectShell {
	if out == nil {
		out = nopOutput{}
	}
	if logger == nil {
		logger = logging.DefaultLogger
	}
	return &DirectShell{exec: exec, out: out, logger: logger}
}

// SetPolicy installs the rules checked before each command
func (t *DirectShell) SetPolicy(p Policy) { t.policy = p }

func (t *DirectShell) Name() string { return DirectShellName }

func (t *DirectShell) Description() string {
	return "Executes a console command directly without user confirmation and returns its output."
}

func (t *DirectShell) Parameters() map[string]any { return commandParams }

// Invoke runs args["command"]
func (t *DirectShell) Invoke(ctx context.Context, args map[string]any) string {
	command, ok := stringArg(args, "command")
	if !ok {
		return missingArg("command")
	}
	if msg, blocked := checkPolicy(t.policy, command); blocked {
		return msg
	}
	return runCommand(ctx, t.exec, t.out, t.logger, command)
}

// InteractiveShell shows each command to the user, who may edit or decline
// it before it runs
type InteractiveShell struct {
	exec    executor.CommandExecutor
	confirm Confirmer
	out     Output
	policy  Policy
	logger  *logging.Logger
}

// NewInteractiveShell creates the confirm-and-run shell tool
func NewInteractiveShell(exec executor.CommandExecutor, confirm Confirmer, out Output, logger *logging.Logger) *InteractiveShell {
	if out == nil {
		out = nopOutput{}
	}
	if logger == nil {
		logger = logging.DefaultLogger
	}
	return &InteractiveShell{exec: exec, confirm: confirm, out: out, logger: logger}
}

// SetPolicy installs the rules checked against each proposed command
func (t *InteractiveShell) SetPolicy(p Policy) { t.policy = p }

func (t *InteractiveShell) Name() string { return InteractiveShellName }

func (t *InteractiveShell) Description() string {
	return "Use this tool to run console commands and view the output. " +
		"The user reviews the proposed command and may edit it before it runs; " +
		"the output of the command that actually ran is returned."
}

func (t *InteractiveShell) Parameters() map[string]any { return commandParams }

// Invoke asks for confirmation, then runs the accepted command
func (t *InteractiveShell) Invoke(ctx context.Context, args map[string]any) string {
	command, ok := stringArg(args, "command")
	if !ok {
		return missingArg("command")
	}
	// Only the proposal is checked; what the user types is theirs to run
	if msg, blocked := checkPolicy(t.policy, command); blocked {
		return msg
	}

	edited, err := t.confirm.Confirm(ctx, command, executor.ClassifyCommand(command))
	if err != nil {
		if ctx.Err() != nil {
			return "Error: " + ctx.Err().Error()
		}
		return "Error: " + err.Error()
	}
	edited = strings.TrimSpace(edited)
	if edited == "" {
		t.logger.Info("Command declined", logging.Fields{"command": command})
		return CancelledByUser
	}
	if edited != command {
		t.logger.Debug("Command edited", logging.Fields{"proposed": command, "command": edited})
	}
	return runCommand(ctx, t.exec, t.out, t.logger, edited)
}

func checkPolicy(p Policy, command string) (string, bool) {
	if p == nil {
		return "", false
	}
	rule, blocked := p.Blocked(command)
	if !blocked {
		return "", false
	}
	return fmt.Sprintf("Error: command blocked by deny rule %q", rule), true
}

func runCommand(ctx context.Context, exec executor.CommandExecutor, out Output, logger *logging.Logger, command string) string {
	out.CommandStarted(command)
	result, err := exec.Execute(ctx, command)
	if err != nil && result == nil {
		logger.Error("Command failed to start", err, logging.Fields{"command": command})
		return "Error: " + err.Error()
	}
	out.CommandFinished(result)
	if !result.IsSuccess() {
		logger.Warn("Command failed", logging.Fields{"command": command, "exit_code": result.ExitCode})
	}
	return result.FormatResult()
}

package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/quocvuong92/ai-shell/internal/constants"
	"github.com/quocvuong92/ai-shell/internal/logging"
)

// ExecutionResult is the captured outcome of one shell command
type ExecutionResult struct {
	Command  string
	Output   string // stdout
	Error    string // stderr, or the failure reason when the command did not run
	ExitCode int
	Duration time.Duration
}

// IsSuccess reports whether the command exited with status zero
func (r *ExecutionResult) IsSuccess() bool {
	return r != nil && r.ExitCode == 0
}

// FormatResult renders the result as tool output: stdout on success,
// "Error: <stderr>" otherwise.
func (r *ExecutionResult) FormatResult() string {
	if r == nil {
		return "Error: command did not run"
	}
	if r.IsSuccess() {
		return r.Output
	}
	msg := strings.TrimSpace(r.Error)
	if msg == "" {
		msg = fmt.Sprintf("command exited with status %d", r.ExitCode)
	}
	return "Error: " + msg
}

const waitDelay = 500 * time.Millisecond

// Executor runs shell commands through the platform shell
type Executor struct {
	timeout time.Duration
	shell   []string
	logger  *logging.Logger
}

// NewExecutor creates an executor using sh -c (cmd /C on Windows)
func NewExecutor() *Executor {
	shell := []string{"sh", "-c"}
	if runtime.GOOS == "windows" {
		shell = []string{"cmd", "/C"}
	}
	return &Executor{
		timeout: constants.DefaultCommandTimeout,
		shell:   shell,
		logger:  logging.DefaultLogger,
	}
}

// SetTimeout bounds each command; zero disables the bound
func (e *Executor) SetTimeout(timeout time.Duration) {
	e.timeout = timeout
}

// SetLogger replaces the executor's logger
func (e *Executor) SetLogger(logger *logging.Logger) {
	if logger != nil {
		e.logger = logger
	}
}

// Execute runs command and captures stdout and stderr.
// A non-zero exit is reported through the result, not the error; the error
// is non-nil only when the command could not be started or ctx ended.
func (e *Executor) Execute(ctx context.Context, command string) (*ExecutionResult, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	args := append(append([]string{}, e.shell[1:]...), command)
	cmd := exec.CommandContext(ctx, e.shell[0], args...)
	// Grandchildren may keep the output pipes open after the shell is killed
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result := &ExecutionResult{
		Command:  command,
		Output:   stdout.String(),
		Error:    stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case ctx.Err() != nil:
			result.ExitCode = -1
			if result.Error == "" {
				result.Error = ctx.Err().Error()
			}
			return result, ctx.Err()
		case errors.As(err, &exitErr):
			result.ExitCode = exitErr.ExitCode()
			if result.Error == "" {
				result.Error = fmt.Sprintf("command exited with status %d", result.ExitCode)
			}
		default:
			result.ExitCode = -1
			result.Error = err.Error()
			return result, fmt.Errorf("failed to run command: %w", err)
		}
	}

	e.logger.Debug("Command executed", logging.Fields{
		"command":     command,
		"exit_code":   result.ExitCode,
		"duration_ms": result.Duration.Milliseconds(),
	})
	return result, nil
}

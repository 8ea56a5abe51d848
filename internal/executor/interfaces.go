// Package executor runs shell commands on behalf of the shell tools and
// classifies how risky a command looks before the user confirms it.
package executor

import (
	"context"
	"time"
)

// CommandExecutor defines the interface for executing shell commands.
// This interface enables dependency injection and easier testing.
type CommandExecutor interface {
	// Execute runs a shell command and returns the result
	Execute(ctx context.Context, command string) (*ExecutionResult, error)

	// SetTimeout sets the command execution timeout
	SetTimeout(timeout time.Duration)
}

// Ensure concrete types implement the interfaces
var _ CommandExecutor = (*Executor)(nil)

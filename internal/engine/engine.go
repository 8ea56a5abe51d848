// Package engine runs conversation turns.
//
// A turn appends the user's message to the session transcript, then
// alternates between asking the model and running the tools it requests
// until the model answers without tool calls. The transcript is written back
// once, after the turn completes. A failed or cancelled turn writes nothing.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/quocvuong92/ai-shell/internal/api"
	"github.com/quocvuong92/ai-shell/internal/history"
	"github.com/quocvuong92/ai-shell/internal/logging"
	"github.com/quocvuong92/ai-shell/internal/tools"
)

// Engine errors
var (
	ErrInvalidIndex = errors.New("invalid message index")
	ErrNoDirectRun  = errors.New("direct shell tool is not registered")
)

// Indicator shows progress while the model is working
type Indicator interface {
	Start(message string)
	Stop()
}

// Observer is told about turn events as they happen
type Observer interface {
	// UserMessage reports the appended user message and its ordinal among
	// the user messages of the transcript
	UserMessage(index int, content string)
	// ToolRequested reports a tool call before it runs
	ToolRequested(call history.ToolCall)
}

// PromptSource provides the system prompt used to repair transcripts
type PromptSource interface {
	DefaultSystemPrompt() string
}

type nopIndicator struct{}

func (nopIndicator) Start(string) {}
func (nopIndicator) Stop()        {}

type nopObserver struct{}

func (nopObserver) UserMessage(int, string)         {}
func (nopObserver) ToolRequested(history.ToolCall) {}

// Engine threads a session transcript through the model and tools
type Engine struct {
	store     history.Store
	oracle    api.Oracle
	tools     *tools.Registry
	prompts   PromptSource
	indicator Indicator
	observer  Observer
	logger    *logging.Logger
}

// New creates an engine
func New(store history.Store, oracle api.Oracle, registry *tools.Registry, prompts PromptSource) *Engine {
	return &Engine{
		store:     store,
		oracle:    oracle,
		tools:     registry,
		prompts:   prompts,
		indicator: nopIndicator{},
		observer:  nopObserver{},
		logger:    logging.DefaultLogger,
	}
}

// SetIndicator sets the progress indicator shown around model calls
func (e *Engine) SetIndicator(ind Indicator) {
	if ind == nil {
		ind = nopIndicator{}
	}
	e.indicator = ind
}

// SetObserver sets the receiver of turn events
func (e *Engine) SetObserver(obs Observer) {
	if obs == nil {
		obs = nopObserver{}
	}
	e.observer = obs
}

// SetLogger sets the logger
func (e *Engine) SetLogger(logger *logging.Logger) {
	if logger != nil {
		e.logger = logger
	}
}

// RunTurn sends utterance in the session and returns the model's final
// answer, which may be empty.
func (e *Engine) RunTurn(ctx context.Context, sessionID, utterance string) (string, error) {
	return e.turn(ctx, sessionID, e.load(sessionID), utterance)
}

// turn appends utterance to msgs, runs the tool loop and saves the result.
// Nothing is written when the loop fails.
func (e *Engine) turn(ctx context.Context, sessionID string, msgs []history.Message, utterance string) (string, error) {
	log := e.logger.WithFields(logging.Fields{"session": sessionID})
	msgs = append(msgs, history.User(utterance))

	index := len(history.UserIndexes(msgs)) - 1
	log.Info("User message", logging.Fields{"index": index})
	e.observer.UserMessage(index, utterance)

	msgs, reply, err := e.converse(ctx, msgs)
	if err != nil {
		log.Debug("Turn failed", logging.Fields{"error": err.Error()})
		return "", err
	}
	if err := e.save(sessionID, msgs); err != nil {
		return "", err
	}
	return reply.Content, nil
}

// RunCommandTurn runs command with the direct shell tool and records the
// command and its output as a user message. The model is not called.
func (e *Engine) RunCommandTurn(ctx context.Context, sessionID, command string) (string, error) {
	tool, ok := e.tools.Lookup(tools.DirectShellName)
	if !ok {
		return "", ErrNoDirectRun
	}
	msgs := e.load(sessionID)

	output := tool.Invoke(ctx, map[string]any{"command": command})
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("command aborted: %w", err)
	}
	e.logger.Debug("Command output", logging.Fields{"command": command, "bytes": len(output)})

	msgs = append(msgs, history.User(fmt.Sprintf("CMD> %s\n%s", command, output)))
	if err := e.save(sessionID, msgs); err != nil {
		return "", err
	}
	return output, nil
}

// EditAndResend drops the message at index and everything after it, then
// runs a turn with text. A nil index selects the last user message. The
// stored transcript is replaced only when the turn succeeds.
func (e *Engine) EditAndResend(ctx context.Context, sessionID string, index *int, text string) (string, error) {
	msgs := e.store.Read(sessionID)

	var at int
	if index == nil {
		users := history.UserIndexes(msgs)
		if len(users) == 0 {
			return "", fmt.Errorf("%w: no user message to edit", ErrInvalidIndex)
		}
		at = users[len(users)-1]
	} else {
		at = *index
	}
	if at < 0 || at >= len(msgs) {
		return "", fmt.Errorf("%w: %d (transcript has %d messages)", ErrInvalidIndex, at, len(msgs))
	}

	e.logger.Debug("Truncating transcript", logging.Fields{"session": sessionID, "index": at, "dropped": len(msgs) - at})
	return e.turn(ctx, sessionID, e.repair(sessionID, msgs[:at:at]), text)
}

// converse calls the model until it answers without tool calls
func (e *Engine) converse(ctx context.Context, msgs []history.Message) ([]history.Message, history.Message, error) {
	defs := e.tools.Definitions()
	for {
		reply, err := e.complete(ctx, msgs, defs)
		if err != nil {
			return nil, history.Message{}, err
		}
		msgs = append(msgs, reply)
		if !reply.HasToolCalls() {
			return msgs, reply, nil
		}

		e.logger.Debug("Model requested tools", logging.Fields{"count": len(reply.ToolCalls)})
		for _, call := range reply.ToolCalls {
			msgs = append(msgs, e.invoke(ctx, call))
			if err := ctx.Err(); err != nil {
				return nil, history.Message{}, fmt.Errorf("turn aborted: %w", err)
			}
		}
	}
}

func (e *Engine) complete(ctx context.Context, msgs []history.Message, defs []api.Tool) (history.Message, error) {
	e.indicator.Start("Thinking")
	defer e.indicator.Stop()

	reply, err := e.oracle.Complete(ctx, msgs, defs)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return history.Message{}, fmt.Errorf("turn aborted: %w", ctxErr)
		}
		return history.Message{}, fmt.Errorf("model request failed: %w", err)
	}
	reply.Role = history.RoleAssistant
	return reply, nil
}

// invoke runs one tool call and returns the tool message answering it
func (e *Engine) invoke(ctx context.Context, call history.ToolCall) (result history.Message) {
	tool, ok := e.tools.Lookup(call.Name)
	if !ok {
		e.logger.Warn("Unknown tool requested", logging.Fields{"tool": call.Name, "call_id": call.ID})
		return history.ToolResult(call.ID, tools.UnknownToolResult(call.Name))
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Tool panicked", fmt.Errorf("%v", r), logging.Fields{"tool": call.Name})
			result = history.ToolResult(call.ID, fmt.Sprintf("Error: tool %s failed: %v", call.Name, r))
		}
	}()

	e.observer.ToolRequested(call)
	output := tool.Invoke(ctx, call.Arguments)
	e.logger.Debug("Tool finished", logging.Fields{"tool": call.Name, "call_id": call.ID, "bytes": len(output)})
	return history.ToolResult(call.ID, output)
}

// load reads the transcript and restores a missing leading system message
func (e *Engine) load(sessionID string) []history.Message {
	return e.repair(sessionID, e.store.Read(sessionID))
}

func (e *Engine) repair(sessionID string, msgs []history.Message) []history.Message {
	msgs, repaired := history.EnsureSystemPrompt(msgs, e.prompts.DefaultSystemPrompt())
	if repaired {
		e.logger.Debug("Restored missing system prompt", logging.Fields{"session": sessionID})
	}
	return msgs
}

func (e *Engine) save(sessionID string, msgs []history.Message) error {
	if err := e.store.Write(sessionID, msgs); err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}
	return nil
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/quocvuong92/ai-shell/internal/config"
	"github.com/quocvuong92/ai-shell/internal/history"
)

// Message is a chat completions wire message
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall represents a function call from the model
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the JSON-encoded arguments of a call
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ChatRequest represents the Chat Completions API request
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Tools       []Tool    `json:"tools,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
}

// Usage represents token usage statistics
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Choice represents a response choice
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason,omitempty"`
}

// ChatResponse represents the API response
type ChatResponse struct {
	ID      string   `json:"id"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// ErrorResponse represents an OpenAI-style error body
type ErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint
type OpenAIClient struct {
	httpClient *http.Client
	config     *config.Config
	turn       int
}

// NewOpenAIClient creates a new OpenAI-compatible client
func NewOpenAIClient(cfg *config.Config, httpClient *http.Client) *OpenAIClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OpenAIClient{
		httpClient: httpClient,
		config:     cfg,
	}
}

// Complete sends the transcript and returns the assistant reply
func (c *OpenAIClient) Complete(ctx context.Context, msgs []history.Message, tools []Tool) (history.Message, error) {
	wire, err := toWireMessages(msgs)
	if err != nil {
		return history.Message{}, err
	}

	temperature := c.config.Temperature
	reqBody := ChatRequest{
		Model:       c.config.Model,
		Messages:    wire,
		Tools:       tools,
		Temperature: &temperature,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return history.Message{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.ChatCompletionsURL(), bytes.NewBuffer(jsonData))
	if err != nil {
		return history.Message{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.OpenAIAPIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return history.Message{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return history.Message{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		errMsg := fmt.Sprintf("status code %d", resp.StatusCode)
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
			errMsg = errResp.Error.Message
		}
		return history.Message{}, &APIError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("OpenAI API error: %s", errMsg),
		}
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return history.Message{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return history.Message{}, fmt.Errorf("response contained no choices")
	}

	c.turn++
	return fromWireMessage(chatResp.Choices[0].Message, c.turn)
}

// toWireMessages converts a transcript to chat completions messages
func toWireMessages(msgs []history.Message) ([]Message, error) {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		wm := Message{Role: m.Role, Content: m.Content, ToolCallID: m.ToolCallID}
		for _, tc := range m.ToolCalls {
			args := tc.Arguments
			if args == nil {
				args = map[string]any{}
			}
			encoded, err := json.Marshal(args)
			if err != nil {
				return nil, fmt.Errorf("failed to encode arguments of %s: %w", tc.Name, err)
			}
			wm.ToolCalls = append(wm.ToolCalls, ToolCall{
				ID:       tc.ID,
				Type:     "function",
				Function: FunctionCall{Name: tc.Name, Arguments: string(encoded)},
			})
		}
		out = append(out, wm)
	}
	return out, nil
}

// fromWireMessage converts the reply to a transcript message
func fromWireMessage(wm Message, turn int) (history.Message, error) {
	msg := history.Assistant(wm.Content)
	for i, tc := range wm.ToolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return history.Message{}, fmt.Errorf("invalid arguments for tool %s: %w", tc.Function.Name, err)
			}
		}
		msg.ToolCalls = append(msg.ToolCalls, history.ToolCall{
			ID:        callID(tc.ID, turn, i),
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	return msg, nil
}

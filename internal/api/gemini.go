package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/quocvuong92/ai-shell/internal/config"
	"github.com/quocvuong92/ai-shell/internal/history"
)

const (
	geminiRoleUser  = "user"
	geminiRoleModel = "model"
)

// GeminiClient is the Google Gemini backend
type GeminiClient struct {
	client *genai.Client
	config *config.Config
	turn   int
}

// NewGeminiClient creates a Gemini client using the Gemini API backend
func NewGeminiClient(ctx context.Context, cfg *config.Config, httpClient *http.Client) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.GoogleAPIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClient{client: client, config: cfg}, nil
}

// Complete sends the transcript and returns the assistant reply
func (c *GeminiClient) Complete(ctx context.Context, msgs []history.Message, tools []Tool) (history.Message, error) {
	system, contents := toGeminiContents(msgs)

	temperature := float32(c.config.Temperature)
	genCfg := &genai.GenerateContentConfig{
		Temperature: &temperature,
		Tools:       toGeminiTools(tools),
	}
	if system != "" {
		genCfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.config.Model, contents, genCfg)
	if err != nil {
		return history.Message{}, fmt.Errorf("Gemini API error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return history.Message{}, fmt.Errorf("Gemini returned no candidates")
	}

	c.turn++
	return fromGeminiContent(resp.Candidates[0].Content, c.turn), nil
}

// toGeminiContents splits out the system prompt and converts the rest.
// Consecutive tool messages become one user turn of function responses.
func toGeminiContents(msgs []history.Message) (string, []*genai.Content) {
	var system []string
	var contents []*genai.Content
	names := make(map[string]string)

	for _, m := range msgs {
		switch m.Role {
		case history.RoleSystem:
			system = append(system, m.Content)

		case history.RoleUser:
			contents = append(contents, &genai.Content{
				Role:  geminiRoleUser,
				Parts: []*genai.Part{{Text: m.Content}},
			})

		case history.RoleAssistant:
			content := &genai.Content{Role: geminiRoleModel}
			if m.Content != "" {
				content.Parts = append(content.Parts, &genai.Part{Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				names[tc.ID] = tc.Name
				content.Parts = append(content.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{ID: tc.ID, Name: tc.Name, Args: tc.Arguments},
				})
			}
			if len(content.Parts) == 0 {
				content.Parts = []*genai.Part{{Text: ""}}
			}
			contents = append(contents, content)

		case history.RoleTool:
			part := &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       m.ToolCallID,
				Name:     names[m.ToolCallID],
				Response: map[string]any{"output": m.Content},
			}}
			if n := len(contents); n > 0 && isFunctionResponseTurn(contents[n-1]) {
				contents[n-1].Parts = append(contents[n-1].Parts, part)
			} else {
				contents = append(contents, &genai.Content{Role: geminiRoleUser, Parts: []*genai.Part{part}})
			}
		}
	}
	return strings.Join(system, "\n\n"), contents
}

func isFunctionResponseTurn(c *genai.Content) bool {
	return c.Role == geminiRoleUser && len(c.Parts) > 0 && c.Parts[0].FunctionResponse != nil
}

// fromGeminiContent converts a model turn to an assistant message
func fromGeminiContent(content *genai.Content, turn int) history.Message {
	var text strings.Builder
	msg := history.Message{Role: history.RoleAssistant}
	for _, part := range content.Parts {
		if part == nil || part.Thought {
			continue
		}
		if part.FunctionCall != nil {
			args := part.FunctionCall.Args
			if args == nil {
				args = map[string]any{}
			}
			msg.ToolCalls = append(msg.ToolCalls, history.ToolCall{
				ID:        callID(part.FunctionCall.ID, turn, len(msg.ToolCalls)),
				Name:      part.FunctionCall.Name,
				Arguments: args,
			})
			continue
		}
		text.WriteString(part.Text)
	}
	msg.Content = text.String()
	return msg
}

// toGeminiTools converts function tool definitions to declarations
func toGeminiTools(tools []Tool) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			Parameters:  toGeminiSchema(t.Function.Parameters),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// toGeminiSchema converts the JSON schema subset used by the tools
func toGeminiSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return nil
	}
	s := &genai.Schema{}
	if t, ok := schema["type"].(string); ok {
		s.Type = genai.Type(strings.ToUpper(t))
	}
	if d, ok := schema["description"].(string); ok {
		s.Description = d
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, p := range props {
			if pm, ok := p.(map[string]any); ok {
				s.Properties[name] = toGeminiSchema(pm)
			}
		}
	}
	switch req := schema["required"].(type) {
	case []string:
		s.Required = append(s.Required, req...)
	case []any:
		for _, r := range req {
			if name, ok := r.(string); ok {
				s.Required = append(s.Required, name)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		s.Items = toGeminiSchema(items)
	}
	return s
}

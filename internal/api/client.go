package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/quocvuong92/ai-shell/internal/config"
	"github.com/quocvuong92/ai-shell/internal/constants"
	"github.com/quocvuong92/ai-shell/internal/history"
	"github.com/quocvuong92/ai-shell/internal/logging"
)

// Oracle defines the interface for model backends.
// Both OpenAIClient and GeminiClient implement this interface,
// allowing transparent switching between providers.
type Oracle interface {
	// Complete sends the transcript and returns the next assistant message.
	// Tool call ids in the reply are unique within the reply and are echoed
	// back verbatim by later tool messages.
	Complete(ctx context.Context, msgs []history.Message, tools []Tool) (history.Message, error)
}

// Ensure both clients implement Oracle interface
var (
	_ Oracle = (*OpenAIClient)(nil)
	_ Oracle = (*GeminiClient)(nil)
)

// APIError represents an error with status code
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// NewOracle creates the backend selected by cfg.Provider
func NewOracle(ctx context.Context, cfg *config.Config, logger *logging.Logger) (Oracle, error) {
	if logger == nil {
		logger = logging.DefaultLogger
	}
	httpClient := newHTTPClient(cfg, logger)

	switch cfg.Provider {
	case constants.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, config.ErrAPIKeyNotFound
		}
		return NewOpenAIClient(cfg, httpClient), nil
	case constants.ProviderGoogle:
		if cfg.GoogleAPIKey == "" {
			return nil, config.ErrAPIKeyNotFound
		}
		c, err := NewGeminiClient(ctx, cfg, httpClient)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "":
		return nil, config.ErrProviderNotSet
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidProvider, cfg.Provider)
	}
}

// newHTTPClient returns the client shared by the backends; in verbose mode
// every round trip is logged with credentials redacted.
func newHTTPClient(cfg *config.Config, logger *logging.Logger) *http.Client {
	transport := http.DefaultTransport
	if cfg.Verbose {
		transport = logging.NewLoggingRoundTripper(http.DefaultTransport, logging.NewHTTPLogger(logger), true)
	}
	return &http.Client{
		Timeout:   constants.DefaultAPITimeout,
		Transport: transport,
	}
}

// callID returns id, or a positional id when the backend sent none
func callID(id string, turn, n int) string {
	if id != "" {
		return id
	}
	return fmt.Sprintf("call_%d_%d", turn, n)
}

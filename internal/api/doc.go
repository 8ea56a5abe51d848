// Package api provides the model oracle: given the full transcript and the
// tool definitions it returns exactly one assistant message.
//
// # Architecture
//
//   - client.go: Oracle interface, APIError and the NewOracle factory
//   - openai.go: OpenAI-compatible chat completions client (net/http)
//   - gemini.go: Google Gemini client (google.golang.org/genai)
//   - tools.go: function tool definitions sent with every request
//
// Both backends convert between history.Message and their wire format.
// Tool call arguments are objects in the transcript; the OpenAI wire format
// carries them as JSON strings.
//
// # Usage
//
//	cfg := config.NewConfig()
//	if err := cfg.Validate(); err != nil {
//	    // prompt for the missing setting
//	}
//	oracle, err := api.NewOracle(ctx, cfg, logger)
//	if err != nil {
//	    // handle error
//	}
//	reply, err := oracle.Complete(ctx, transcript, registry.Definitions())
//
// No call is retried: a failed request fails the turn.
package api

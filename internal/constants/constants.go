// Package constants provides shared constants used across the application
// to avoid circular dependencies between packages.
package constants

import "time"

// Timeout constants used across the application
const (
	// DefaultAPITimeout bounds a single HTTP round trip to the model provider.
	// The turn loop itself enforces no timeout.
	DefaultAPITimeout = 120 * time.Second
	// DefaultCommandTimeout of zero means shell commands run until they exit
	DefaultCommandTimeout = 0 * time.Second
)

// Application defaults
const (
	AppName = "ai-shell"

	ProviderOpenAI = "openai"
	ProviderGoogle = "google"

	DefaultProvider    = ProviderGoogle
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultGoogleModel = "gemini-2.0-flash"
	DefaultOpenAIURL   = "https://api.openai.com/v1"
	DefaultTemperature = 0.0

	// DefaultSystemPrompt seeds the prompt config the first time a session is created.
	DefaultSystemPrompt = `You are a helpful assistant running inside the user's terminal.
You can run shell commands with the interactive_shell_tool (the user reviews and may edit each command before it runs)
and evaluate Go snippets with run_go_code. Prefer short, safe, read-only commands, explain what you are about to do,
and base your answers on the real command output you receive. When a command fails, read the error and adjust.`
)

// Session naming
const (
	// EphemeralPrefix marks console sessions that were created automatically
	// and can be removed in bulk.
	EphemeralPrefix = "temp_"
)

// Persisted state layout, relative to the state directory
const (
	ChatDirName    = "chats"
	ChatMapFile    = "chat_map.json"
	SessionFile    = "session.json"
	PromptFile     = "config.json"
	SQLiteFileName = "chats.db"
	SettingsFile   = "settings.json"
)

// ProjectDirName holds per-project files in the working directory
const ProjectDirName = "." + AppName

// Storage backends for transcripts
const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
)

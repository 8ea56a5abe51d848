// Package cmd implements the CLI commands for ai-shell.
//
// # Architecture
//
// This package is organized into the following logical groups:
//
// ## Core CLI
//
//   - root.go: Main entry point, App struct, cobra command setup and flags
//   - actions.go: The session and messaging actions selected by the flags
//   - provider.go: First-run setup and the provider, set-api-key,
//     set-temperature and config commands
//
// ## Interactive Mode
//
//   - interactive.go: The go-prompt REPL, multiline input and per-turn
//     cancellation
//   - slash_commands.go: Slash command handlers (/chat, /edit, /run, etc.)
//
// # Key Components
//
// ## App
//
// The App struct holds configuration and the collaborators of one
// invocation: the transcript store, the session manager and the
// conversation engine. It's created in Execute() and passed through
// command handlers. Tests replace the oracle factory, the command
// confirmer and the setup prompts.
//
// ## Turns
//
// Every message goes through engine.Engine, which lets the model call the
// shell and Go evaluation tools until it answers in plain text. Commands
// the model proposes are shown for review and may be edited or declined
// before they run.
//
// # Usage
//
//	// Main entry point
//	func main() {
//	    cmd.Execute()
//	}
package cmd

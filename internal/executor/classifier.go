package executor

import (
	"regexp"
	"strings"
)

// RiskLevel is a rough label for what a command might do to the system.
// It is shown next to a proposed command; the user still decides.
type RiskLevel int

const (
	// Safe commands only read state
	Safe RiskLevel = iota
	// NeedsConfirm commands may modify state
	NeedsConfirm
	// Dangerous commands are potentially destructive
	Dangerous
)

// Read-only commands, POSIX and Windows
var safeCommands = map[string]bool{
	"ls": true, "cat": true, "pwd": true, "echo": true, "head": true, "tail": true,
	"grep": true, "find": true, "which": true, "whoami": true, "date": true,
	"wc": true, "sort": true, "uniq": true, "diff": true, "env": true,
	"printenv": true, "df": true, "du": true, "ps": true, "tree": true,
	"file": true, "stat": true, "uname": true, "hostname": true,
	"dir": true, "type": true, "where": true, "ver": true, "ipconfig": true,
	"tasklist": true, "systeminfo": true,
}

// Read-only subcommands of common tools
var safePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^git\s+(status|log|diff|branch|show|remote)\b`),
	regexp.MustCompile(`^go\s+(list|version|env|doc)\b`),
	regexp.MustCompile(`^docker\s+(ps|images|inspect|logs)\b`),
	regexp.MustCompile(`^kubectl\s+(get|describe|logs)\b`),
	regexp.MustCompile(`^pip\s+(list|show|freeze)\b`),
	regexp.MustCompile(`(?i)^Get-(ChildItem|Content|Process|Location)\b`),
}

// Destructive or privilege-changing patterns
var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`rm\s+(-[rf]*\s+)?/`),
	regexp.MustCompile(`rm\s+-rf\s+[~$*]`),
	regexp.MustCompile(`\bsudo\b`),
	regexp.MustCompile(`\bsu\b`),
	regexp.MustCompile(`dd\s+if=`),
	regexp.MustCompile(`\bmkfs`),
	regexp.MustCompile(`:\(\)\s*\{`),
	regexp.MustCompile(`(curl|wget).*\|\s*(sh|bash|zsh)`),
	regexp.MustCompile(`>\s*/dev/sd`),
	regexp.MustCompile(`>\s*/etc/`),
	regexp.MustCompile(`chmod.*777`),
	regexp.MustCompile(`chown.*-R\s+`),
	regexp.MustCompile(`\|.*base64.*-d`),
	regexp.MustCompile(`(?i)\b(del|erase)\s+.*/s\b`),
	regexp.MustCompile(`(?i)\brmdir\s+.*/s\b`),
	regexp.MustCompile(`(?i)\bformat\s+[a-z]:`),
	regexp.MustCompile(`(?i)Remove-Item\b.*-Recurse`),
	regexp.MustCompile(`(?i)\bshutdown\b`),
}

// Chaining could hide a second, riskier command
var commandChainingPattern = regexp.MustCompile(`[;&|]{1,2}`)

// ClassifyCommand determines the risk level of a shell command
func ClassifyCommand(cmd string) RiskLevel {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return NeedsConfirm
	}

	for _, pattern := range dangerousPatterns {
		if pattern.MatchString(cmd) {
			return Dangerous
		}
	}

	if commandChainingPattern.MatchString(cmd) {
		return NeedsConfirm
	}

	if safeCommands[strings.ToLower(strings.Fields(cmd)[0])] {
		return Safe
	}
	for _, pattern := range safePatterns {
		if pattern.MatchString(cmd) {
			return Safe
		}
	}

	return NeedsConfirm
}

// String returns a short label for the level
func (l RiskLevel) String() string {
	switch l {
	case Safe:
		return "read-only"
	case NeedsConfirm:
		return "modifies state"
	case Dangerous:
		return "dangerous"
	default:
		return "unknown"
	}
}

// Description returns a human-readable description of the level
func (l RiskLevel) Description() string {
	switch l {
	case Safe:
		return "Safe read-only command"
	case NeedsConfirm:
		return "Command may modify system state"
	case Dangerous:
		return "Potentially dangerous command"
	default:
		return "Unknown risk level"
	}
}

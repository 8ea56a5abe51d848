package settings

import (
	"testing"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		name     string
		command  string
		pattern  string
		expected bool
	}{
		// Exact match
		{"exact match", "ls -la", "ls -la", true},
		{"exact match single word", "ls", "ls", true},

		// Colon-style patterns
		{"git:* matches git status", "git status", "git:*", true},
		{"git:* matches git commit", "git commit -m 'test'", "git:*", true},
		{"git:* doesn't match gitignore", "gitignore", "git:*", false},
		{"git:* matches just git", "git", "git:*", true},
		{"git:push matches git push", "git push origin main", "git:push", true},
		{"git:push doesn't match git pull", "git pull", "git:push", false},
		{"git:p* matches git push", "git push", "git:p*", true},

		// Glob patterns with *
		{"glob prefix", "rm -rf /tmp/x", "rm -rf *", true},
		{"glob prefix no match", "rm file", "rm -rf *", false},
		{"glob suffix", "cat secrets.env", "*.env", true},
		{"glob keeps regex chars literal", "a.b", "a?b*", false},

		// Prefix match (implicit)
		{"prefix match", "shutdown -h now", "shutdown", true},
		{"prefix no match different command", "shutdownd", "shutdown", false},

		// Blank input
		{"empty command", "", "ls", false},
		{"empty pattern", "ls", "  ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Match(tt.command, tt.pattern); got != tt.expected {
				t.Errorf("Match(%q, %q) = %v, want %v", tt.command, tt.pattern, got, tt.expected)
			}
		})
	}
}

func TestFirstMatch(t *testing.T) {
	patterns := []string{"rm -rf *", "sudo:*"}

	tests := []struct {
		name     string
		command  string
		wantRule string
		wantOK   bool
	}{
		{"plain match", "rm -rf /", "rm -rf *", true},
		{"second pattern", "sudo reboot", "sudo:*", true},
		{"chained with &&", "ls && sudo reboot", "sudo:*", true},
		{"chained with ;", "cd /tmp; rm -rf build", "rm -rf *", true},
		{"piped", "find . | sudo tee x", "sudo:*", true},
		{"no match", "ls -la | grep go", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, ok := FirstMatch(tt.command, patterns)
			if rule != tt.wantRule || ok != tt.wantOK {
				t.Errorf("FirstMatch(%q) = (%q, %v), want (%q, %v)", tt.command, rule, ok, tt.wantRule, tt.wantOK)
			}
		})
	}
}

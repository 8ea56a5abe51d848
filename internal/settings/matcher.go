package settings

import (
	"regexp"
	"strings"
)

// chainPattern separates the segments of a compound command
var chainPattern = regexp.MustCompile(`\|\||&&|[;&|\n]`)

// Match reports whether command matches a rule pattern.
// Patterns support:
//   - Exact match: "ls -la"
//   - Colon wildcard: "git:*" matches "git", "git status", "git commit -m x"
//   - Colon subcommand: "git:push" matches "git push origin main"
//   - Glob wildcard: "rm -rf *" matches "rm -rf /tmp/x"
//   - Prefix match: "shutdown" matches "shutdown -h now" but not "shutdownd"
func Match(command, pattern string) bool {
	command = strings.TrimSpace(command)
	pattern = strings.TrimSpace(pattern)
	if command == "" || pattern == "" {
		return false
	}

	if pattern == command {
		return true
	}
	if strings.Contains(pattern, ":") {
		return matchColonPattern(command, pattern)
	}
	if strings.Contains(pattern, "*") {
		return matchGlobPattern(command, pattern)
	}
	return strings.HasPrefix(command, pattern+" ")
}

// matchColonPattern matches "prefix:suffix" patterns
func matchColonPattern(command, pattern string) bool {
	prefix, suffix, _ := strings.Cut(pattern, ":")

	if !strings.HasPrefix(command, prefix+" ") && command != prefix {
		return false
	}
	rest := strings.TrimPrefix(strings.TrimPrefix(command, prefix), " ")

	if suffix == "*" {
		return true
	}
	if strings.Contains(suffix, "*") {
		return matchGlobPattern(rest, suffix)
	}
	if fields := strings.Fields(rest); len(fields) > 0 && fields[0] == suffix {
		return true
	}
	return rest == suffix
}

// matchGlobPattern matches patterns with * wildcards
func matchGlobPattern(command, pattern string) bool {
	expr := "^" + strings.ReplaceAll(regexp.QuoteMeta(pattern), `\*`, `.*`) + "$"
	re, err := regexp.Compile(expr)
	if err != nil {
		return false
	}
	return re.MatchString(command)
}

// FirstMatch checks every segment of a compound command against patterns
// and returns the first pattern that matches
func FirstMatch(command string, patterns []string) (string, bool) {
	for _, segment := range chainPattern.Split(command, -1) {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		for _, p := range patterns {
			if Match(segment, p) {
				return p, true
			}
		}
	}
	return "", false
}

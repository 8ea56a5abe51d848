package tools

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/quocvuong92/ai-shell/internal/api"
	"github.com/quocvuong92/ai-shell/internal/logging"
)

// EvalChildEnv marks a process started by CodeEval to evaluate one snippet
const EvalChildEnv = "AI_SHELL_EVAL_CHILD"

// CodeEval evaluates Go snippets in an embedded interpreter. Each snippet
// runs in a child process, so a panic in a goroutine it starts cannot take
// down the caller. Nothing carries over between calls.
type CodeEval struct {
	logger  *logging.Logger
	command func(ctx context.Context) (*exec.Cmd, error)
}

// NewCodeEval creates the code-eval tool
func NewCodeEval(logger *logging.Logger) *CodeEval {
	if logger == nil {
		logger = logging.DefaultLogger
	}
	return &CodeEval{logger: logger, command: evalChildCommand}
}

func (t *CodeEval) Name() string { return CodeEvalName }

func (t *CodeEval) Description() string {
	return "Evaluates Go code and returns what it prints. " +
		"Either a complete program (package main with func main) or a snippet of statements; " +
		"a snippet may start with import declarations. Use fmt.Println to show results. " +
		"The standard library is available."
}

func (t *CodeEval) Parameters() map[string]any {
	return api.StringParams([2]string{"code", "Go source to evaluate"})
}

// Invoke evaluates args["code"] in a child process and returns its output
func (t *CodeEval) Invoke(ctx context.Context, args map[string]any) string {
	code, ok := stringArg(args, "code")
	if !ok {
		return missingArg("code")
	}

	cmd, err := t.command(ctx)
	if err != nil {
		return "Error: failed to start evaluator: " + err.Error()
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdin = strings.NewReader(code)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	err = cmd.Run()
	out := stdout.String()
	switch {
	case err == nil:
		return out
	case ctx.Err() != nil:
		return out + "Error: evaluation cancelled"
	default:
		reason := crashReason(stderr.String(), err)
		t.logger.Error("Code evaluation crashed", err, logging.Fields{"reason": reason})
		return out + "Error: " + reason
	}
}

func evalChildCommand(ctx context.Context) (*exec.Cmd, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx, exe)
	cmd.Env = append(os.Environ(), EvalChildEnv+"=1")
	return cmd, nil
}

// crashReason returns the panic line a crashed evaluator printed, or the
// exit status when there is none
func crashReason(stderr string, err error) string {
	for _, line := range strings.Split(stderr, "\n") {
		if strings.HasPrefix(line, "panic: ") || strings.HasPrefix(line, "fatal error: ") {
			return strings.TrimSpace(line)
		}
	}
	return "evaluator " + err.Error()
}

// IsEvalChild reports whether this process was started to evaluate a snippet
func IsEvalChild() bool {
	return os.Getenv(EvalChildEnv) == "1"
}

// RunEvalChild evaluates the Go source read from r and writes the result
// to w. It returns the exit status for the evaluating process.
func RunEvalChild(r io.Reader, w io.Writer) int {
	code, err := io.ReadAll(r)
	if err != nil {
		fmt.Fprintf(w, "Error: failed to read code: %v", err)
		return 1
	}
	fmt.Fprint(w, evaluate(context.Background(), string(code), logging.Nop()))
	return 0
}

// evaluate runs code in a fresh interpreter and returns what it printed
func evaluate(ctx context.Context, code string, logger *logging.Logger) (out string) {
	var buf bytes.Buffer
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Code evaluation panicked", fmt.Errorf("%v", r))
			out = buf.String() + fmt.Sprintf("Error: panic: %v", r)
		}
	}()

	i := interp.New(interp.Options{Stdout: &buf, Stderr: &buf})
	if err := i.Use(stdlib.Symbols); err != nil {
		return "Error: failed to load standard library: " + err.Error()
	}

	var result any
	for _, src := range splitSource(code) {
		v, err := i.EvalWithContext(ctx, src)
		if err != nil {
			logger.Debug("Code evaluation failed", logging.Fields{"error": err.Error()})
			return buf.String() + "Error: " + err.Error()
		}
		result = nil
		if v.IsValid() && v.CanInterface() {
			result = v.Interface()
		}
	}

	if buf.Len() == 0 && result != nil {
		return fmt.Sprint(result)
	}
	return buf.String()
}

// splitSource separates leading import declarations from the rest of a
// snippet; the interpreter accepts an import and statements only as
// separate inputs. Complete programs are returned unchanged.
func splitSource(code string) []string {
	lines := strings.Split(code, "\n")
	var imports []string
	rest := len(lines)
	inBlock := false

scan:
	for idx, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case inBlock:
			imports = append(imports, line)
			if strings.HasPrefix(trimmed, ")") {
				inBlock = false
			}
		case strings.HasPrefix(trimmed, "package "):
			return []string{code}
		case strings.HasPrefix(trimmed, "import ("):
			imports = append(imports, line)
			inBlock = true
		case strings.HasPrefix(trimmed, "import "):
			imports = append(imports, line)
		case trimmed == "" || strings.HasPrefix(trimmed, "//"):
		default:
			rest = idx
			break scan
		}
	}

	var parts []string
	if len(imports) > 0 {
		parts = append(parts, strings.Join(imports, "\n"))
	}
	if rest < len(lines) {
		if body := strings.TrimSpace(strings.Join(lines[rest:], "\n")); body != "" {
			parts = append(parts, body)
		}
	}
	return parts
}

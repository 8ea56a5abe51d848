package tools

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quocvuong92/ai-shell/internal/executor"
	"github.com/quocvuong92/ai-shell/internal/logging"
)

// TestMain lets the test binary stand in for the evaluator child process
func TestMain(m *testing.M) {
	if IsEvalChild() {
		os.Exit(RunEvalChild(os.Stdin, os.Stdout))
	}
	os.Exit(m.Run())
}

type fakeExecutor struct {
	commands []string
	result   *executor.ExecutionResult
	err      error
}

func (f *fakeExecutor) Execute(_ context.Context, command string) (*executor.ExecutionResult, error) {
	f.commands = append(f.commands, command)
	if f.result == nil && f.err == nil {
		return &executor.ExecutionResult{Command: command, Output: "ran " + command}, nil
	}
	return f.result, f.err
}

func (f *fakeExecutor) SetTimeout(time.Duration) {}

type fakeConfirmer struct {
	answer   string
	err      error
	proposed string
	risk     executor.RiskLevel
}

func (f *fakeConfirmer) Confirm(_ context.Context, command string, risk executor.RiskLevel) (string, error) {
	f.proposed = command
	f.risk = risk
	return f.answer, f.err
}

type recordingOutput struct {
	started  []string
	finished int
}

func (r *recordingOutput) CommandStarted(command string)              { r.started = append(r.started, command) }
func (r *recordingOutput) CommandFinished(*executor.ExecutionResult) { r.finished++ }

func TestRegistry(t *testing.T) {
	exec := &fakeExecutor{}
	reg := NewRegistry(
		NewInteractiveShell(exec, &fakeConfirmer{}, nil, logging.Nop()),
		NewCodeEval(logging.Nop()),
	)
	reg.AddHidden(NewDirectShell(exec, nil, logging.Nop()))

	for _, name := range []string{InteractiveShellName, DirectShellName, CodeEvalName} {
		_, ok := reg.Lookup(name)
		assert.True(t, ok, "Lookup(%q)", name)
	}
	_, ok := reg.Lookup("rm_everything")
	assert.False(t, ok)

	defs := reg.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, InteractiveShellName, defs[0].Function.Name)
	assert.Equal(t, CodeEvalName, defs[1].Function.Name)
	assert.Equal(t, "function", defs[0].Type)
	assert.Equal(t, "object", defs[0].Function.Parameters["type"])
}

func TestUnknownToolResult(t *testing.T) {
	assert.Equal(t, `Error: unknown tool "nope"`, UnknownToolResult("nope"))
}

func TestDirectShell(t *testing.T) {
	exec := &fakeExecutor{}
	out := &recordingOutput{}
	tool := NewDirectShell(exec, out, logging.Nop())

	got := tool.Invoke(context.Background(), map[string]any{"command": "ls"})
	assert.Equal(t, "ran ls", got)
	assert.Equal(t, []string{"ls"}, exec.commands)
	assert.Equal(t, []string{"ls"}, out.started)
	assert.Equal(t, 1, out.finished)
}

func TestDirectShell_Failure(t *testing.T) {
	exec := &fakeExecutor{result: &executor.ExecutionResult{ExitCode: 1, Error: "no such file\n"}}
	tool := NewDirectShell(exec, nil, logging.Nop())

	got := tool.Invoke(context.Background(), map[string]any{"command": "cat nope"})
	assert.Equal(t, "Error: no such file", got)
}

func TestDirectShell_StartFailure(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("exec: \"sh\": not found")}
	tool := NewDirectShell(exec, nil, logging.Nop())

	got := tool.Invoke(context.Background(), map[string]any{"command": "ls"})
	assert.True(t, strings.HasPrefix(got, "Error: "), got)
}

func TestDirectShell_MissingCommand(t *testing.T) {
	exec := &fakeExecutor{}
	tool := NewDirectShell(exec, nil, logging.Nop())

	got := tool.Invoke(context.Background(), map[string]any{"cmd": "ls"})
	assert.Equal(t, `Error: missing required argument "command"`, got)
	assert.Empty(t, exec.commands)
}

func TestInteractiveShell(t *testing.T) {
	tests := []struct {
		name        string
		answer      string
		confirmErr  error
		want        string
		wantRunning []string
	}{
		{"accepted", "ls -la", nil, "ran ls -la", []string{"ls -la"}},
		{"edited", "ls -la /tmp", nil, "ran ls -la /tmp", []string{"ls -la /tmp"}},
		{"declined", "", nil, CancelledByUser, nil},
		{"whitespace is declined", "   ", nil, CancelledByUser, nil},
		{"prompt failed", "", errors.New("no tty"), "Error: no tty", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &fakeExecutor{}
			confirm := &fakeConfirmer{answer: tt.answer, err: tt.confirmErr}
			tool := NewInteractiveShell(exec, confirm, nil, logging.Nop())

			got := tool.Invoke(context.Background(), map[string]any{"command": "ls -la"})
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantRunning, exec.commands)
			assert.Equal(t, "ls -la", confirm.proposed)
			assert.Equal(t, executor.Safe, confirm.risk)
		})
	}
}

func TestCodeEval(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{
			name: "snippet with import",
			code: "import \"fmt\"\n\nx := 21\nfmt.Println(x * 2)",
			want: "42\n",
		},
		{
			name: "import block",
			code: "import (\n\t\"fmt\"\n\t\"strings\"\n)\nfmt.Println(strings.ToUpper(\"go\"))",
			want: "GO\n",
		},
		{
			name: "expression value",
			code: "1 + 2",
			want: "3",
		},
		{
			name: "program",
			code: "package main\n\nimport \"fmt\"\n\nfunc main() {\n\tfmt.Println(\"hello\")\n}\n",
			want: "hello\n",
		},
	}

	tool := NewCodeEval(logging.Nop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tool.Invoke(context.Background(), map[string]any{"code": tt.code})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCodeEval_Errors(t *testing.T) {
	tool := NewCodeEval(logging.Nop())

	got := tool.Invoke(context.Background(), map[string]any{"code": "this is not go"})
	assert.True(t, strings.HasPrefix(got, "Error: "), got)

	got = tool.Invoke(context.Background(), map[string]any{"code": "var s []int\n_ = s[3]"})
	assert.Contains(t, got, "Error: ")

	got = tool.Invoke(context.Background(), map[string]any{})
	assert.Equal(t, `Error: missing required argument "code"`, got)
}

func TestCodeEval_GoroutinePanic(t *testing.T) {
	tool := NewCodeEval(logging.Nop())

	code := "import (\n\t\"fmt\"\n\t\"time\"\n)\nfmt.Println(\"before\")\ngo func() { panic(\"boom\") }()\ntime.Sleep(2 * time.Second)"
	got := tool.Invoke(context.Background(), map[string]any{"code": code})
	assert.Contains(t, got, "Error: panic: boom")

	// The tool keeps working after a crashed evaluation
	got = tool.Invoke(context.Background(), map[string]any{"code": "1 + 1"})
	assert.Equal(t, "2", got)
}

func TestCodeEval_Exit(t *testing.T) {
	tool := NewCodeEval(logging.Nop())

	got := tool.Invoke(context.Background(), map[string]any{"code": "import \"os\"\nos.Exit(3)"})
	assert.Contains(t, got, "Error: ")
}

func TestCodeEval_Cancelled(t *testing.T) {
	tool := NewCodeEval(logging.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	got := tool.Invoke(ctx, map[string]any{"code": "import \"time\"\ntime.Sleep(time.Minute)"})
	assert.Equal(t, "Error: evaluation cancelled", got)
}

func TestCrashReason(t *testing.T) {
	err := errors.New("exit status 2")
	assert.Equal(t, "panic: boom [recovered]",
		crashReason("goroutine 7 [running]:\npanic: boom [recovered]\n\tpanic: boom\n", err))
	assert.Equal(t, "evaluator exit status 2", crashReason("", err))
}

func TestSplitSource(t *testing.T) {
	tests := []struct {
		name string
		code string
		want []string
	}{
		{"no imports", "x := 1", []string{"x := 1"}},
		{"single import", "import \"fmt\"\nfmt.Println(1)", []string{"import \"fmt\"", "fmt.Println(1)"}},
		{"only imports", "import \"os\"", []string{"import \"os\""}},
		{"program", "package main\nfunc main() {}", []string{"package main\nfunc main() {}"}},
		{"comment first", "// hi\nimport \"fmt\"\nfmt.Println(1)", []string{"import \"fmt\"", "fmt.Println(1)"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitSource(tt.code))
		})
	}
}

// denyPolicy blocks commands starting with any of its prefixes
type denyPolicy []string

func (d denyPolicy) Blocked(command string) (string, bool) {
	for _, p := range d {
		if strings.HasPrefix(command, p) {
			return p, true
		}
	}
	return "", false
}

func TestShells_DenyPolicy(t *testing.T) {
	args := map[string]any{"command": "sudo reboot"}

	exec := &fakeExecutor{}
	direct := NewDirectShell(exec, nil, logging.Nop())
	direct.SetPolicy(denyPolicy{"sudo"})
	assert.Equal(t, `Error: command blocked by deny rule "sudo"`, direct.Invoke(context.Background(), args))

	confirm := &fakeConfirmer{answer: "sudo reboot"}
	interactive := NewInteractiveShell(exec, confirm, nil, logging.Nop())
	interactive.SetPolicy(denyPolicy{"sudo"})
	assert.Equal(t, `Error: command blocked by deny rule "sudo"`, interactive.Invoke(context.Background(), args))

	assert.Empty(t, confirm.proposed, "a blocked proposal is never shown")
	assert.Empty(t, exec.commands)

	// Commands outside the rules still run
	assert.Equal(t, "ran uptime", direct.Invoke(context.Background(), map[string]any{"command": "uptime"}))
}

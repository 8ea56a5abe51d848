package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/quocvuong92/ai-shell/internal/api"
	"github.com/quocvuong92/ai-shell/internal/executor"
	"github.com/quocvuong92/ai-shell/internal/history"
	"github.com/quocvuong92/ai-shell/internal/logging"
	"github.com/quocvuong92/ai-shell/internal/tools"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testPrompt = "system prompt"

type staticPrompt string

func (p staticPrompt) DefaultSystemPrompt() string { return string(p) }

// memStore is an in-memory transcript store counting writes
type memStore struct {
	docs   map[string][]history.Message
	writes int
}

func newMemStore() *memStore {
	return &memStore{docs: make(map[string][]history.Message)}
}

func (s *memStore) Read(id string) []history.Message {
	return append([]history.Message(nil), s.docs[id]...)
}

func (s *memStore) Write(id string, msgs []history.Message) error {
	s.writes++
	s.docs[id] = append([]history.Message{}, msgs...)
	return nil
}

func (s *memStore) Delete(id string) error {
	delete(s.docs, id)
	return nil
}

func (s *memStore) Exists(id string) bool {
	_, ok := s.docs[id]
	return ok
}

func (s *memStore) Close() error { return nil }

// scriptedOracle replies with a fixed sequence and records what it was sent
type scriptedOracle struct {
	replies []history.Message
	errs    []error
	calls   [][]history.Message
	hook    func(n int)
}

func (o *scriptedOracle) Complete(_ context.Context, msgs []history.Message, _ []api.Tool) (history.Message, error) {
	n := len(o.calls)
	o.calls = append(o.calls, append([]history.Message(nil), msgs...))
	if o.hook != nil {
		o.hook(n)
	}
	if n < len(o.errs) && o.errs[n] != nil {
		return history.Message{}, o.errs[n]
	}
	if n >= len(o.replies) {
		return history.Message{}, fmt.Errorf("unexpected oracle call %d", n)
	}
	return o.replies[n], nil
}

type recordingIndicator struct {
	starts, stops int
}

func (r *recordingIndicator) Start(string) { r.starts++ }
func (r *recordingIndicator) Stop()        { r.stops++ }

type recordingObserver struct {
	indexes []int
	calls   []string
}

func (r *recordingObserver) UserMessage(index int, _ string)     { r.indexes = append(r.indexes, index) }
func (r *recordingObserver) ToolRequested(call history.ToolCall) { r.calls = append(r.calls, call.ID) }

// fakeTool returns canned output and records its arguments
type fakeTool struct {
	name   string
	output string
	args   []map[string]any
	invoke func(ctx context.Context) string
}

func (t *fakeTool) Name() string               { return t.name }
func (t *fakeTool) Description() string        { return t.name }
func (t *fakeTool) Parameters() map[string]any { return api.StringParams([2]string{"command", "cmd"}) }
func (t *fakeTool) Invoke(ctx context.Context, args map[string]any) string {
	t.args = append(t.args, args)
	if t.invoke != nil {
		return t.invoke(ctx)
	}
	return t.output
}

type testEngine struct {
	*Engine
	store     *memStore
	oracle    *scriptedOracle
	indicator *recordingIndicator
	observer  *recordingObserver
}

func newTestEngine(oracle *scriptedOracle, toolset ...tools.Tool) *testEngine {
	store := newMemStore()
	reg := tools.NewRegistry()
	for _, t := range toolset {
		reg.AddHidden(t)
	}
	e := New(store, oracle, reg, staticPrompt(testPrompt))
	ind := &recordingIndicator{}
	obs := &recordingObserver{}
	e.SetIndicator(ind)
	e.SetObserver(obs)
	e.SetLogger(logging.Nop())
	return &testEngine{Engine: e, store: store, oracle: oracle, indicator: ind, observer: obs}
}

func TestRunTurn_PlainReply(t *testing.T) {
	te := newTestEngine(&scriptedOracle{replies: []history.Message{history.Assistant("hi")}})
	te.store.docs["s1"] = []history.Message{history.System(testPrompt)}

	got, err := te.RunTurn(context.Background(), "s1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi", got)

	want := []history.Message{
		history.System(testPrompt),
		history.User("hello"),
		history.Assistant("hi"),
	}
	if diff := cmp.Diff(want, te.store.docs["s1"]); diff != "" {
		t.Errorf("transcript mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, te.store.writes)
	assert.Equal(t, []int{0}, te.observer.indexes)
	assert.Equal(t, 1, te.indicator.starts)
	assert.Equal(t, 1, te.indicator.stops)

	// The oracle sees the whole transcript including the new user message
	require.Len(t, te.oracle.calls, 1)
	assert.Equal(t, want[:2], te.oracle.calls[0])
}

func TestRunTurn_SingleToolCall(t *testing.T) {
	call := history.ToolCall{ID: "1", Name: tools.DirectShellName, Arguments: map[string]any{"command": "echo ok"}}
	shell := &fakeTool{name: tools.DirectShellName, output: "ok\n"}
	te := newTestEngine(&scriptedOracle{replies: []history.Message{
		history.Assistant("", call),
		history.Assistant("done"),
	}}, shell)
	te.store.docs["s1"] = []history.Message{history.System(testPrompt)}

	got, err := te.RunTurn(context.Background(), "s1", "run it")
	require.NoError(t, err)
	assert.Equal(t, "done", got)

	want := []history.Message{
		history.System(testPrompt),
		history.User("run it"),
		history.Assistant("", call),
		history.ToolResult("1", "ok\n"),
		history.Assistant("done"),
	}
	if diff := cmp.Diff(want, te.store.docs["s1"]); diff != "" {
		t.Errorf("transcript mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []map[string]any{{"command": "echo ok"}}, shell.args)
	assert.Equal(t, []string{"1"}, te.observer.calls)
	assert.Equal(t, 2, te.indicator.starts)
	assert.Equal(t, 2, te.indicator.stops)
	assert.Equal(t, 1, te.store.writes)
}

func TestRunTurn_ToolResultsMatchCalls(t *testing.T) {
	calls := []history.ToolCall{
		{ID: "a", Name: "first", Arguments: map[string]any{}},
		{ID: "b", Name: "missing", Arguments: map[string]any{}},
		{ID: "c", Name: "second", Arguments: map[string]any{}},
	}
	var order []string
	first := &fakeTool{name: "first", invoke: func(context.Context) string { order = append(order, "first"); return "1" }}
	second := &fakeTool{name: "second", invoke: func(context.Context) string { order = append(order, "second"); return "2" }}
	te := newTestEngine(&scriptedOracle{replies: []history.Message{
		history.Assistant("", calls...),
		history.Assistant("done"),
	}}, first, second)

	_, err := te.RunTurn(context.Background(), "s1", "go")
	require.NoError(t, err)

	msgs := te.store.docs["s1"]
	var callIdx int
	for i, m := range msgs {
		if m.HasToolCalls() {
			callIdx = i
		}
	}
	results := msgs[callIdx+1 : callIdx+1+len(calls)]
	for i, r := range results {
		assert.Equal(t, history.RoleTool, r.Role)
		assert.Equal(t, calls[i].ID, r.ToolCallID)
	}
	assert.Equal(t, "1", results[0].Content)
	assert.Equal(t, `Error: unknown tool "missing"`, results[1].Content)
	assert.Equal(t, "2", results[2].Content)
	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, history.RoleAssistant, msgs[len(msgs)-1].Role)
}

func TestRunTurn_RepairsSystemPrompt(t *testing.T) {
	te := newTestEngine(&scriptedOracle{replies: []history.Message{history.Assistant("hi")}})
	te.store.docs["s1"] = []history.Message{history.User("earlier"), history.Assistant("ok")}

	_, err := te.RunTurn(context.Background(), "s1", "hello")
	require.NoError(t, err)

	msgs := te.store.docs["s1"]
	require.Len(t, msgs, 5)
	assert.Equal(t, history.System(testPrompt), msgs[0])
	assert.Equal(t, []int{1}, te.observer.indexes)
}

func TestRunTurn_MissingTranscript(t *testing.T) {
	te := newTestEngine(&scriptedOracle{replies: []history.Message{history.Assistant("")}})

	got, err := te.RunTurn(context.Background(), "new", "hello")
	require.NoError(t, err)
	assert.Equal(t, "", got)
	assert.Equal(t, []history.Message{
		history.System(testPrompt),
		history.User("hello"),
		history.Assistant(""),
	}, te.store.docs["new"])
}

func TestRunTurn_OracleErrorPersistsNothing(t *testing.T) {
	boom := &api.APIError{StatusCode: 500, Message: "boom"}
	te := newTestEngine(&scriptedOracle{errs: []error{boom}})
	before := []history.Message{history.System(testPrompt)}
	te.store.docs["s1"] = before

	_, err := te.RunTurn(context.Background(), "s1", "hello")
	require.Error(t, err)
	var apiErr *api.APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Zero(t, te.store.writes)
	assert.Equal(t, before, te.store.docs["s1"])
	assert.Equal(t, te.indicator.starts, te.indicator.stops)
}

func TestRunTurn_CancelDuringOracle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	oracle := &scriptedOracle{errs: []error{context.Canceled}, hook: func(int) { cancel() }}
	te := newTestEngine(oracle)

	_, err := te.RunTurn(ctx, "s1", "hello")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, te.store.writes)
	assert.Equal(t, 1, te.indicator.stops)
}

func TestRunTurn_CancelDuringTool(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slow := &fakeTool{name: "slow", invoke: func(context.Context) string {
		cancel()
		return "Error: context canceled"
	}}
	next := &fakeTool{name: "next", output: "never"}
	te := newTestEngine(&scriptedOracle{replies: []history.Message{
		history.Assistant("", history.ToolCall{ID: "1", Name: "slow"}, history.ToolCall{ID: "2", Name: "next"}),
	}}, slow, next)

	_, err := te.RunTurn(ctx, "s1", "hello")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, te.store.writes)
	assert.Empty(t, next.args)
	assert.Len(t, te.oracle.calls, 1)
}

func TestRunTurn_ToolPanicBecomesResult(t *testing.T) {
	bad := &fakeTool{name: "bad", invoke: func(context.Context) string { panic("kaboom") }}
	te := newTestEngine(&scriptedOracle{replies: []history.Message{
		history.Assistant("", history.ToolCall{ID: "1", Name: "bad"}),
		history.Assistant("recovered"),
	}}, bad)

	got, err := te.RunTurn(context.Background(), "s1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "recovered", got)

	msgs := te.store.docs["s1"]
	assert.Equal(t, "1", msgs[3].ToolCallID)
	assert.Contains(t, msgs[3].Content, "Error: tool bad failed: kaboom")
}

func TestRunCommandTurn(t *testing.T) {
	shell := &fakeTool{name: tools.DirectShellName, output: "file.txt\n"}
	te := newTestEngine(&scriptedOracle{}, shell)

	out, err := te.RunCommandTurn(context.Background(), "s1", "ls")
	require.NoError(t, err)
	assert.Equal(t, "file.txt\n", out)
	assert.Empty(t, te.oracle.calls)

	want := []history.Message{
		history.System(testPrompt),
		history.User("CMD> ls\nfile.txt\n"),
	}
	assert.Equal(t, want, te.store.docs["s1"])
	assert.Equal(t, 1, te.store.writes)
}

func TestRunCommandTurn_RealShell(t *testing.T) {
	exec := executor.NewExecutor()
	te := newTestEngine(&scriptedOracle{}, tools.NewDirectShell(exec, nil, logging.Nop()))

	out, err := te.RunCommandTurn(context.Background(), "s1", "echo ok")
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)
	assert.Equal(t, "CMD> echo ok\nok\n", te.store.docs["s1"][1].Content)
}

func TestRunCommandTurn_NoDirectShell(t *testing.T) {
	te := newTestEngine(&scriptedOracle{})

	_, err := te.RunCommandTurn(context.Background(), "s1", "ls")
	assert.ErrorIs(t, err, ErrNoDirectRun)
	assert.Zero(t, te.store.writes)
}

func TestEditAndResend_AtIndex(t *testing.T) {
	te := newTestEngine(&scriptedOracle{replies: []history.Message{history.Assistant("fresh answer")}})
	te.store.docs["s1"] = []history.Message{
		history.System(testPrompt),
		history.User("old question"),
		history.Assistant("old answer"),
		history.User("follow up"),
	}

	index := 1
	got, err := te.EditAndResend(context.Background(), "s1", &index, "new question")
	require.NoError(t, err)
	assert.Equal(t, "fresh answer", got)

	want := []history.Message{
		history.System(testPrompt),
		history.User("new question"),
		history.Assistant("fresh answer"),
	}
	if diff := cmp.Diff(want, te.store.docs["s1"]); diff != "" {
		t.Errorf("transcript mismatch (-want +got):\n%s", diff)
	}
	// The oracle only saw the truncated transcript
	assert.Equal(t, want[:2], te.oracle.calls[0])
	assert.Equal(t, 1, te.store.writes)
}

func TestEditAndResend_FailedTurnKeepsTranscript(t *testing.T) {
	original := []history.Message{
		history.System(testPrompt),
		history.User("a"),
		history.Assistant("a1"),
		history.User("b"),
		history.Assistant("b1"),
	}

	tests := []struct {
		name    string
		cancel  bool
		err     error
		wantErr error
	}{
		{"cancelled during model call", true, context.Canceled, context.Canceled},
		{"model error", false, errors.New("backend down"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			oracle := &scriptedOracle{errs: []error{tt.err}}
			if tt.cancel {
				oracle.hook = func(int) { cancel() }
			}
			te := newTestEngine(oracle)
			te.store.docs["s1"] = append([]history.Message(nil), original...)

			_, err := te.EditAndResend(ctx, "s1", nil, "b edited")
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Zero(t, te.store.writes)
			if diff := cmp.Diff(original, te.store.docs["s1"]); diff != "" {
				t.Errorf("stored transcript changed (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEditAndResend_AtNonUserPosition(t *testing.T) {
	te := newTestEngine(&scriptedOracle{replies: []history.Message{history.Assistant("again")}})
	te.store.docs["s1"] = []history.Message{
		history.System(testPrompt),
		history.User("a"),
		history.Assistant("a1"),
	}

	// Any position is accepted; the message there and everything after it
	// is replaced
	index := 2
	_, err := te.EditAndResend(context.Background(), "s1", &index, "b")
	require.NoError(t, err)

	want := []history.Message{
		history.System(testPrompt),
		history.User("a"),
		history.User("b"),
		history.Assistant("again"),
	}
	if diff := cmp.Diff(want, te.store.docs["s1"]); diff != "" {
		t.Errorf("transcript mismatch (-want +got):\n%s", diff)
	}
}

func TestEditAndResend_SystemPositionRestoresPrompt(t *testing.T) {
	te := newTestEngine(&scriptedOracle{replies: []history.Message{history.Assistant("ok")}})
	te.store.docs["s1"] = []history.Message{history.System("custom"), history.User("a")}

	index := 0
	_, err := te.EditAndResend(context.Background(), "s1", &index, "restart")
	require.NoError(t, err)

	msgs := te.store.docs["s1"]
	require.Len(t, msgs, 3)
	assert.Equal(t, history.System(testPrompt), msgs[0])
	assert.Equal(t, "restart", msgs[1].Content)
}

func TestEditAndResend_LastUserMessage(t *testing.T) {
	te := newTestEngine(&scriptedOracle{replies: []history.Message{history.Assistant("b2")}})
	te.store.docs["s1"] = []history.Message{
		history.System(testPrompt),
		history.User("a"),
		history.Assistant("a1"),
		history.User("b"),
		history.Assistant("b1"),
	}

	_, err := te.EditAndResend(context.Background(), "s1", nil, "b edited")
	require.NoError(t, err)

	msgs := te.store.docs["s1"]
	require.Len(t, msgs, 5)
	assert.Equal(t, "a1", msgs[2].Content)
	assert.Equal(t, "b edited", msgs[3].Content)
	assert.Equal(t, "b2", msgs[4].Content)
}

func TestEditAndResend_InvalidIndex(t *testing.T) {
	original := []history.Message{history.System(testPrompt), history.User("a")}

	tests := []struct {
		name  string
		index *int
		msgs  []history.Message
	}{
		{"negative", intPtr(-1), original},
		{"past end", intPtr(2), original},
		{"no user message", nil, []history.Message{history.System(testPrompt)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			te := newTestEngine(&scriptedOracle{})
			te.store.docs["s1"] = tt.msgs

			_, err := te.EditAndResend(context.Background(), "s1", tt.index, "x")
			assert.ErrorIs(t, err, ErrInvalidIndex)
			assert.Zero(t, te.store.writes)
			assert.Empty(t, te.oracle.calls)
		})
	}
}

func intPtr(i int) *int { return &i }

package history

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quocvuong92/ai-shell/internal/logging"
)

func sampleTranscript() []Message {
	return []Message{
		System("be brief"),
		User("list files"),
		Assistant("", ToolCall{
			ID:        "call_1",
			Name:      "direct_shell_tool",
			Arguments: map[string]any{"command": "ls"},
		}),
		ToolResult("call_1", "a.txt\nb.txt\n"),
		Assistant("There are two files."),
	}
}

// storeFactories builds each backend in a fresh temp directory
func storeFactories() map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"file": func(t *testing.T) Store {
			return NewFileStore(filepath.Join(t.TempDir(), "chats"), logging.Nop())
		},
		"sqlite": func(t *testing.T) Store {
			s, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "chats.db"), logging.Nop())
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func TestStore_RoundTrip(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			want := sampleTranscript()

			require.NoError(t, s.Write("sess-1", want))
			got := s.Read("sess-1")

			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Read() mismatch (-want +got):\n%s", diff)
			}
			assert.True(t, s.Exists("sess-1"))
		})
	}
}

func TestStore_WriteOverwrites(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			require.NoError(t, s.Write("sess-1", sampleTranscript()))
			require.NoError(t, s.Write("sess-1", []Message{System("p"), User("again")}))

			got := s.Read("sess-1")
			require.Len(t, got, 2)
			assert.Equal(t, "again", got[1].Content)
		})
	}
}

func TestStore_MissingReadsEmpty(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			assert.Empty(t, s.Read("nope"))
			assert.False(t, s.Exists("nope"))
		})
	}
}

func TestStore_Delete(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			require.NoError(t, s.Write("sess-1", sampleTranscript()))
			require.NoError(t, s.Delete("sess-1"))

			assert.False(t, s.Exists("sess-1"))
			assert.Empty(t, s.Read("sess-1"))
			// Deleting twice is fine
			assert.NoError(t, s.Delete("sess-1"))
		})
	}
}

func TestStore_EmptyTranscript(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			require.NoError(t, s.Write("sess-1", nil))
			assert.True(t, s.Exists("sess-1"))
			assert.Empty(t, s.Read("sess-1"))
		})
	}
}

func TestFileStore_CorruptReadsEmpty(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir, logging.Nop())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sess-1.json"), []byte("[{broken"), 0644))

	assert.Empty(t, s.Read("sess-1"))
}

func TestSQLiteStore_CorruptReadsEmpty(t *testing.T) {
	s, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "chats.db"), logging.Nop())
	require.NoError(t, err)
	defer s.Close()

	_, err = s.db.Exec("INSERT INTO transcripts (id, messages, updated_at) VALUES (?, ?, 0)", "sess-1", "not json")
	require.NoError(t, err)

	assert.Empty(t, s.Read("sess-1"))
}

func TestFileStore_RejectsPathLikeIDs(t *testing.T) {
	s := NewFileStore(t.TempDir(), logging.Nop())
	for _, id := range []string{"", "..", "../escape", "a/b"} {
		err := s.Write(id, sampleTranscript())
		assert.ErrorIs(t, err, ErrInvalidID, "id %q", id)
	}
}

func TestFileStore_WireFormat(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir, logging.Nop())
	require.NoError(t, s.Write("sess-1", sampleTranscript()))

	data, err := os.ReadFile(filepath.Join(dir, "sess-1.json"))
	require.NoError(t, err)

	for _, key := range []string{`"role": "assistant"`, `"tool_calls"`, `"args"`, `"tool_call_id": "call_1"`} {
		assert.Contains(t, string(data), key)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	fs, err := Open("file", dir, logging.Nop())
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, fs)

	ss, err := Open("sqlite", dir, logging.Nop())
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, ss)
	require.NoError(t, ss.Close())

	_, err = Open("redis", dir, logging.Nop())
	assert.Error(t, err)
}

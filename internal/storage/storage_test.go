package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteJSON_ReadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "doc.json")

	in := map[string]string{"demo": "1234"}
	if err := WriteJSON(path, in); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	var out map[string]string
	if err := ReadJSON(path, &out); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if out["demo"] != "1234" {
		t.Errorf("out[demo] = %q, want %q", out["demo"], "1234")
	}
}

func TestReadJSON_Missing(t *testing.T) {
	var out map[string]string
	err := ReadJSON(filepath.Join(t.TempDir(), "missing.json"), &out)
	if !os.IsNotExist(err) {
		t.Errorf("ReadJSON() error = %v, want not-exist", err)
	}
}

func TestReadJSON_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	var out map[string]string
	err := ReadJSON(path, &out)
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("ReadJSON() error = %v, want ErrCorrupt", err)
	}
}

func TestWriteFileAtomic_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")

	for i := 0; i < 3; i++ {
		if err := WriteFileAtomic(path, []byte(`{"n":1}`), 0644); err != nil {
			t.Fatalf("WriteFileAtomic() error = %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory contains %v, want only doc.json", names)
	}
}

func TestRemove_MissingIsNotError(t *testing.T) {
	if err := Remove(filepath.Join(t.TempDir(), "nope.json")); err != nil {
		t.Errorf("Remove() error = %v", err)
	}
}

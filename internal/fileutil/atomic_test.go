package fileutil

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileAtomic(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "q_table.json")
	testData := []byte(`{"version":1}`)

	if err := WriteFileAtomic(testFile, testData, 0644); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}

	data, err := os.ReadFile(testFile)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(data) != string(testData) {
		t.Errorf("File content mismatch: got %q, want %q", string(data), string(testData))
	}

	info, err := os.Stat(testFile)
	if err != nil {
		t.Fatalf("Failed to stat file: %v", err)
	}
	if info.Mode().Perm() != 0644 {
		t.Errorf("File permissions mismatch: got %o, want %o", info.Mode().Perm(), 0644)
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatalf("Failed to read dir: %v", err)
	}
	for _, entry := range entries {
		if entry.Name() != "q_table.json" {
			t.Errorf("Unexpected file in directory: %s", entry.Name())
		}
	}
}

func TestWriteAtomicCreatesParentDirs(t *testing.T) {
	t.Parallel()

	target := filepath.Join(t.TempDir(), "data", "models", "table.json")
	err := WriteAtomic(target, 0644, func(w io.Writer) error {
		_, err := io.WriteString(w, "ok")
		return err
	})
	if err != nil {
		t.Fatalf("WriteAtomic failed: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil || string(data) != "ok" {
		t.Fatalf("unexpected content %q (err %v)", data, err)
	}
}

func TestWriteAtomicKeepsOldFileOnError(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "table.json")
	if err := WriteFileAtomic(target, []byte("initial"), 0644); err != nil {
		t.Fatalf("initial write failed: %v", err)
	}

	boom := errors.New("encode failed")
	err := WriteAtomic(target, 0644, func(w io.Writer) error {
		io.WriteString(w, "partial")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected encode error, got %v", err)
	}

	data, _ := os.ReadFile(target)
	if string(data) != "initial" {
		t.Errorf("old content should survive a failed write, got %q", data)
	}
	entries, _ := os.ReadDir(tmpDir)
	if len(entries) != 1 {
		t.Errorf("temp file left behind: %d entries", len(entries))
	}
}

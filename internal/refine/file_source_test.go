package refine

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileSource_InitialRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "refine.txt")

	fs, err := NewFileSource(path)
	if err != nil {
		t.Fatalf("NewFileSource() error = %v", err)
	}
	if got := fs.Refinement(); got != "" {
		t.Errorf("missing file Refinement() = %q, want empty", got)
	}

	if err := os.WriteFile(path, []byte("  use the news list\n"), 0644); err != nil {
		t.Fatal(err)
	}
	fs2, err := NewFileSource(path)
	if err != nil {
		t.Fatalf("NewFileSource() error = %v", err)
	}
	if got := fs2.Refinement(); got != "use the news list" {
		t.Errorf("Refinement() = %q", got)
	}
}

func TestFileSource_Reload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "refine.txt")
	if err := os.WriteFile(path, []byte("first"), 0644); err != nil {
		t.Fatal(err)
	}

	fs, err := NewFileSource(path)
	if err != nil {
		t.Fatalf("NewFileSource() error = %v", err)
	}
	fs.debounceTime = 20 * time.Millisecond
	changed := make(chan string, 4)
	fs.OnChange(func(s string) {
		select {
		case changed <- s:
		default:
		}
	})

	if err := fs.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer fs.Stop()

	if err := os.WriteFile(path, []byte("second"), 0644); err != nil {
		t.Fatal(err)
	}

	// A reload may observe the truncated file first.
	deadline := time.After(3 * time.Second)
	for got := ""; got != "second"; {
		select {
		case got = <-changed:
		case <-deadline:
			t.Fatal("no reload after write")
		}
	}
	if got := fs.Refinement(); got != "second" {
		t.Errorf("Refinement() = %q, want second", got)
	}
}

func TestFileSource_OnChangeAfterStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refine.txt")
	fs, err := NewFileSource(path)
	if err != nil {
		t.Fatalf("NewFileSource() error = %v", err)
	}
	fs.debounceTime = 10 * time.Millisecond
	if err := fs.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer fs.Stop()

	// Registered while the watcher goroutines already run.
	changed := make(chan string, 4)
	fs.OnChange(func(s string) {
		select {
		case changed <- s:
		default:
		}
	})
	if err := os.WriteFile(path, []byte("weekdays only"), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(3 * time.Second)
	for got := ""; got != "weekdays only"; {
		select {
		case got = <-changed:
		case <-deadline:
			t.Fatal("callback not invoked after write")
		}
	}
}

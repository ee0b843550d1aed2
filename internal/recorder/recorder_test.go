package recorder

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func traceFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".jsonl") {
			names = append(names, e.Name())
		}
	}
	return names
}

func TestRecorderWritesEvents(t *testing.T) {
	dir := t.TempDir()
	r, err := NewRecorder(dir)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}

	if err := r.Start("run-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	r.Log("tool_call", map[string]string{"tool": "scan-page"})
	r.Log("tick", map[string]int{"n": 1})
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	files := traceFiles(t, dir)
	if len(files) != 1 {
		t.Fatalf("expected 1 trace file, got %d", len(files))
	}

	f, err := os.Open(filepath.Join(dir, files[0]))
	if err != nil {
		t.Fatalf("open trace: %v", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var evt Event
		if err := json.Unmarshal(scanner.Bytes(), &evt); err != nil {
			t.Fatalf("bad trace line: %v", err)
		}
		events = append(events, evt)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Type != "tool_call" || events[1].Type != "tick" {
		t.Errorf("event types = %s, %s", events[0].Type, events[1].Type)
	}
	if events[0].ID == "" || events[0].ID == events[1].ID {
		t.Error("events must carry distinct IDs")
	}
}

func TestRecorderLogBeforeStart(t *testing.T) {
	dir := t.TempDir()
	r, err := NewRecorder(dir)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}

	// Must not panic or create a file.
	r.Log("tool_call", nil)
	if files := traceFiles(t, dir); len(files) != 0 {
		t.Errorf("unexpected trace files: %v", files)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestRecorderRotation(t *testing.T) {
	dir := t.TempDir()
	r, err := NewRecorder(dir)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}

	for i := 0; i < MaxRotatedFiles+2; i++ {
		if err := r.Start("run"); err != nil {
			t.Fatalf("Start %d: %v", i, err)
		}
		r.Log("tick", i)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	files := traceFiles(t, dir)
	if len(files) > MaxRotatedFiles {
		t.Errorf("rotation kept %d files, want at most %d", len(files), MaxRotatedFiles)
	}
}

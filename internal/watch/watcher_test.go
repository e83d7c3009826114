package watch

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu      sync.Mutex
	batches [][]string
}

func (r *recorder) onChange(files []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, files)
	return nil
}

func (r *recorder) snapshot() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.batches...)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestWatcher_ReportsContentChanges(t *testing.T) {
	dir := t.TempDir()
	table := filepath.Join(dir, "entities.yml")
	writeFile(t, table, "entities: {}\n")

	rec := &recorder{}
	w, err := New([]string{table, ""}, rec.onChange, WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	defer w.Stop()
	if err := w.Start(); err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "other.yml"), "ignored")
	writeFile(t, table, "entities:\n  Person: {}\n")
	time.Sleep(300 * time.Millisecond)

	batches := rec.snapshot()
	if len(batches) == 0 {
		t.Fatal("expected the change to be reported")
	}
	for _, batch := range batches {
		for _, f := range batch {
			if filepath.Base(f) != "entities.yml" {
				t.Errorf("unexpected change reported for %s", f)
			}
		}
	}
}

func TestWatcher_SameContentIsNotAChange(t *testing.T) {
	dir := t.TempDir()
	table := filepath.Join(dir, "entities.yml")
	writeFile(t, table, "entities: {}\n")

	rec := &recorder{}
	w, err := New([]string{table}, rec.onChange, WithDebounce(20*time.Millisecond))
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	defer w.Stop()

	w.schedule(table)
	time.Sleep(100 * time.Millisecond)

	if batches := rec.snapshot(); len(batches) != 0 {
		t.Errorf("expected no change for identical content, got %v", batches)
	}
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	table := filepath.Join(dir, "entities.yml")
	manifest := filepath.Join(dir, "models.yml")
	writeFile(t, table, "a")
	writeFile(t, manifest, "a")

	rec := &recorder{}
	w, err := New([]string{manifest, table}, rec.onChange, WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	defer w.Stop()

	writeFile(t, table, "b")
	writeFile(t, manifest, "b")
	w.schedule(table)
	w.schedule(manifest)
	w.schedule(table)
	time.Sleep(150 * time.Millisecond)

	batches := rec.snapshot()
	if len(batches) != 1 || len(batches[0]) != 2 {
		t.Fatalf("expected one batch with both files, got %v", batches)
	}
	if filepath.Base(batches[0][0]) != "entities.yml" || filepath.Base(batches[0][1]) != "models.yml" {
		t.Errorf("expected sorted paths, got %v", batches[0])
	}
}

func TestWatcher_RemovalIsAChange(t *testing.T) {
	dir := t.TempDir()
	table := filepath.Join(dir, "entities.yml")
	writeFile(t, table, "entities: {}\n")

	rec := &recorder{}
	w, err := New([]string{table}, rec.onChange, WithDebounce(10*time.Millisecond))
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	defer w.Stop()

	if err := os.Remove(table); err != nil {
		t.Fatal(err)
	}
	w.schedule(table)
	time.Sleep(60 * time.Millisecond)

	if batches := rec.snapshot(); len(batches) != 1 {
		t.Errorf("expected removal to be reported, got %v", batches)
	}
}

func TestWatcher_CallbackErrorIsLogged(t *testing.T) {
	dir := t.TempDir()
	table := filepath.Join(dir, "entities.yml")
	writeFile(t, table, "a")

	calls := make(chan struct{}, 1)
	w, err := New([]string{table}, func([]string) error {
		calls <- struct{}{}
		return errors.New("invalid table")
	}, WithDebounce(10*time.Millisecond))
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	defer w.Stop()

	writeFile(t, table, "b")
	w.schedule(table)

	select {
	case <-calls:
	case <-time.After(time.Second):
		t.Fatal("callback was not invoked")
	}
}

func TestWatcher_Watched(t *testing.T) {
	dir := t.TempDir()
	table := filepath.Join(dir, "entities.yml")

	w, err := New([]string{table}, func([]string) error { return nil })
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	defer w.Stop()

	tests := []struct {
		path     string
		expected bool
	}{
		{table, true},
		{filepath.Join(dir, "models.yml"), false},
		{filepath.Join(dir, ".entities.yml.swp"), false},
		{filepath.Join(dir, "entities.yml~"), false},
		{filepath.Join(dir, "sub", "..", "entities.yml"), true},
	}
	for _, tt := range tests {
		if _, got := w.watched(tt.path); got != tt.expected {
			t.Errorf("watched(%q) = %v; want %v", tt.path, got, tt.expected)
		}
	}
}

func TestWatcher_StopTwiceAndScheduleAfterStop(t *testing.T) {
	dir := t.TempDir()
	table := filepath.Join(dir, "entities.yml")
	writeFile(t, table, "a")

	rec := &recorder{}
	w, err := New([]string{table}, rec.onChange, WithDebounce(10*time.Millisecond))
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}

	if err := w.Stop(); err != nil {
		t.Errorf("first stop failed: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second stop failed: %v", err)
	}

	writeFile(t, table, "b")
	w.schedule(table)
	time.Sleep(50 * time.Millisecond)
	if batches := rec.snapshot(); len(batches) != 0 {
		t.Errorf("expected no callbacks after stop, got %v", batches)
	}
}

package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHybridWatcher_NewHybridWatcher(t *testing.T) {
	opts := DefaultOptions()

	w, err := NewHybridWatcher(opts)

	require.NoError(t, err)
	require.NotNil(t, w)
	defer func() { _ = w.Stop() }()
}

func waitForEvent(t *testing.T, w *HybridWatcher, timeout time.Duration, want func(FileEvent) bool) bool {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case event, ok := <-w.Events():
			if !ok {
				return false
			}
			if want(event) {
				return true
			}
		case err := <-w.Errors():
			t.Fatalf("unexpected watcher error: %v", err)
		case <-deadline:
			return false
		}
	}
}

func TestHybridWatcher_DetectsFileCreation(t *testing.T) {
	tempDir := t.TempDir()
	opts := Options{DebounceWindow: 20 * time.Millisecond, EventBufferSize: 100}.WithDefaults()

	w, err := NewHybridWatcher(opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = w.Start(ctx, []string{tempDir}) }()
	time.Sleep(100 * time.Millisecond)

	testFile := filepath.Join(tempDir, "newfile.go")
	require.NoError(t, os.WriteFile(testFile, []byte("package main"), 0o644))

	found := waitForEvent(t, w, time.Second, func(e FileEvent) bool {
		return e.Operation == OpCreate && filepath.Base(e.Path) == "newfile.go"
	})
	assert.True(t, found, "expected CREATE event for newfile.go")
	require.NoError(t, w.Stop())
}

func TestHybridWatcher_DetectsFileModification(t *testing.T) {
	tempDir := t.TempDir()
	testFile := filepath.Join(tempDir, "existing.go")
	require.NoError(t, os.WriteFile(testFile, []byte("package main"), 0o644))

	opts := Options{DebounceWindow: 20 * time.Millisecond, EventBufferSize: 100}.WithDefaults()
	w, err := NewHybridWatcher(opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = w.Start(ctx, []string{tempDir}) }()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(testFile, []byte("package main\nfunc main() {}"), 0o644))

	found := waitForEvent(t, w, time.Second, func(e FileEvent) bool {
		return (e.Operation == OpModify || e.Operation == OpCreate) && filepath.Base(e.Path) == "existing.go"
	})
	assert.True(t, found, "expected modify event for existing.go")
	require.NoError(t, w.Stop())
}

func TestHybridWatcher_DetectsFileDeletion(t *testing.T) {
	tempDir := t.TempDir()
	testFile := filepath.Join(tempDir, "todelete.go")
	require.NoError(t, os.WriteFile(testFile, []byte("package main"), 0o644))

	opts := Options{DebounceWindow: 20 * time.Millisecond, EventBufferSize: 100}.WithDefaults()
	w, err := NewHybridWatcher(opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = w.Start(ctx, []string{tempDir}) }()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.Remove(testFile))

	found := waitForEvent(t, w, time.Second, func(e FileEvent) bool {
		return e.Operation == OpDelete && filepath.Base(e.Path) == "todelete.go"
	})
	assert.True(t, found, "expected DELETE event for todelete.go")
	require.NoError(t, w.Stop())
}

func TestHybridWatcher_IgnoresConfiguredPatterns(t *testing.T) {
	tempDir := t.TempDir()
	opts := Options{
		DebounceWindow:  20 * time.Millisecond,
		EventBufferSize: 100,
		IgnorePatterns:  []string{"*.tmp"},
	}.WithDefaults()

	w, err := NewHybridWatcher(opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = w.Start(ctx, []string{tempDir}) }()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "ignored.tmp"), []byte("temp"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "included.go"), []byte("package main"), 0o644))

	gotGoFile := waitForEvent(t, w, time.Second, func(e FileEvent) bool {
		if filepath.Ext(e.Path) == ".tmp" {
			t.Fatalf("should not receive events for .tmp files, got %s", e.Path)
		}
		return filepath.Base(e.Path) == "included.go"
	})
	assert.True(t, gotGoFile, "should have received event for .go file")
	require.NoError(t, w.Stop())
}

func TestHybridWatcher_IgnoresCortexDirectory(t *testing.T) {
	tempDir := t.TempDir()
	cortexDir := filepath.Join(tempDir, ".cortex")
	require.NoError(t, os.MkdirAll(cortexDir, 0o755))

	opts := Options{DebounceWindow: 20 * time.Millisecond, EventBufferSize: 100}.WithDefaults()
	w, err := NewHybridWatcher(opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = w.Start(ctx, []string{tempDir}) }()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(cortexDir, "cortex.db"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "main.go"), []byte("package main"), 0o644))

	gotGoFile := waitForEvent(t, w, time.Second, func(e FileEvent) bool {
		assert.NotContains(t, e.Path, ".cortex")
		return filepath.Base(e.Path) == "main.go"
	})
	assert.True(t, gotGoFile, "should have received event for .go file")
	require.NoError(t, w.Stop())
}

func TestHybridWatcher_WatchesMultipleRoots(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()

	opts := Options{DebounceWindow: 20 * time.Millisecond, EventBufferSize: 100}.WithDefaults()
	w, err := NewHybridWatcher(opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = w.Start(ctx, []string{rootA, rootB}) }()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(rootB, "b.go"), []byte("package b"), 0o644))

	found := waitForEvent(t, w, time.Second, func(e FileEvent) bool {
		return filepath.Base(e.Path) == "b.go"
	})
	assert.True(t, found, "expected event from second root")
	require.NoError(t, w.Stop())
}

func TestHybridWatcher_Stop_ClosesChannels(t *testing.T) {
	opts := DefaultOptions()
	w, err := NewHybridWatcher(opts)
	require.NoError(t, err)

	require.NoError(t, w.Stop())

	select {
	case _, ok := <-w.Events():
		assert.False(t, ok, "events channel should be closed")
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for channel close")
	}
}

func TestHybridWatcher_DroppedEvents_InitiallyZero(t *testing.T) {
	opts := DefaultOptions()
	w, err := NewHybridWatcher(opts)
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	assert.Equal(t, uint64(0), w.DroppedEvents())
}

func TestHybridWatcher_DroppedEvents_IncrementsOnOverflow(t *testing.T) {
	opts := Options{EventBufferSize: 1}.WithDefaults()

	w, err := NewHybridWatcher(opts)
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	w.emitEvent(FileEvent{Path: "/test1.go", Operation: OpCreate})
	w.emitEvent(FileEvent{Path: "/test2.go", Operation: OpCreate})
	w.emitEvent(FileEvent{Path: "/test3.go", Operation: OpCreate})

	assert.Equal(t, uint64(2), w.DroppedEvents())
}

func TestHybridWatcher_TryReceiveNonBlocking(t *testing.T) {
	opts := DefaultOptions()
	w, err := NewHybridWatcher(opts)
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	_, ok := w.TryReceive()
	assert.False(t, ok, "no events queued yet")

	w.emitEvent(FileEvent{Path: "/a.go", Operation: OpCreate})
	event, ok := w.TryReceive()
	require.True(t, ok)
	assert.Equal(t, "/a.go", event.Path)
}

func TestHybridWatcher_ReceiveTimeoutExpires(t *testing.T) {
	opts := DefaultOptions()
	w, err := NewHybridWatcher(opts)
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	_, ok := w.ReceiveTimeout(30 * time.Millisecond)
	assert.False(t, ok)
}

package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/cortexlabs/cortex/internal/pathfilter"
)

// HybridWatcher implements Watcher using fsnotify as the primary mechanism
// with polling as a fallback, across multiple roots.
type HybridWatcher struct {
	fsWatcher     *fsnotify.Watcher
	pollWatchers  []*PollingWatcher
	useFsnotify   bool
	debouncer     *Debouncer
	exclude       *pathfilter.Matcher
	events        chan FileEvent
	errors        chan error
	stopCh        chan struct{}
	roots         []string
	opts          Options
	mu            sync.RWMutex
	stopped       bool
	droppedEvents atomic.Uint64
}

var _ Watcher = (*HybridWatcher)(nil)

// NewHybridWatcher creates a new hybrid watcher with the given options.
// Attempts to use fsnotify first, falls back to polling if it fails.
func NewHybridWatcher(opts Options) (*HybridWatcher, error) {
	opts = opts.WithDefaults()

	h := &HybridWatcher{
		debouncer: NewDebouncer(opts.DebounceWindow),
		exclude:   pathfilter.New(),
		events:    make(chan FileEvent, opts.EventBufferSize),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
		opts:      opts,
	}

	h.exclude.AddPatterns(opts.IgnorePatterns)
	h.exclude.AddPattern(".git/")
	h.exclude.AddPattern(".cortex/")

	fsw, err := fsnotify.NewWatcher()
	if err == nil {
		h.fsWatcher = fsw
		h.useFsnotify = true
	} else {
		h.useFsnotify = false
	}

	return h, nil
}

// Start begins watching every root directory.
func (h *HybridWatcher) Start(ctx context.Context, roots []string) error {
	absRoots := make([]string, len(roots))
	for i, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return fmt.Errorf("resolve absolute path for %s: %w", root, err)
		}
		if _, err := os.Stat(abs); err != nil {
			return fmt.Errorf("watch root unavailable: %w", err)
		}
		absRoots[i] = abs
	}
	h.roots = absRoots

	go h.forwardDebouncedEvents(ctx)

	if h.useFsnotify {
		for _, root := range absRoots {
			if err := h.addRecursive(root); err != nil {
				return fmt.Errorf("add directories to watcher: %w", err)
			}
		}
		return h.runFsnotify(ctx)
	}
	return h.runPolling(ctx)
}

func (h *HybridWatcher) runFsnotify(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			_ = h.Stop()
			return ctx.Err()
		case <-h.stopCh:
			return nil
		case event, ok := <-h.fsWatcher.Events:
			if !ok {
				return nil
			}
			h.handleFsnotifyEvent(event)
		case err, ok := <-h.fsWatcher.Errors:
			if !ok {
				return nil
			}
			h.emitError(err)
		}
	}
}

func (h *HybridWatcher) runPolling(ctx context.Context) error {
	h.pollWatchers = make([]*PollingWatcher, len(h.roots))
	var wg sync.WaitGroup

	for i, root := range h.roots {
		pw := NewPollingWatcher(h.opts.PollInterval)
		h.pollWatchers[i] = pw

		go func(pw *PollingWatcher) {
			for {
				select {
				case <-ctx.Done():
					return
				case <-h.stopCh:
					return
				case event, ok := <-pw.Events():
					if !ok {
						return
					}
					if h.shouldIgnore(event.Path, event.IsDir) {
						continue
					}
					h.debouncer.Add(event)
				case err, ok := <-pw.Errors():
					if !ok {
						return
					}
					h.emitError(err)
				}
			}
		}(pw)

		wg.Add(1)
		go func(pw *PollingWatcher, root string) {
			defer wg.Done()
			if err := pw.Start(ctx, root); err != nil && err != context.Canceled {
				h.emitError(err)
			}
		}(pw, root)
	}

	wg.Wait()
	return nil
}

// handleFsnotifyEvent converts and filters a raw fsnotify event.
func (h *HybridWatcher) handleFsnotifyEvent(event fsnotify.Event) {
	isDir := false
	if info, err := os.Stat(event.Name); err == nil {
		isDir = info.IsDir()
	}

	if h.shouldIgnore(event.Name, isDir) {
		return
	}

	var op Operation
	switch {
	case event.Op&fsnotify.Create != 0:
		op = OpCreate
		if isDir {
			_ = h.fsWatcher.Add(event.Name)
		}
	case event.Op&fsnotify.Write != 0:
		op = OpModify
	case event.Op&fsnotify.Remove != 0:
		op = OpDelete
	case event.Op&fsnotify.Rename != 0:
		// fsnotify reports a rename as removal of the old path; the
		// subsequent create of the new path arrives as its own event.
		op = OpDelete
	case event.Op&fsnotify.Chmod != 0:
		return
	default:
		return
	}

	h.debouncer.Add(FileEvent{
		Path:      event.Name,
		Operation: op,
		IsDir:     isDir,
		Timestamp: time.Now(),
	})
}

// forwardDebouncedEvents flattens debounced batches onto the single-event
// output channel consumed via Events/TryReceive/ReceiveTimeout.
func (h *HybridWatcher) forwardDebouncedEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.stopCh:
			return
		case batch, ok := <-h.debouncer.Output():
			if !ok {
				return
			}
			for _, event := range batch {
				h.emitEvent(event)
			}
		}
	}
}

// addRecursive adds all directories under root to the fsnotify watcher.
func (h *HybridWatcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path == root {
			return h.fsWatcher.Add(path)
		}
		if h.shouldIgnoreDir(path) {
			return filepath.SkipDir
		}
		return h.fsWatcher.Add(path)
	})
}

func (h *HybridWatcher) shouldIgnoreDir(path string) bool {
	base := filepath.Base(path)
	if base == ".git" || base == ".cortex" {
		return true
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.exclude.Match(path, true)
}

func (h *HybridWatcher) shouldIgnore(path string, isDir bool) bool {
	base := filepath.Base(path)
	if base == ".git" || base == ".cortex" || strings.Contains(path, string(filepath.Separator)+".git"+string(filepath.Separator)) {
		return true
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.exclude.Match(path, isDir)
}

// emitEvent sends one event to the output channel, dropping it and
// incrementing the dropped-event counter if the channel is full.
func (h *HybridWatcher) emitEvent(event FileEvent) {
	h.mu.RLock()
	stopped := h.stopped
	h.mu.RUnlock()
	if stopped {
		return
	}

	select {
	case h.events <- event:
	default:
		count := h.droppedEvents.Add(1)
		slog.Warn("event buffer full, dropping event",
			slog.String("path", event.Path),
			slog.Uint64("total_dropped", count),
		)
	}
}

func (h *HybridWatcher) emitError(err error) {
	h.mu.RLock()
	stopped := h.stopped
	h.mu.RUnlock()
	if stopped {
		return
	}

	select {
	case h.errors <- err:
	default:
	}
}

// Stop stops the watcher and releases resources. Safe to call multiple times.
func (h *HybridWatcher) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return nil
	}
	h.stopped = true
	close(h.stopCh)

	h.debouncer.Stop()

	if h.useFsnotify && h.fsWatcher != nil {
		_ = h.fsWatcher.Close()
	}
	for _, pw := range h.pollWatchers {
		_ = pw.Stop()
	}

	close(h.events)
	close(h.errors)
	return nil
}

// Events returns the channel of individual, debounced file events.
func (h *HybridWatcher) Events() <-chan FileEvent {
	return h.events
}

// Errors returns the channel of non-fatal watcher errors.
func (h *HybridWatcher) Errors() <-chan error {
	return h.errors
}

// DroppedEvents returns the number of events dropped due to buffer overflow.
func (h *HybridWatcher) DroppedEvents() uint64 {
	return h.droppedEvents.Load()
}

// TryReceive performs a non-blocking receive from Events.
func (h *HybridWatcher) TryReceive() (FileEvent, bool) {
	select {
	case event, ok := <-h.events:
		return event, ok
	default:
		return FileEvent{}, false
	}
}

// ReceiveTimeout receives from Events, bounded by timeout.
func (h *HybridWatcher) ReceiveTimeout(timeout time.Duration) (FileEvent, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case event, ok := <-h.events:
		return event, ok
	case <-timer.C:
		return FileEvent{}, false
	}
}

// WatcherType returns the type of watcher being used ("fsnotify" or "polling").
func (h *HybridWatcher) WatcherType() string {
	if h.useFsnotify {
		return "fsnotify"
	}
	return "polling"
}

// Roots returns the absolute root paths being watched.
func (h *HybridWatcher) Roots() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]string(nil), h.roots...)
}

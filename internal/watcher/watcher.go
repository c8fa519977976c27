package watcher

import (
	"context"
	"time"

	"github.com/cortexlabs/cortex/internal/config"
)

// Operation represents a file system operation type. A rename is reported
// as a Delete of the old path followed by a Create of the new one; there
// is no distinct rename operation on the wire.
type Operation int

const (
	// OpCreate indicates a new file or directory was created.
	OpCreate Operation = iota
	// OpModify indicates an existing file was modified.
	OpModify
	// OpDelete indicates a file or directory was deleted.
	OpDelete
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent represents a file system event.
type FileEvent struct {
	// Path is the absolute path to the file or directory.
	Path string

	// Operation is the type of file system operation.
	Operation Operation

	// IsDir indicates if the event is for a directory.
	IsDir bool

	// Timestamp is when the event was detected.
	Timestamp time.Time
}

// Watcher defines the interface for multi-root file system watching.
type Watcher interface {
	// Start begins watching the given roots recursively. Registration
	// failure for any root is returned synchronously before watching
	// begins. The watcher runs until Stop is called or ctx is cancelled.
	Start(ctx context.Context, roots []string) error

	// Stop stops the watcher and releases resources. Safe to call
	// multiple times.
	Stop() error

	// Events returns a channel of individual file events, already
	// debounced. The channel is closed when the watcher stops.
	Events() <-chan FileEvent

	// Errors returns a channel of watcher errors. Non-fatal errors are
	// sent here; the watcher continues running. Closed when the watcher
	// stops.
	Errors() <-chan error

	// DroppedEvents returns the number of events dropped because the
	// bounded event channel was full.
	DroppedEvents() uint64
}

// Options configures the watcher behavior.
type Options struct {
	// DebounceWindow is the time to wait before emitting coalesced events.
	// Default: 200ms
	DebounceWindow time.Duration

	// PollInterval is the interval for polling mode (fallback).
	// Default: 5s
	PollInterval time.Duration

	// EventBufferSize is the size of the event channel buffer.
	// Default: 1000
	EventBufferSize int

	// IgnorePatterns are additional gitignore-syntax patterns to ignore.
	IgnorePatterns []string
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  200 * time.Millisecond,
		PollInterval:    5 * time.Second,
		EventBufferSize: 1000,
		IgnorePatterns:  nil,
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.DebounceWindow == 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.PollInterval == 0 {
		o.PollInterval = defaults.PollInterval
	}
	if o.EventBufferSize == 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	return o
}

// OptionsFromConfig bridges the resolved WatchConfig into watcher Options.
func OptionsFromConfig(cfg config.WatchConfig) Options {
	return Options{
		DebounceWindow:  time.Duration(cfg.DebounceWindowMS) * time.Millisecond,
		PollInterval:    time.Duration(cfg.PollIntervalS) * time.Second,
		EventBufferSize: cfg.EventBufferSize,
		IgnorePatterns:  cfg.IgnorePatterns,
	}.WithDefaults()
}

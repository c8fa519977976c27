package index

import "time"

// RunState is a Coordinator run's position in its lifecycle.
type RunState int

const (
	StateIdle RunState = iota
	StateScanning
	StateExtracting
	StateCompleted
	StateCancelled
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateExtracting:
		return "extracting"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// FileError records a single per-file failure surfaced during a run.
type FileError struct {
	Path  string
	Cause string
}

// Status is the snapshot returned by Coordinator.Status — the
// "(active, total, processed, current_file_or_none, errors[], percent)"
// tuple from the run contract.
type Status struct {
	State       RunState
	Total       int
	Processed   int
	CurrentFile string
	Errors      []FileError
	Percent     float64
	StartedAt   time.Time
	Duration    time.Duration
}

// Active reports whether a run is currently scanning or extracting.
func (s Status) Active() bool {
	return s.State == StateScanning || s.State == StateExtracting
}

// FileMeta is the metadata the Coordinator hands to the Store for a
// discovered or changed file.
type FileMeta struct {
	Path        string
	Filename    string
	Ext         string
	Size        int64
	CreatedAt   time.Time
	ModifiedAt  time.Time
	ContentHash string
	Root        string
}

// ProgressEvent is emitted on a throttled subset of processed jobs.
type ProgressEvent struct {
	Total       int
	Processed   int
	CurrentFile string
	Percent     float64
}

// FileErrorEvent is emitted once per failed file; never fatal to the run.
type FileErrorEvent struct {
	Path  string
	Cause string
}

// CompletionEvent summarizes a finished or cancelled run.
type CompletionEvent struct {
	State     RunState
	Total     int
	Processed int
	Errors    int
	Duration  time.Duration
}

// EventSink is the thin, fire-and-forget sink the Coordinator publishes
// lifecycle events to. Implementations must not block the pipeline; a slow
// or full consumer drops events rather than applying backpressure.
type EventSink interface {
	Emit(topic string, payload any)
}

const (
	TopicProgress   = "indexing:progress"
	TopicFileError  = "indexing:error"
	TopicCompletion = "indexing:complete"
)

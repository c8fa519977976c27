// Package cerrors defines Cortex's structured error taxonomy.
//
// It is named cerrors (not errors) purely to avoid shadowing the
// standard library package of the same name in every file that needs
// both.
package cerrors

import "fmt"

// Kind is the machine-readable error taxonomy from the error handling
// design: a fixed, closed set of kinds rather than an open string code
// space.
type Kind string

const (
	// InvalidQuery covers empty/malformed search input and inverted
	// filter bounds (min > max).
	InvalidQuery Kind = "InvalidQuery"
	// NotFound covers a file id that is absent or soft-deleted.
	NotFound Kind = "NotFound"
	// Duplicate covers inserting a live file at an already-indexed path.
	Duplicate Kind = "Duplicate"
	// InvalidVector covers a dimension mismatch on upsert_vector.
	InvalidVector Kind = "InvalidVector"
	// AlreadyRunning covers starting a run while one is active.
	AlreadyRunning Kind = "AlreadyRunning"
	// NotRunning covers stopping a run when none is active.
	NotRunning Kind = "NotRunning"
	// RootUnavailable covers a scan root that is missing or not a directory.
	RootUnavailable Kind = "RootUnavailable"
	// ExtractionFailed covers a per-file extraction failure; never fatal.
	ExtractionFailed Kind = "ExtractionFailed"
	// StoreError covers transient store failures: lock contention after
	// retries, disk I/O errors.
	StoreError Kind = "StoreError"
	// StorageFatal covers corruption or unrecoverable write failure that
	// terminates the active run.
	StorageFatal Kind = "StorageFatal"
	// StoreVersionMismatch covers a schema newer than this build understands.
	StoreVersionMismatch Kind = "StoreVersionMismatch"
	// StoreCorrupted covers a database that fails its integrity check on open.
	StoreCorrupted Kind = "StoreCorrupted"
)

// retryableKinds are kinds whose operation may succeed if retried.
var retryableKinds = map[Kind]bool{
	StoreError: true,
}

// fatalKinds abort the active run or the open call, per §7.
var fatalKinds = map[Kind]bool{
	StorageFatal:         true,
	StoreVersionMismatch: true,
	StoreCorrupted:       true,
}

// Error is Cortex's structured error type. It carries a machine-readable
// Kind alongside a human explanation short enough for a toast-sized UI
// element, plus optional structured Details and a Suggestion.
type Error struct {
	Kind       Kind
	Message    string
	Details    map[string]string
	Cause      error
	Retryable  bool
	Suggestion string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a *Error with the same Kind, enabling
// errors.Is(err, cerrors.New(cerrors.NotFound, ...)).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithDetail attaches a key-value detail and returns the error for chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion attaches an actionable suggestion and returns the error.
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

// New creates an Error of the given kind. Retryability is derived from
// the kind; assign the Retryable field to override it.
func New(kind Kind, message string) *Error {
	return &Error{
		Kind:      kind,
		Message:   message,
		Retryable: retryableKinds[kind],
	}
}

// Wrap creates an Error of the given kind from an existing error, keeping
// it as Cause.
func Wrap(kind Kind, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:      kind,
		Message:   err.Error(),
		Cause:     err,
		Retryable: retryableKinds[kind],
	}
}

// Of returns the Kind of err if it is (or wraps) a *Error, and ok=true.
func Of(err error) (kind Kind, ok bool) {
	var e *Error
	for err != nil {
		if ce, isCE := err.(*Error); isCE {
			e = ce
			break
		}
		u, isWrapper := err.(interface{ Unwrap() error })
		if !isWrapper {
			break
		}
		err = u.Unwrap()
	}
	if e == nil {
		return "", false
	}
	return e.Kind, true
}

// Is reports whether err is (or wraps) a *Error with the given kind.
func Is(err error, kind Kind) bool {
	k, ok := Of(err)
	return ok && k == kind
}

// IsRetryable reports whether err is a *Error with Retryable set.
func IsRetryable(err error) bool {
	if ae, ok := err.(*Error); ok {
		return ae.Retryable
	}
	return false
}

// IsFatal reports whether err carries a kind that aborts a run or open call.
func IsFatal(err error) bool {
	k, ok := Of(err)
	return ok && fatalKinds[k]
}

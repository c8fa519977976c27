package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cortexlabs/cortex/internal/cerrors"
	"github.com/cortexlabs/cortex/internal/extract"
	"github.com/cortexlabs/cortex/internal/scanner"
)

// Store is the durable-storage dependency the Coordinator writes through.
// internal/store.Store satisfies this interface; it is declared here, at
// the consumer, so the Coordinator depends on behavior it needs rather
// than on the store package's full surface.
type Store interface {
	// UpsertFile inserts or updates file metadata by path, reporting
	// whether the content hash changed (and therefore needs re-extraction).
	UpsertFile(meta FileMeta) (id int64, contentChanged bool, err error)
	// UpsertContent replaces a file's extracted content in one transaction.
	UpsertContent(fileID int64, text, summary string) error
	// MarkDeleted soft-deletes the file at path, if any.
	MarkDeleted(path string) error
}

// Extractor is the content-decoding dependency. *extract.Dispatcher
// satisfies this interface.
type Extractor interface {
	Extract(ctx context.Context, path string) (extract.ExtractedContent, error)
}

// Coordinator runs the scan-extract-store pipeline to completion or
// cancellation, publishing progress and lifecycle events. Exactly one
// background run is active per Coordinator instance at a time.
type Coordinator struct {
	scanner   *scanner.Scanner
	extractor Extractor
	store     Store
	sink      EventSink

	mu      sync.RWMutex
	state   RunState
	status  Status
	stopped bool

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewCoordinator builds a Coordinator wired to its pipeline dependencies.
func NewCoordinator(sc *scanner.Scanner, ex Extractor, st Store, sink EventSink) *Coordinator {
	return &Coordinator{
		scanner:   sc,
		extractor: ex,
		store:     st,
		sink:      sink,
		state:     StateIdle,
	}
}

// Start validates the roots, resets progress/error state, spawns the
// background run, and returns immediately. It fails with AlreadyRunning if
// a run is already active.
func (c *Coordinator) Start(ctx context.Context, roots []string) error {
	c.mu.Lock()
	if c.state == StateScanning || c.state == StateExtracting {
		c.mu.Unlock()
		return cerrors.New(cerrors.AlreadyRunning, "a run is already active")
	}
	c.mu.Unlock()

	total, err := c.scanner.Count(ctx, roots)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.state = StateScanning
	c.status = Status{State: StateScanning, Total: total, StartedAt: time.Now()}
	c.stopped = false
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	c.mu.Unlock()

	go c.run(ctx, roots)
	return nil
}

// Cancel sets a cooperative stop flag; the job in flight completes, then
// the run transitions to Cancelled and emits its completion event.
func (c *Coordinator) Cancel() error {
	c.mu.Lock()
	if c.state != StateScanning && c.state != StateExtracting {
		c.mu.Unlock()
		return cerrors.New(cerrors.NotRunning, "no active run to cancel")
	}
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	close(c.stopCh)
	c.mu.Unlock()
	return nil
}

// Status returns a snapshot of the current run's progress.
func (c *Coordinator) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.status
	s.Errors = append([]FileError(nil), c.status.Errors...)
	if s.Active() {
		s.Duration = time.Since(s.StartedAt)
	}
	return s
}

// Wait blocks until the active run (if any) finishes.
func (c *Coordinator) Wait() {
	c.mu.RLock()
	done := c.doneCh
	c.mu.RUnlock()
	if done != nil {
		<-done
	}
}

func (c *Coordinator) run(ctx context.Context, roots []string) {
	defer close(c.doneCh)

	queue := NewPriorityQueue()

	for _, root := range roots {
		if c.stopRequested() {
			break
		}
		jobs, warnings, err := c.scanner.Scan(ctx, []string{root})
		if err != nil {
			c.recordFileError(root, err.Error())
			continue
		}
		c.drainScanResults(jobs, warnings, queue)
	}

	c.setState(StateExtracting)

	processed := 0
	for {
		if c.stopRequested() {
			break
		}
		job, ok := queue.Pop()
		if !ok {
			break
		}
		c.processJob(ctx, job)
		processed++
		c.updateProgress(processed, job.Path)
	}

	c.finish()
}

// drainScanResults pulls every job and warning off the scanner's channels,
// pushing jobs onto the priority queue and recording warnings as non-fatal
// file errors. Cancellation is checked between emitted jobs.
func (c *Coordinator) drainScanResults(jobs <-chan scanner.IndexJob, warnings <-chan scanner.Warning, queue *PriorityQueue) {
	for jobs != nil || warnings != nil {
		select {
		case job, ok := <-jobs:
			if !ok {
				jobs = nil
				continue
			}
			queue.Push(job)
			if c.stopRequested() {
				return
			}
		case warn, ok := <-warnings:
			if !ok {
				warnings = nil
				continue
			}
			c.recordFileError(warn.Path, warn.Reason)
		}
	}
}

// processJob extracts and stores a single file. Failures are recovered:
// recorded, counted, and the pipeline continues.
func (c *Coordinator) processJob(ctx context.Context, job scanner.IndexJob) {
	hash, err := hashFile(job.Path)
	if err != nil {
		c.recordFileError(job.Path, err.Error())
		return
	}

	meta := FileMeta{
		Path:        job.Path,
		Filename:    filepath.Base(job.Path),
		Ext:         strings.TrimPrefix(job.Ext, "."),
		Size:        job.Size,
		ModifiedAt:  job.ModTime,
		ContentHash: hash,
	}

	id, changed, err := c.store.UpsertFile(meta)
	if err != nil {
		c.recordFileError(job.Path, err.Error())
		return
	}
	if !changed {
		return
	}

	content, err := c.extractor.Extract(ctx, job.Path)
	if err != nil {
		c.recordFileError(job.Path, err.Error())
		return
	}

	if err := c.store.UpsertContent(id, content.Text, content.Summary); err != nil {
		c.recordFileError(job.Path, err.Error())
	}
}

// IngestPath reprocesses a single file outside of a full run, used by a
// host wiring Watcher create/modify events into this Coordinator once the
// initial scan has completed. It builds an IndexJob from the file's
// current on-disk stat and runs it through the same extract-then-store
// path as a scanned job; errors are reported the same way a scan-time
// per-file failure is (recorded and emitted, never fatal to the caller).
func (c *Coordinator) IngestPath(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		c.recordFileError(path, err.Error())
		return nil
	}
	if info.IsDir() {
		return nil
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	job := scanner.IndexJob{
		Path:     path,
		Size:     info.Size(),
		ModTime:  info.ModTime(),
		Ext:      ext,
		Priority: scanner.PriorityForSize(info.Size()),
	}
	c.processJob(ctx, job)
	return nil
}

// IngestDelete soft-deletes path, used by a host wiring Watcher delete
// events (and the delete half of a rename) into this Coordinator.
func (c *Coordinator) IngestDelete(path string) error {
	return c.store.MarkDeleted(path)
}

func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func (c *Coordinator) stopRequested() bool {
	c.mu.RLock()
	ch := c.stopCh
	c.mu.RUnlock()
	if ch == nil {
		return false
	}
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func (c *Coordinator) setState(state RunState) {
	c.mu.Lock()
	c.state = state
	c.status.State = state
	c.mu.Unlock()
}

func (c *Coordinator) recordFileError(path, cause string) {
	c.mu.Lock()
	c.status.Errors = append(c.status.Errors, FileError{Path: path, Cause: cause})
	c.mu.Unlock()
	c.sink.Emit(TopicFileError, FileErrorEvent{Path: path, Cause: cause})
}

// updateProgress updates the shared progress snapshot on every pop and
// emits a progress event on a throttled subset: index 0, multiples of 10,
// or the last job.
func (c *Coordinator) updateProgress(processed int, currentFile string) {
	c.mu.Lock()
	c.status.Processed = processed
	c.status.CurrentFile = currentFile
	if c.status.Total > 0 {
		c.status.Percent = float64(processed) / float64(c.status.Total) * 100
	}
	total := c.status.Total
	percent := c.status.Percent
	c.mu.Unlock()

	if processed == 1 || processed%10 == 0 || processed == total {
		c.sink.Emit(TopicProgress, ProgressEvent{
			Total:       total,
			Processed:   processed,
			CurrentFile: currentFile,
			Percent:     percent,
		})
	}
}

func (c *Coordinator) finish() {
	c.mu.Lock()
	finalState := StateCompleted
	if c.stopped {
		finalState = StateCancelled
	}
	c.state = finalState
	c.status.State = finalState
	total := c.status.Total
	processed := c.status.Processed
	errCount := len(c.status.Errors)
	duration := time.Since(c.status.StartedAt)
	c.status.Duration = duration
	c.mu.Unlock()

	c.sink.Emit(TopicCompletion, CompletionEvent{
		State:     finalState,
		Total:     total,
		Processed: processed,
		Errors:    errCount,
		Duration:  duration,
	})
}

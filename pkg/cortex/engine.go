// Package cortex is the public facade over the file-intelligence engine:
// it wires the Store, Scanner, Watcher, Coordinator, Query Engine and
// Vector Layer into the six host-facing operations (§6) and keeps the
// in-memory Vector Layer in step with the on-disk Store as files are
// scanned, watched, and re-embedded.
//
// A host (the cmd/cortex CLI, or an embedding process driving this module
// as a library) opens one Engine per data directory and calls its methods;
// Engine owns the background scan/watch goroutines and all locking needed
// to make those calls safe to issue concurrently.
package cortex

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/cortexlabs/cortex/internal/cerrors"
	"github.com/cortexlabs/cortex/internal/config"
	"github.com/cortexlabs/cortex/internal/extract"
	"github.com/cortexlabs/cortex/internal/index"
	"github.com/cortexlabs/cortex/internal/scanner"
	"github.com/cortexlabs/cortex/internal/search"
	"github.com/cortexlabs/cortex/internal/store"
	"github.com/cortexlabs/cortex/internal/telemetry"
	"github.com/cortexlabs/cortex/internal/vector"
	"github.com/cortexlabs/cortex/internal/watcher"
)

// Engine is the assembled Cortex instance: one Store-backed database plus
// the pipeline and query components layered over it.
type Engine struct {
	cfg     *config.Config
	store   *store.Store
	coord   *index.Coordinator
	query   *search.Engine
	vectors *vector.Layer

	mu      sync.Mutex
	watch   watcher.Watcher
	watchWG sync.WaitGroup
	roots   []string
	stopped bool
}

// Open resolves cfg's store path, opens the Store, and assembles the rest
// of the pipeline around it. sink receives Coordinator lifecycle events
// (indexing:progress, indexing:error, indexing:complete); pass
// index.NewLogSink(nil) for a host that only wants the default log line per
// event, or a *index.ChannelSink for a host that wants to consume them
// itself.
func Open(cfg *config.Config, sink index.EventSink) (*Engine, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if sink == nil {
		sink = index.NewLogSink(nil)
	}

	st, err := store.Open(cfg.ResolvedStorePath())
	if err != nil {
		return nil, err
	}

	tstore, err := telemetry.NewSQLiteStore(st.DB())
	if err != nil {
		st.Close()
		return nil, err
	}
	if err := telemetry.InitSchema(st.DB()); err != nil {
		st.Close()
		return nil, fmt.Errorf("init telemetry schema: %w", err)
	}

	sc := scanner.New(cfg.Scan)
	ex := extract.NewDispatcher()
	coord := index.NewCoordinator(sc, ex, st, sink)
	qe := search.NewEngineWithTelemetry(st, tstore)

	layer := vector.New(cfg.Vector.Dimension, cfg.Vector.Model)

	e := &Engine{
		cfg:     cfg,
		store:   st,
		coord:   coord,
		query:   qe,
		vectors: layer,
	}

	if err := e.reloadVectorSnapshot(); err != nil {
		st.Close()
		return nil, err
	}

	return e, nil
}

// Close stops any running watch and flushes/closes the underlying Store
// and query telemetry.
func (e *Engine) Close() error {
	e.mu.Lock()
	w := e.watch
	e.watch = nil
	e.mu.Unlock()

	if w != nil {
		_ = w.Stop()
		e.watchWG.Wait()
	}

	if err := e.query.Close(); err != nil {
		return err
	}
	return e.store.Close()
}

// reloadVectorSnapshot rebuilds the in-memory Vector Layer from the
// Store's vectors table for the active model. Called at Open and again
// after a full indexing run completes, since UpsertContent invalidates
// stale vector rows on content change without the Coordinator knowing
// about the in-memory layer.
func (e *Engine) reloadVectorSnapshot() error {
	rows, err := e.store.ListVectors(e.cfg.Vector.Model)
	if err != nil {
		return err
	}
	snapshot := make(map[int64][]float32, len(rows))
	for _, v := range rows {
		snapshot[v.FileID] = v.Values
	}
	return e.vectors.LoadSnapshot(snapshot)
}

// StartIndexing begins an asynchronous scan-extract-store run over roots
// and, once it completes, starts watching the same roots for further
// changes. It fails with AlreadyRunning if a run or watch is already
// active.
func (e *Engine) StartIndexing(ctx context.Context, roots []string) error {
	abs := make([]string, len(roots))
	for i, r := range roots {
		a, err := filepath.Abs(r)
		if err != nil {
			return cerrors.New(cerrors.RootUnavailable, "cannot resolve root").WithDetail("root", r)
		}
		abs[i] = a
	}

	e.mu.Lock()
	watching := e.watch != nil
	e.mu.Unlock()
	if watching {
		return cerrors.New(cerrors.AlreadyRunning, "roots are already being watched")
	}

	if err := e.coord.Start(ctx, abs); err != nil {
		return err
	}

	e.mu.Lock()
	e.roots = abs
	e.stopped = false
	e.mu.Unlock()

	go e.watchAfterRun(ctx, abs)
	return nil
}

// watchAfterRun waits for the initial run to finish, refreshes the vector
// snapshot, and then starts watching for incremental changes. It is a
// no-op past the initial wait if StopIndexing already requested a stop
// while the run was in flight.
func (e *Engine) watchAfterRun(ctx context.Context, roots []string) {
	e.coord.Wait()
	_ = e.reloadVectorSnapshot()

	e.mu.Lock()
	stopped := e.stopped
	e.mu.Unlock()
	if stopped || ctx.Err() != nil {
		return
	}

	w, err := watcher.NewHybridWatcher(watcher.OptionsFromConfig(e.cfg.Watch))
	if err != nil {
		return
	}

	e.mu.Lock()
	e.watch = w
	e.mu.Unlock()

	e.watchWG.Add(1)
	go e.pumpWatchEvents(ctx, w)

	// Start blocks for as long as the watch runs; when it fails or ctx ends,
	// Stop closes the event channel so the pump exits.
	if err := w.Start(ctx, roots); err != nil {
		_ = w.Stop()
		e.mu.Lock()
		if e.watch == w {
			e.watch = nil
		}
		e.mu.Unlock()
	}
}

// pumpWatchEvents feeds Watcher events into the Coordinator's incremental
// ingest path until the event channel closes (watcher stopped) or ctx is
// cancelled.
func (e *Engine) pumpWatchEvents(ctx context.Context, w watcher.Watcher) {
	defer e.watchWG.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events():
			if !ok {
				return
			}
			if ev.IsDir {
				continue
			}
			switch ev.Operation {
			case watcher.OpCreate, watcher.OpModify:
				_ = e.coord.IngestPath(ctx, ev.Path)
				e.vectors.Delete(fileIDForPath(e, ev.Path))
			case watcher.OpDelete:
				_ = e.coord.IngestDelete(ev.Path)
			}
		}
	}
}

// fileIDForPath looks up a file's id for vector invalidation on
// watcher-driven re-ingest; a miss (file not yet indexed, or extraction
// failed) is silently ignored since there is nothing to invalidate.
func fileIDForPath(e *Engine, path string) int64 {
	f, err := e.store.GetFileByPath(path)
	if err != nil {
		return 0
	}
	return f.ID
}

// StopIndexing cancels the active run and, if watching has already
// started, stops it too. Fails with NotRunning if nothing is active.
func (e *Engine) StopIndexing() error {
	err := e.coord.Cancel()

	e.mu.Lock()
	e.stopped = true
	w := e.watch
	e.watch = nil
	e.mu.Unlock()
	if w != nil {
		_ = w.Stop()
		e.watchWG.Wait()
		if cerrors.Is(err, cerrors.NotRunning) {
			return nil
		}
	}

	return err
}

// GetIndexStatus returns the current run's progress snapshot.
func (e *Engine) GetIndexStatus() index.Status {
	return e.coord.Status()
}

// SearchFiles runs a filtered full-text search.
func (e *Engine) SearchFiles(query string, filters search.Filters, limit, offset int) (search.Results, error) {
	return e.query.Search(query, filters, limit, offset)
}

// GetFileDetail returns a file's metadata plus content preview or full text.
func (e *Engine) GetFileDetail(fileID int64, includeFullContent bool) (search.FileDetail, error) {
	return e.query.FileDetail(fileID, includeFullContent)
}

// GetSearchStats returns file counts/sizes, the latency histogram, and the
// supplemented query-term/zero-result telemetry snapshot.
func (e *Engine) GetSearchStats() (search.Stats, search.LatencyBuckets, *telemetry.Snapshot, error) {
	s, err := e.query.Stats()
	if err != nil {
		return search.Stats{}, search.LatencyBuckets{}, nil, err
	}
	return s, e.query.LatencyBuckets(), e.query.Insights(), nil
}

// UpsertVector stores fileID's embedding under the active model,
// keeping the Store and the in-memory Vector Layer in sync. len(vec) must
// match the configured VectorConfig.Dimension.
func (e *Engine) UpsertVector(fileID int64, vec []float32) error {
	if err := e.store.UpsertVector(fileID, vec, e.cfg.Vector.Model, e.cfg.Vector.Dimension); err != nil {
		return err
	}
	return e.vectors.Upsert(fileID, vec)
}

// SemanticSearch ranks indexed files by cosine similarity to vec. A
// threshold <= 0 falls back to the configured VectorConfig.SimilarityThreshold.
func (e *Engine) SemanticSearch(vec []float32, limit int, threshold float64) ([]vector.Result, error) {
	if threshold <= 0 {
		threshold = e.cfg.Vector.SimilarityThreshold
	}
	return e.vectors.Search(vec, limit, threshold)
}

// SimilarFiles ranks indexed files by cosine similarity to fileID's own
// embedding. A threshold <= 0 falls back to the configured default.
func (e *Engine) SimilarFiles(fileID int64, limit int, threshold float64) ([]vector.Result, error) {
	if threshold <= 0 {
		threshold = e.cfg.Vector.SimilarityThreshold
	}
	return e.vectors.SimilarTo(fileID, limit, threshold)
}

// HybridHit is one ranked result of HybridSearch, joining the RRF-fused
// rank against the file's own metadata.
type HybridHit struct {
	FileID       int64
	Path         string
	Filename     string
	FileType     string
	Size         int64
	ModifiedAt   time.Time
	RRFScore     float64
	KeywordRank  int
	SemanticRank int
	InBoth       bool
}

// HybridSearch fuses a keyword search over queryText with a semantic
// search over queryVector using reciprocal rank fusion, weighted by
// alpha (share given to the semantic side). alpha <= 0 falls back to
// the configured VectorConfig.Alpha.
func (e *Engine) HybridSearch(queryText string, queryVector []float32, limit int, alpha float64) ([]HybridHit, error) {
	if alpha <= 0 {
		alpha = e.cfg.Vector.Alpha
	}
	if limit <= 0 {
		limit = search.DefaultLimit
	}

	fanOut := limit * 4
	if fanOut < 50 {
		fanOut = 50
	}

	kwResults, err := e.query.Search(queryText, search.Filters{}, fanOut, 0)
	if err != nil {
		return nil, err
	}
	keyword := make([]vector.Ranked, len(kwResults.Hits))
	for i, h := range kwResults.Hits {
		keyword[i] = vector.Ranked{FileID: h.FileID, Score: h.Score}
	}

	semResults, err := e.vectors.Search(queryVector, fanOut, 0)
	if err != nil {
		return nil, err
	}
	semantic := make([]vector.Ranked, len(semResults))
	for i, r := range semResults {
		semantic[i] = vector.Ranked{FileID: r.FileID, Score: r.Similarity}
	}

	fused := vector.Fuse(keyword, semantic, vector.WeightsFromAlpha(alpha))
	if len(fused) > limit {
		fused = fused[:limit]
	}

	out := make([]HybridHit, 0, len(fused))
	for _, f := range fused {
		file, err := e.store.GetFileByID(f.FileID)
		if err != nil {
			continue
		}
		out = append(out, HybridHit{
			FileID:       f.FileID,
			Path:         file.Path,
			Filename:     file.Filename,
			FileType:     file.FileType,
			Size:         file.Size,
			ModifiedAt:   file.ModifiedAt,
			RRFScore:     f.RRFScore,
			KeywordRank:  f.KeywordRank,
			SemanticRank: f.SemanticRank,
			InBoth:       f.InBoth,
		})
	}
	return out, nil
}

package search

import (
	"strings"
	"time"

	"github.com/cortexlabs/cortex/internal/cerrors"
	"github.com/cortexlabs/cortex/internal/store"
	"github.com/cortexlabs/cortex/internal/telemetry"
)

// Engine is the Query Engine (§4.7): it validates queries/filters, asks
// the Store for ranked, snippeted hits, and serves file-detail and stats
// reads.
type Engine struct {
	store   *store.Store
	latency *latencyHistogram
	metrics *telemetry.QueryMetrics
}

// NewEngine builds a query Engine over st with in-memory-only telemetry
// (no top-terms/zero-result persistence across restarts). Use
// NewEngineWithTelemetry to persist those into st's own database.
func NewEngine(st *store.Store) *Engine {
	return &Engine{store: st, latency: newLatencyHistogram(1000), metrics: telemetry.New(nil)}
}

// NewEngineWithTelemetry builds a query Engine whose top-terms,
// zero-result-query, and latency-distribution telemetry persists into st's
// database via telemetry.SQLiteStore. Callers own closing the returned
// Engine's telemetry via Close.
func NewEngineWithTelemetry(st *store.Store, tstore telemetry.Store) *Engine {
	return &Engine{store: st, latency: newLatencyHistogram(1000), metrics: telemetry.New(tstore)}
}

// Close releases the Engine's telemetry resources, flushing any pending
// aggregates to durable storage first.
func (e *Engine) Close() error {
	return e.metrics.Close()
}

// Search validates query and filters, then returns a ranked page of hits.
// limit defaults to DefaultLimit when <= 0 and is capped at MaxLimit;
// offset defaults to 0 when negative.
func (e *Engine) Search(query string, filters Filters, limit, offset int) (Results, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Results{}, cerrors.New(cerrors.InvalidQuery, "query must not be empty")
	}

	storeFilters, err := toStoreFilters(filters)
	if err != nil {
		return Results{}, err
	}

	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}

	hits, total, elapsed, err := e.store.SearchText(query, storeFilters, limit, offset)
	if err != nil {
		return Results{}, err
	}

	elapsedMS := float64(elapsed) / float64(time.Millisecond)
	e.latency.add(elapsedMS)
	e.metrics.Record(telemetry.QueryEvent{Query: query, ResultCount: total, Latency: elapsed, Timestamp: time.Now()})

	out := make([]Hit, len(hits))
	for i, h := range hits {
		out[i] = Hit{
			FileID:     h.FileID,
			Path:       h.Path,
			Filename:   h.Filename,
			FileType:   h.FileType,
			Size:       h.Size,
			ModifiedAt: h.ModifiedAt,
			Snippet:    h.Snippet,
			Score:      h.Score,
		}
	}

	return Results{Hits: out, Total: total, ElapsedMS: elapsedMS}, nil
}

// toStoreFilters validates filter bounds and converts to store.SearchFilters.
func toStoreFilters(f Filters) (store.SearchFilters, error) {
	if f.MinSize != nil && f.MaxSize != nil && *f.MinSize > *f.MaxSize {
		return store.SearchFilters{}, cerrors.New(cerrors.InvalidQuery, "min_size must not exceed max_size")
	}

	out := store.SearchFilters{
		FileType: f.FileType,
		MinSize:  f.MinSize,
		MaxSize:  f.MaxSize,
	}

	var from, to *time.Time
	if f.DateFrom != "" {
		t, err := time.Parse(time.RFC3339, f.DateFrom)
		if err != nil {
			return store.SearchFilters{}, cerrors.New(cerrors.InvalidQuery, "date_from is not valid ISO-8601").WithDetail("date_from", f.DateFrom)
		}
		from = &t
	}
	if f.DateTo != "" {
		t, err := time.Parse(time.RFC3339, f.DateTo)
		if err != nil {
			return store.SearchFilters{}, cerrors.New(cerrors.InvalidQuery, "date_to is not valid ISO-8601").WithDetail("date_to", f.DateTo)
		}
		to = &t
	}
	if from != nil && to != nil && from.After(*to) {
		return store.SearchFilters{}, cerrors.New(cerrors.InvalidQuery, "date_from must not be after date_to")
	}
	out.DateFrom, out.DateTo = from, to

	return out, nil
}

// FileDetail returns fileID's metadata plus either a content preview (first
// previewChars characters) or the full content, per includeFullContent.
// A soft-deleted or absent file id fails with NotFound.
func (e *Engine) FileDetail(fileID int64, includeFullContent bool) (FileDetail, error) {
	f, err := e.store.GetFileByID(fileID)
	if err != nil {
		return FileDetail{}, err
	}
	if f.IsDeleted {
		return FileDetail{}, cerrors.New(cerrors.NotFound, "file is deleted").WithDetail("file_id", f.Path)
	}

	detail := FileDetail{
		FileID:     f.ID,
		Path:       f.Path,
		Filename:   f.Filename,
		FileType:   f.FileType,
		Size:       f.Size,
		CreatedAt:  f.CreatedAt,
		ModifiedAt: f.ModifiedAt,
	}

	c, err := e.store.GetContent(fileID)
	if err != nil {
		if cerrors.Is(err, cerrors.NotFound) {
			return detail, nil
		}
		return FileDetail{}, err
	}
	detail.WordCount = c.WordCount
	detail.Summary = c.Summary

	if includeFullContent {
		detail.FullContent = c.Text
		return detail, nil
	}
	detail.ContentPreview = truncate(c.Text, previewChars)
	return detail, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Stats returns total/indexed file counts and total size.
func (e *Engine) Stats() (Stats, error) {
	s, err := e.store.StoreStats()
	if err != nil {
		return Stats{}, err
	}
	return Stats{TotalFiles: s.TotalFiles, IndexedFiles: s.IndexedFiles, TotalSizeBytes: s.TotalSizeBytes}, nil
}

// LatencyBuckets returns the supplemented p50/p100/p500/p1000 latency
// histogram over recent Search calls.
func (e *Engine) LatencyBuckets() LatencyBuckets {
	return e.latency.snapshot()
}

// Insights returns the supplemented query-telemetry snapshot: top search
// terms, recent zero-result queries, and the persisted latency
// distribution.
func (e *Engine) Insights() *telemetry.Snapshot {
	return e.metrics.Snapshot()
}

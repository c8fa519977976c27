package vector

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cortexlabs/cortex/internal/cerrors"
)

// Result is one ranked nearest-neighbour match.
type Result struct {
	FileID     int64
	Similarity float64
}

// Layer holds one normalized dense vector per file for the active model in
// a contiguous arena, grounded on the teacher's hnsw.go id/key-map
// bookkeeping combined with a sqlitevec-style contiguous float32 arena for
// cache-friendly sequential scan. Deletions are lazy: a row is orphaned
// (dropped from the id index, left in the arena) rather than compacted,
// matching hnsw.go's own lazy-deletion strategy.
type Layer struct {
	mu    sync.RWMutex
	dim   int
	model string

	arena []float32      // len == len(ids)*dim; arena[i*dim:(i+1)*dim] is ids[i]'s vector
	ids   []int64        // arena row -> file id; -1 marks an orphaned (deleted) row
	index map[int64]int  // file id -> arena row
}

// New creates an empty Layer for the given dimension and active model tag.
func New(dim int, model string) *Layer {
	return &Layer{dim: dim, model: model, index: make(map[int64]int)}
}

// Dim returns the layer's declared vector dimension.
func (l *Layer) Dim() int { return l.dim }

// Model returns the active model version tag this layer searches.
func (l *Layer) Model() string { return l.model }

// LoadSnapshot replaces the arena's contents with vectors, e.g. at startup
// from Store.ListVectors(model). Vectors of the wrong dimension are
// rejected wholesale: a snapshot is assumed internally consistent.
func (l *Layer) LoadSnapshot(vectors map[int64][]float32) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	arena := make([]float32, 0, len(vectors)*l.dim)
	ids := make([]int64, 0, len(vectors))
	index := make(map[int64]int, len(vectors))

	for fileID, vec := range vectors {
		if len(vec) != l.dim {
			return cerrors.New(cerrors.InvalidVector, fmt.Sprintf("snapshot vector for file %d has %d dimensions, expected %d", fileID, len(vec), l.dim))
		}
		index[fileID] = len(ids)
		ids = append(ids, fileID)
		arena = append(arena, vec...)
	}

	l.arena, l.ids, l.index = arena, ids, index
	return nil
}

// Upsert stores or replaces fileID's vector. Dimension mismatches fail with
// InvalidVector and leave the layer unchanged.
func (l *Layer) Upsert(fileID int64, vec []float32) error {
	if len(vec) != l.dim {
		return cerrors.New(cerrors.InvalidVector, fmt.Sprintf("vector has %d dimensions, expected %d", len(vec), l.dim))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if row, ok := l.index[fileID]; ok {
		copy(l.arena[row*l.dim:(row+1)*l.dim], vec)
		return nil
	}

	row := len(l.ids)
	l.ids = append(l.ids, fileID)
	l.arena = append(l.arena, vec...)
	l.index[fileID] = row
	return nil
}

// Delete orphans fileID's row: removed from the lookup index, left in the
// arena as dead weight until the next LoadSnapshot rebuild.
func (l *Layer) Delete(fileID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if row, ok := l.index[fileID]; ok {
		l.ids[row] = -1
		delete(l.index, fileID)
	}
}

// Count returns the number of live (non-orphaned) vectors.
func (l *Layer) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.index)
}

// Search returns files whose vector has cosine similarity >= threshold to
// query, sorted descending, truncated to limit. Vectors are assumed
// L2-normalized on insert, so cosine similarity reduces to a dot product.
func (l *Layer) Search(query []float32, limit int, threshold float64) ([]Result, error) {
	if len(query) != l.dim {
		return nil, cerrors.New(cerrors.InvalidVector, fmt.Sprintf("query vector has %d dimensions, expected %d", len(query), l.dim))
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	var results []Result
	for row, id := range l.ids {
		if id < 0 {
			continue
		}
		sim := dot(l.arena[row*l.dim:(row+1)*l.dim], query)
		if sim >= threshold {
			results = append(results, Result{FileID: id, Similarity: sim})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].FileID < results[j].FileID
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// SimilarTo searches using fileID's own stored vector. NotFound if fileID
// has no vector in this layer.
func (l *Layer) SimilarTo(fileID int64, limit int, threshold float64) ([]Result, error) {
	l.mu.RLock()
	row, ok := l.index[fileID]
	var self []float32
	if ok {
		self = append([]float32(nil), l.arena[row*l.dim:(row+1)*l.dim]...)
	}
	l.mu.RUnlock()

	if !ok {
		return nil, cerrors.New(cerrors.NotFound, "file has no stored vector").WithDetail("file_id", fmt.Sprint(fileID))
	}

	searchLimit := limit
	if limit > 0 {
		searchLimit = limit + 1 // room for fileID itself, dropped below
	}
	results, err := l.Search(self, searchLimit, threshold)
	if err != nil {
		return nil, err
	}

	out := results[:0]
	for _, r := range results {
		if r.FileID == fileID {
			continue
		}
		out = append(out, r)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

package store

import (
	"strings"
	"time"

	"github.com/cortexlabs/cortex/internal/cerrors"
)

// SearchFilters are the optional, AND-combined predicates the Query
// Engine applies alongside the FTS5 text match. A nil bound means
// "unbounded" on that side.
type SearchFilters struct {
	FileType string // "" means no file_type filter
	MinSize  *int64
	MaxSize  *int64
	DateFrom *time.Time
	DateTo   *time.Time
}

// Hit is one ranked search result: a file plus the snippet synthesized
// around its best-matching window.
type Hit struct {
	FileID     int64
	Path       string
	Filename   string
	FileType   string
	Size       int64
	ModifiedAt time.Time
	Snippet    string
	Score      float64
}

// SearchText matches query against the inverted index, applies filters,
// and returns a page of ranked Hits plus the total match count (computed
// irrespective of limit/offset) and elapsed query time.
//
// Filters are bound as prepared-statement parameters, never
// string-concatenated into the query text.
func (s *Store) SearchText(query string, filters SearchFilters, limit, offset int) ([]Hit, int, time.Duration, error) {
	start := time.Now()

	where, args := buildFilterClause(filters)
	whereSQL := ""
	if where != "" {
		whereSQL = " AND " + where
	}

	countSQL := `
		SELECT COUNT(*) FROM content_fts
		JOIN files f ON f.id = content_fts.rowid
		WHERE content_fts MATCH ? AND f.is_deleted = 0` + whereSQL
	countArgs := append([]any{query}, args...)

	var total int
	if err := s.db.QueryRow(countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, time.Since(start), cerrors.Wrap(cerrors.StoreError, err)
	}

	selectSQL := `
		SELECT f.id, f.path, f.filename, f.file_type, f.size, f.modified_at,
		       snippet(content_fts, 1, '<mark>', '</mark>', '…', 32) AS snip,
		       bm25(content_fts) AS score
		FROM content_fts
		JOIN files f ON f.id = content_fts.rowid
		WHERE content_fts MATCH ? AND f.is_deleted = 0` + whereSQL + `
		ORDER BY score ASC
		LIMIT ? OFFSET ?`
	selectArgs := append(append([]any{query}, args...), limit, offset)

	rows, err := s.db.Query(selectSQL, selectArgs...)
	if err != nil {
		return nil, 0, time.Since(start), cerrors.Wrap(cerrors.StoreError, err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		var modifiedAt string
		if err := rows.Scan(&h.FileID, &h.Path, &h.Filename, &h.FileType, &h.Size, &modifiedAt, &h.Snippet, &h.Score); err != nil {
			return nil, 0, time.Since(start), cerrors.Wrap(cerrors.StoreError, err)
		}
		h.ModifiedAt, _ = time.Parse(timeLayout, modifiedAt)
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, time.Since(start), cerrors.Wrap(cerrors.StoreError, err)
	}

	return hits, total, time.Since(start), nil
}

func buildFilterClause(f SearchFilters) (string, []any) {
	var clauses []string
	var args []any

	if f.FileType != "" {
		clauses = append(clauses, "f.file_type = ?")
		args = append(args, f.FileType)
	}
	if f.MinSize != nil {
		clauses = append(clauses, "f.size >= ?")
		args = append(args, *f.MinSize)
	}
	if f.MaxSize != nil {
		clauses = append(clauses, "f.size <= ?")
		args = append(args, *f.MaxSize)
	}
	if f.DateFrom != nil {
		clauses = append(clauses, "f.modified_at >= ?")
		args = append(args, f.DateFrom.UTC().Format(timeLayout))
	}
	if f.DateTo != nil {
		clauses = append(clauses, "f.modified_at <= ?")
		args = append(args, f.DateTo.UTC().Format(timeLayout))
	}

	return strings.Join(clauses, " AND "), args
}

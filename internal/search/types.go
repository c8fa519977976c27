package search

import "time"

// Filters are the optional, AND-combined predicates accepted by Search.
// DateFrom/DateTo are ISO-8601 strings per the command surface's textual
// field conventions; "" means unbounded.
type Filters struct {
	FileType string
	MinSize  *int64
	MaxSize  *int64
	DateFrom string
	DateTo   string
}

// Hit is one ranked search result.
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

// Results is the search() return value: hits, the total match count
// irrespective of limit/offset, and wall-clock query time.
type Results struct {
	Hits      []Hit
	Total     int
	ElapsedMS float64
}

// FileDetail is the file_detail() return value.
type FileDetail struct {
	FileID         int64
	Path           string
	Filename       string
	FileType       string
	Size           int64
	CreatedAt      time.Time
	ModifiedAt     time.Time
	WordCount      int
	Summary        string
	ContentPreview string
	FullContent    string
}

// Stats is the stats() / get_search_stats return value.
type Stats struct {
	TotalFiles     int
	IndexedFiles   int
	TotalSizeBytes int64
}

const (
	// DefaultLimit is applied when the caller passes limit <= 0.
	DefaultLimit = 50
	// MaxLimit is the hard cap on limit regardless of caller input.
	MaxLimit = 1000
	// previewChars is the content_preview length when include_full_content
	// is false.
	previewChars = 500
)

package store

import "time"

// File is a durable row in the files table.
type File struct {
	ID          int64
	Path        string
	Filename    string
	FileType    string
	Size        int64
	CreatedAt   time.Time
	ModifiedAt  time.Time
	ContentHash string
	Root        string
	IsDeleted   bool
}

// Content is a file's extracted text and derived counts.
type Content struct {
	FileID         int64
	Text           string
	WordCount      int
	Summary        string
	SourceLanguage string
}

// Vector is one dense embedding row for a file under a given model version.
type Vector struct {
	FileID int64
	Values []float32
	Model  string
}

// Stats summarizes the store's contents for stats()/get_search_stats.
type Stats struct {
	TotalFiles     int
	IndexedFiles   int
	TotalSizeBytes int64
}

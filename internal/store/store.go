package store

import (
	"crypto/sha256"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver, no CGO

	"github.com/cortexlabs/cortex/internal/cerrors"
	"github.com/cortexlabs/cortex/internal/index"
)

// Store is Cortex's single embedded relational store: one *sql.DB owning
// files, content (+ the trigger-synced content_fts virtual table), and
// vectors. A single connection (SetMaxOpenConns(1)) serializes writes, and
// reads wait for that same connection, so reads do not run concurrently
// with each other or with a write.
type Store struct {
	mu   sync.Mutex // serializes writes beyond what SetMaxOpenConns(1) already does for clarity of intent
	db   *sql.DB
	path string
	lock *dirLock
}

var _ index.Store = (*Store)(nil)

// Open opens (creating if absent) the database at path, applying pragmas,
// verifying or initializing the schema, and checking integrity. path may be
// ":memory:" for a private in-memory store used by tests.
func Open(path string) (*Store, error) {
	var lock *dirLock
	if path != ":memory:" && path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, cerrors.Wrap(cerrors.StoreError, err).WithDetail("path", path)
		}

		var err error
		lock, err = acquireDirLock(dir)
		if err != nil {
			return nil, cerrors.Wrap(cerrors.StoreError, err).WithDetail("path", path)
		}

		if err := checkIntegrity(path); err != nil {
			_ = quarantine(path)
		}
	}

	dsn := path
	if path != ":memory:" {
		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		if lock != nil {
			_ = lock.Release()
		}
		return nil, cerrors.Wrap(cerrors.StoreError, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			if lock != nil {
				_ = lock.Release()
			}
			return nil, cerrors.Wrap(cerrors.StoreError, fmt.Errorf("pragma %q: %w", p, err))
		}
	}

	s := &Store{db: db, path: path, lock: lock}
	if err := s.init(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return cerrors.Wrap(cerrors.StoreError, fmt.Errorf("init schema: %w", err))
	}

	var version int
	err := s.db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)
	switch {
	case err == sql.ErrNoRows:
		if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES (?)", CurrentSchemaVersion); err != nil {
			return cerrors.Wrap(cerrors.StoreError, err)
		}
	case err != nil:
		return cerrors.Wrap(cerrors.StoreError, err)
	case version > CurrentSchemaVersion:
		return cerrors.New(cerrors.StoreVersionMismatch,
			fmt.Sprintf("database schema version %d is newer than supported version %d", version, CurrentSchemaVersion))
	}

	var check string
	if err := s.db.QueryRow("PRAGMA integrity_check").Scan(&check); err != nil {
		return cerrors.Wrap(cerrors.StoreError, err)
	}
	if check != "ok" {
		return cerrors.New(cerrors.StoreCorrupted, check)
	}
	return nil
}

// checkIntegrity opens path read-only and runs a quick integrity check,
// used before the real Open to decide whether the database needs
// quarantining. A missing file is not an error: Open will create one.
func checkIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return err
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return err
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

// quarantine renames a corrupted database (and its WAL/SHM siblings) aside
// so Open can start fresh rather than fail forever, per §11's
// corruption-self-healing supplement.
func quarantine(path string) error {
	ts := time.Now().UTC().Format("20060102T150405")
	if err := os.Rename(path, path+".corrupt."+ts); err != nil && !os.IsNotExist(err) {
		return err
	}
	_ = os.Rename(path+"-wal", path+"-wal.corrupt."+ts)
	_ = os.Rename(path+"-shm", path+"-shm.corrupt."+ts)
	return nil
}

// Close releases the database handle and the directory lock.
func (s *Store) Close() error {
	err := s.db.Close()
	if s.lock != nil {
		if lerr := s.lock.Release(); lerr != nil && err == nil {
			err = lerr
		}
	}
	return err
}

// isUniqueErr reports whether err is a UNIQUE constraint violation. Beyond
// this, transient lock contention (SQLITE_BUSY) is handled by the
// busy_timeout pragma at the driver level rather than an app-level retry
// loop, matching the teacher's sqlite_bm25.go approach.
func isUniqueErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint")
}

// HashContent returns the hex sha256 of text. It has the same form as the
// content hash the Coordinator stores, which is computed over a file's raw
// bytes rather than its extracted text.
func HashContent(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%x", sum)
}

const timeLayout = time.RFC3339

// UpsertFile inserts a new live file row, or updates the existing live row
// at the same path, reporting whether its content hash changed (and
// therefore needs re-extraction). Unchanged hash is a no-op on Content; the
// caller decides whether to skip extraction entirely.
func (s *Store) UpsertFile(meta index.FileMeta) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id int64
	var existingHash string
	err := s.db.QueryRow(`SELECT id, content_hash FROM files WHERE path = ? AND is_deleted = 0`, meta.Path).Scan(&id, &existingHash)
	switch {
	case err == sql.ErrNoRows:
		res, err := s.db.Exec(`
			INSERT INTO files(path, filename, file_type, size, created_at, modified_at, content_hash, root, is_deleted)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0)`,
			meta.Path, meta.Filename, meta.Ext, meta.Size,
			meta.CreatedAt.UTC().Format(timeLayout), meta.ModifiedAt.UTC().Format(timeLayout),
			meta.ContentHash, meta.Root)
		if err != nil {
			if isUniqueErr(err) {
				return 0, false, cerrors.New(cerrors.Duplicate, "a live file already exists at this path").WithDetail("path", meta.Path)
			}
			return 0, false, cerrors.Wrap(cerrors.StoreError, err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return 0, false, cerrors.Wrap(cerrors.StoreError, err)
		}
		return id, true, nil
	case err != nil:
		return 0, false, cerrors.Wrap(cerrors.StoreError, err)
	}

	changed := existingHash != meta.ContentHash
	_, err = s.db.Exec(`
		UPDATE files SET filename = ?, file_type = ?, size = ?, modified_at = ?, content_hash = ?, root = ?
		WHERE id = ?`,
		meta.Filename, meta.Ext, meta.Size, meta.ModifiedAt.UTC().Format(timeLayout), meta.ContentHash, meta.Root, id)
	if err != nil {
		return 0, false, cerrors.Wrap(cerrors.StoreError, err)
	}
	return id, changed, nil
}

// UpsertContent replaces fileID's extracted content (and, via triggers, its
// content_fts row) in one transaction. It also invalidates any stored
// vector for fileID, since content changing makes the old embedding stale.
func (s *Store) UpsertContent(fileID int64, text, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return cerrors.Wrap(cerrors.StoreError, err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM files WHERE id = ?`, fileID).Scan(&exists); err != nil {
		return cerrors.Wrap(cerrors.StoreError, err)
	}
	if exists == 0 {
		return cerrors.New(cerrors.NotFound, "file id does not exist").WithDetail("file_id", fmt.Sprint(fileID))
	}

	wordCount := len(strings.Fields(text))
	_, err = tx.Exec(`
		INSERT INTO content(file_id, text, word_count, summary) VALUES (?, ?, ?, ?)
		ON CONFLICT(file_id) DO UPDATE SET text = excluded.text, word_count = excluded.word_count, summary = excluded.summary`,
		fileID, text, wordCount, summary)
	if err != nil {
		return cerrors.Wrap(cerrors.StoreError, err)
	}

	if _, err := tx.Exec(`DELETE FROM vectors WHERE file_id = ?`, fileID); err != nil {
		return cerrors.Wrap(cerrors.StoreError, err)
	}

	if err := tx.Commit(); err != nil {
		return cerrors.Wrap(cerrors.StoreError, err)
	}
	return nil
}

// GetFileByID returns the file row for id, including soft-deleted rows.
func (s *Store) GetFileByID(id int64) (File, error) {
	return s.scanFile(s.db.QueryRow(`
		SELECT id, path, filename, file_type, size, created_at, modified_at, content_hash, root, is_deleted
		FROM files WHERE id = ?`, id))
}

// GetFileByPath returns the live file row at path.
func (s *Store) GetFileByPath(path string) (File, error) {
	return s.scanFile(s.db.QueryRow(`
		SELECT id, path, filename, file_type, size, created_at, modified_at, content_hash, root, is_deleted
		FROM files WHERE path = ? AND is_deleted = 0`, path))
}

func (s *Store) scanFile(row *sql.Row) (File, error) {
	var f File
	var createdAt, modifiedAt string
	var isDeleted int
	err := row.Scan(&f.ID, &f.Path, &f.Filename, &f.FileType, &f.Size, &createdAt, &modifiedAt, &f.ContentHash, &f.Root, &isDeleted)
	if err == sql.ErrNoRows {
		return File{}, cerrors.New(cerrors.NotFound, "file not found")
	}
	if err != nil {
		return File{}, cerrors.Wrap(cerrors.StoreError, err)
	}
	f.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	f.ModifiedAt, _ = time.Parse(timeLayout, modifiedAt)
	f.IsDeleted = isDeleted != 0
	return f, nil
}

// GetContent returns the content row for fileID.
func (s *Store) GetContent(fileID int64) (Content, error) {
	var c Content
	err := s.db.QueryRow(`SELECT file_id, text, word_count, summary, source_language FROM content WHERE file_id = ?`, fileID).
		Scan(&c.FileID, &c.Text, &c.WordCount, &c.Summary, &c.SourceLanguage)
	if err == sql.ErrNoRows {
		return Content{}, cerrors.New(cerrors.NotFound, "no content for file").WithDetail("file_id", fmt.Sprint(fileID))
	}
	if err != nil {
		return Content{}, cerrors.Wrap(cerrors.StoreError, err)
	}
	return c, nil
}

// ListFiles returns a page of files ordered by id, excluding soft-deleted
// rows unless includeDeleted is set.
func (s *Store) ListFiles(limit, offset int, includeDeleted bool) ([]File, error) {
	query := `SELECT id, path, filename, file_type, size, created_at, modified_at, content_hash, root, is_deleted FROM files`
	if !includeDeleted {
		query += ` WHERE is_deleted = 0`
	}
	query += ` ORDER BY id LIMIT ? OFFSET ?`

	rows, err := s.db.Query(query, limit, offset)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.StoreError, err)
	}
	defer rows.Close()

	var files []File
	for rows.Next() {
		var f File
		var createdAt, modifiedAt string
		var isDeleted int
		if err := rows.Scan(&f.ID, &f.Path, &f.Filename, &f.FileType, &f.Size, &createdAt, &modifiedAt, &f.ContentHash, &f.Root, &isDeleted); err != nil {
			return nil, cerrors.Wrap(cerrors.StoreError, err)
		}
		f.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		f.ModifiedAt, _ = time.Parse(timeLayout, modifiedAt)
		f.IsDeleted = isDeleted != 0
		files = append(files, f)
	}
	return files, rows.Err()
}

// MarkDeleted soft-deletes the live file at path, if any. A path with no
// live row is a no-op, matching the Coordinator's "file disappeared"
// handling: it does not know whether the file was ever indexed.
func (s *Store) MarkDeleted(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE files SET is_deleted = 1 WHERE path = ? AND is_deleted = 0`, path)
	if err != nil {
		return cerrors.Wrap(cerrors.StoreError, err)
	}
	return nil
}

// DeleteFile hard-deletes fileID, cascading to its Content (and, via
// triggers, its content_fts row) and Vector.
func (s *Store) DeleteFile(fileID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`DELETE FROM files WHERE id = ?`, fileID)
	if err != nil {
		return cerrors.Wrap(cerrors.StoreError, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return cerrors.New(cerrors.NotFound, "file not found").WithDetail("file_id", fmt.Sprint(fileID))
	}
	return nil
}

// FileCount returns the number of live files.
func (s *Store) FileCount() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM files WHERE is_deleted = 0`).Scan(&n)
	if err != nil {
		return 0, cerrors.Wrap(cerrors.StoreError, err)
	}
	return n, nil
}

// IndexedFileCount returns the number of live files that have content.
func (s *Store) IndexedFileCount() (int, error) {
	var n int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM files f JOIN content c ON c.file_id = f.id WHERE f.is_deleted = 0`).Scan(&n)
	if err != nil {
		return 0, cerrors.Wrap(cerrors.StoreError, err)
	}
	return n, nil
}

// TotalSize returns the summed size in bytes of all live files.
func (s *Store) TotalSize() (int64, error) {
	var total sql.NullInt64
	err := s.db.QueryRow(`SELECT SUM(size) FROM files WHERE is_deleted = 0`).Scan(&total)
	if err != nil {
		return 0, cerrors.Wrap(cerrors.StoreError, err)
	}
	return total.Int64, nil
}

// StoreStats returns the §4.7 stats() tuple in one call.
func (s *Store) StoreStats() (Stats, error) {
	total, err := s.FileCount()
	if err != nil {
		return Stats{}, err
	}
	indexed, err := s.IndexedFileCount()
	if err != nil {
		return Stats{}, err
	}
	size, err := s.TotalSize()
	if err != nil {
		return Stats{}, err
	}
	return Stats{TotalFiles: total, IndexedFiles: indexed, TotalSizeBytes: size}, nil
}

// DB exposes the underlying *sql.DB so other components can keep their own
// tables in the same database; pkg/cortex uses it for the query telemetry
// tables. Full-text queries go through SearchText instead.
func (s *Store) DB() *sql.DB {
	return s.db
}

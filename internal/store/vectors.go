package store

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cortexlabs/cortex/internal/cerrors"
)

// encodeVector serializes a []float32 as little-endian 32-bit floats, the
// fixed-width wire format spec §9 pins for cross-platform readers.
func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector is the inverse of encodeVector.
func decodeVector(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}

// UpsertVector stores fileID's embedding under model, validating that its
// length matches dim. A dimension mismatch fails with InvalidVector and
// leaves no row — the write is rejected before any INSERT is attempted.
func (s *Store) UpsertVector(fileID int64, vec []float32, model string, dim int) error {
	if len(vec) != dim {
		return cerrors.New(cerrors.InvalidVector,
			fmt.Sprintf("vector has %d dimensions, expected %d", len(vec), dim)).
			WithDetail("file_id", fmt.Sprint(fileID))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM files WHERE id = ?`, fileID).Scan(&exists); err != nil {
		return cerrors.Wrap(cerrors.StoreError, err)
	}
	if exists == 0 {
		return cerrors.New(cerrors.NotFound, "file id does not exist").WithDetail("file_id", fmt.Sprint(fileID))
	}

	_, err := s.db.Exec(`
		INSERT INTO vectors(file_id, vector, dim, model) VALUES (?, ?, ?, ?)
		ON CONFLICT(file_id) DO UPDATE SET vector = excluded.vector, dim = excluded.dim, model = excluded.model`,
		fileID, encodeVector(vec), len(vec), model)
	if err != nil {
		return cerrors.Wrap(cerrors.StoreError, err)
	}
	return nil
}

// GetVector returns fileID's stored vector.
func (s *Store) GetVector(fileID int64) (Vector, error) {
	var blob []byte
	var model string
	err := s.db.QueryRow(`SELECT vector, model FROM vectors WHERE file_id = ?`, fileID).Scan(&blob, &model)
	if err == sql.ErrNoRows {
		return Vector{}, cerrors.New(cerrors.NotFound, "no vector for file").WithDetail("file_id", fmt.Sprint(fileID))
	}
	if err != nil {
		return Vector{}, cerrors.Wrap(cerrors.StoreError, err)
	}
	return Vector{FileID: fileID, Values: decodeVector(blob), Model: model}, nil
}

// ListVectors returns every stored vector for model, the snapshot the
// Vector Layer loads into its in-memory arena at startup and after writes.
func (s *Store) ListVectors(model string) ([]Vector, error) {
	rows, err := s.db.Query(`SELECT file_id, vector FROM vectors WHERE model = ?`, model)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.StoreError, err)
	}
	defer rows.Close()

	var out []Vector
	for rows.Next() {
		var fileID int64
		var blob []byte
		if err := rows.Scan(&fileID, &blob); err != nil {
			return nil, cerrors.Wrap(cerrors.StoreError, err)
		}
		out = append(out, Vector{FileID: fileID, Values: decodeVector(blob), Model: model})
	}
	return out, rows.Err()
}

// DeleteVector removes fileID's vector, if any. A missing row is a no-op.
func (s *Store) DeleteVector(fileID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM vectors WHERE file_id = ?`, fileID)
	if err != nil {
		return cerrors.Wrap(cerrors.StoreError, err)
	}
	return nil
}

// VectorCount returns the number of stored vectors for model.
func (s *Store) VectorCount(model string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM vectors WHERE model = ?`, model).Scan(&n)
	if err != nil {
		return 0, cerrors.Wrap(cerrors.StoreError, err)
	}
	return n, nil
}

// FilesWithoutVector returns the ids of live, indexed files that have no
// vector under model — candidates for (re-)embedding.
func (s *Store) FilesWithoutVector(model string) ([]int64, error) {
	rows, err := s.db.Query(`
		SELECT f.id FROM files f
		JOIN content c ON c.file_id = f.id
		LEFT JOIN vectors v ON v.file_id = f.id AND v.model = ?
		WHERE f.is_deleted = 0 AND v.file_id IS NULL`, model)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.StoreError, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, cerrors.Wrap(cerrors.StoreError, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

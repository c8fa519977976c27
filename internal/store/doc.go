// Package store is Cortex's embedded relational store: one WAL-mode SQLite
// database holding file metadata, extracted content, a trigger-synced FTS5
// inverted index, and dense vectors.
//
// A single *sql.DB connection enforces the single-writer policy from the
// concurrency model (§5): SetMaxOpenConns(1) serializes writes. Reads share
// that one connection too, so within a process reads and writes run one at
// a time; WAL mode only lets other processes read while this one writes.
package store

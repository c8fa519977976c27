// Package vector implements the optional Vector Layer (§4.8): an
// in-memory, brute-force cosine-similarity index over one dense embedding
// per file, plus reciprocal-rank fusion with keyword search results.
//
// There is no approximate-nearest-neighbour index, per spec's explicit
// "no ANN at this scale" decision — a contiguous []float32 arena is
// snapshotted from the Store at startup and scanned linearly on every
// query, acceptable up to roughly 100,000 files.
package vector

// Package search implements the Query Engine: it validates a user query
// and optional filters, asks the Store for a ranked, snippeted page of
// hits, and exposes file-detail and stats reads alongside a rolling
// latency histogram.
package search

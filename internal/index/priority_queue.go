// Package index hosts the priority queue and background coordinator that
// turn scanned/watched files into stored, searchable content.
package index

import (
	"container/heap"
	"sync"

	"github.com/cortexlabs/cortex/internal/scanner"
)

// PriorityQueue orders pending IndexJobs by (priority tier descending,
// modification time descending). It is safe for concurrent push/pop. The
// Coordinator's run loop creates one per run, pushes the scanned jobs onto
// it, and pops them; watcher events bypass it through Coordinator.IngestPath.
type PriorityQueue struct {
	mu   sync.Mutex
	heap jobHeap
}

// NewPriorityQueue returns an empty queue ready for use.
func NewPriorityQueue() *PriorityQueue {
	q := &PriorityQueue{}
	heap.Init(&q.heap)
	return q
}

// Push adds job to the queue.
func (q *PriorityQueue) Push(job scanner.IndexJob) {
	q.mu.Lock()
	defer q.mu.Unlock()
	heap.Push(&q.heap, job)
}

// Extend adds every job in jobs to the queue.
func (q *PriorityQueue) Extend(jobs []scanner.IndexJob) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, job := range jobs {
		heap.Push(&q.heap, job)
	}
}

// Pop removes and returns the highest-priority job. ok is false if the
// queue was empty.
func (q *PriorityQueue) Pop() (job scanner.IndexJob, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.heap.Len() == 0 {
		return scanner.IndexJob{}, false
	}
	return heap.Pop(&q.heap).(scanner.IndexJob), true
}

// Len returns the number of jobs currently queued.
func (q *PriorityQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Len()
}

// IsEmpty reports whether the queue has no pending jobs.
func (q *PriorityQueue) IsEmpty() bool {
	return q.Len() == 0
}

// jobHeap is a container/heap.Interface max-heap over scanner.IndexJob,
// ordered by (Priority desc, ModTime desc). The order of ties is not
// defined (container/heap is not stable, but the Coordinator treats
// identical paths enqueued twice as cheap no-ops on the second pop via the
// stored content hash, so tie order has no observable effect).
type jobHeap []scanner.IndexJob

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	return h[i].ModTime.After(h[j].ModTime)
}

func (h jobHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *jobHeap) Push(x any) {
	*h = append(*h, x.(scanner.IndexJob))
}

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

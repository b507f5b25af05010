package syncer

import (
	"sync"

	"nathanbeddoewebdev/promptsync/internal/history"
)

// Queue is the in-memory FIFO of records waiting for the next attempt. It
// holds copies, so later mutation of a caller's record cannot leak in.
type Queue struct {
	mu    sync.Mutex
	items []history.ExecutionRecord
}

// Push appends one record.
func (q *Queue) Push(r history.ExecutionRecord) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, r)
	return len(q.items)
}

// PushAll appends records in order.
func (q *Queue) PushAll(rs []history.ExecutionRecord) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, rs...)
	return len(q.items)
}

// Drain removes and returns everything queued.
func (q *Queue) Drain() []history.ExecutionRecord {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

// Len returns the number of queued records.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// mergeBatch unions the pending set with drained queue entries, keeping the
// first occurrence of every id. Pending rows come first so the stored copy
// wins over a queued one.
func mergeBatch(pending, queued []history.ExecutionRecord) []history.ExecutionRecord {
	seen := make(map[string]bool, len(pending)+len(queued))
	batch := make([]history.ExecutionRecord, 0, len(pending)+len(queued))
	for _, set := range [][]history.ExecutionRecord{pending, queued} {
		for _, r := range set {
			if seen[r.ID] {
				continue
			}
			seen[r.ID] = true
			batch = append(batch, r)
		}
	}
	return batch
}

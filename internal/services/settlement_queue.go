package services

import (
	"container/heap"

	"github.com/ruralpay/ledgersim/internal/models"
)

// SettlementQueue orders pending transactions by (execution time, id). It is the only
// place the settlement order is decided.
type SettlementQueue struct {
	h pendingHeap
}

// NewSettlementQueue returns an empty queue.
func NewSettlementQueue() *SettlementQueue {
	return &SettlementQueue{}
}

// Len returns the number of pending transactions.
func (q *SettlementQueue) Len() int { return q.h.Len() }

// Push enqueues tx.
func (q *SettlementQueue) Push(tx *models.Transaction) { heap.Push(&q.h, tx) }

// Peek returns the earliest-due transaction without removing it.
func (q *SettlementQueue) Peek() (*models.Transaction, bool) {
	if q.h.Len() == 0 {
		return nil, false
	}
	return q.h[0], true
}

// Pop removes and returns the earliest-due transaction.
func (q *SettlementQueue) Pop() (*models.Transaction, bool) {
	if q.h.Len() == 0 {
		return nil, false
	}
	return heap.Pop(&q.h).(*models.Transaction), true
}

// settlesBefore is the settlement order: earlier execution first, then lower id.
func settlesBefore(a, b *models.Transaction) bool {
	if a.ExecuteAt != b.ExecuteAt {
		return a.ExecuteAt < b.ExecuteAt
	}
	return a.ID < b.ID
}

type pendingHeap []*models.Transaction

func (h pendingHeap) Len() int           { return len(h) }
func (h pendingHeap) Less(i, j int) bool { return settlesBefore(h[i], h[j]) }
func (h pendingHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *pendingHeap) Push(x any) { *h = append(*h, x.(*models.Transaction)) }

func (h *pendingHeap) Pop() any {
	old := *h
	n := len(old)
	tx := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return tx
}

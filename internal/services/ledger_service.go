package services

import (
	"sort"

	"github.com/ruralpay/ledgersim/internal/models"
)

// TransactionLedger is the append-only history of executed transactions, in settlement order.
type TransactionLedger struct {
	entries []*models.Transaction
	byID    map[uint64]*models.Transaction
}

// NewTransactionLedger returns an empty ledger.
func NewTransactionLedger() *TransactionLedger {
	return &TransactionLedger{byID: make(map[uint64]*models.Transaction)}
}

// Append records an executed transaction.
func (l *TransactionLedger) Append(tx *models.Transaction) {
	l.entries = append(l.entries, tx)
	l.byID[tx.ID] = tx
}

// Len returns the number of executed transactions.
func (l *TransactionLedger) Len() int { return len(l.entries) }

// Entries returns the ledger in settlement order. The slice is a copy; the records are shared.
func (l *TransactionLedger) Entries() []*models.Transaction {
	out := make([]*models.Transaction, len(l.entries))
	copy(out, l.entries)
	return out
}

// Get returns the executed transaction with id.
func (l *TransactionLedger) Get(id uint64) (*models.Transaction, bool) {
	tx, ok := l.byID[id]
	return tx, ok
}

// ExecutedBetween returns entries executed in [from, to), sorted by (execution time, id).
func (l *TransactionLedger) ExecutedBetween(from, to models.Timestamp) []*models.Transaction {
	return l.scan(func(tx *models.Transaction) bool {
		return tx.ExecuteAt >= from && tx.ExecuteAt < to
	})
}

// PlacedBetween returns entries placed in [from, to), sorted by (execution time, id).
func (l *TransactionLedger) PlacedBetween(from, to models.Timestamp) []*models.Transaction {
	return l.scan(func(tx *models.Transaction) bool {
		return tx.PlacedAt >= from && tx.PlacedAt < to
	})
}

func (l *TransactionLedger) scan(match func(*models.Transaction) bool) []*models.Transaction {
	var out []*models.Transaction
	for _, tx := range l.entries {
		if match(tx) {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return settlesBefore(out[i], out[j]) })
	return out
}

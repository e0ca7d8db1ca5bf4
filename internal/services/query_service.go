package services

import (
	"github.com/ruralpay/ledgersim/internal/models"
)

// DefaultHistoryLimit is how many recent transfers per direction a customer history shows.
const DefaultHistoryLimit = 10

// Elapsed is a packed timestamp difference split into its two-digit fields. The split is
// positional, not calendar arithmetic.
type Elapsed struct {
	Years   uint64 `json:"years"`
	Months  uint64 `json:"months"`
	Days    uint64 `json:"days"`
	Hours   uint64 `json:"hours"`
	Minutes uint64 `json:"minutes"`
	Seconds uint64 `json:"seconds"`
}

// ElapsedBetween splits to-from into fields.
func ElapsedBetween(from, to models.Timestamp) Elapsed {
	d := to.Since(from)
	return Elapsed{
		Years:   d / 10_000_000_000,
		Months:  d / 100_000_000 % 100,
		Days:    d / 1_000_000 % 100,
		Hours:   d / 10_000 % 100,
		Minutes: d / 100 % 100,
		Seconds: d % 100,
	}
}

// ListResult holds transfers executed in [From, To).
type ListResult struct {
	From          models.Timestamp      `json:"from"`
	To            models.Timestamp      `json:"to"`
	EmptyInterval bool                  `json:"empty_interval"`
	Transactions  []*models.Transaction `json:"transactions"`
}

// RevenueResult holds fees of transfers placed in [From, To).
type RevenueResult struct {
	From          models.Timestamp `json:"from"`
	To            models.Timestamp `json:"to"`
	EmptyInterval bool             `json:"empty_interval"`
	TotalFees     uint64           `json:"total_fees"`
	Elapsed       Elapsed          `json:"elapsed"`
}

// HistoryResult is a customer account summary.
type HistoryResult struct {
	UserID            string                `json:"user_id"`
	Found             bool                  `json:"found"`
	Balance           uint64                `json:"balance"`
	TotalTransactions int                   `json:"total_transactions"`
	IncomingCount     int                   `json:"incoming_count"`
	OutgoingCount     int                   `json:"outgoing_count"`
	Incoming          []*models.Transaction `json:"incoming"`
	Outgoing          []*models.Transaction `json:"outgoing"`
}

// DaySummaryResult holds transfers executed during one synthetic calendar day.
type DaySummaryResult struct {
	Start        models.Timestamp      `json:"start"`
	End          models.Timestamp      `json:"end"`
	Transactions []*models.Transaction `json:"transactions"`
	TotalFees    uint64                `json:"total_fees"`
}

// QueryService answers read-only questions over the ledger and directory. Every query
// requires query mode.
type QueryService struct {
	engine       *TransactionService
	historyLimit int
}

// NewQueryService creates a query service over engine.
func NewQueryService(engine *TransactionService, historyLimit int) *QueryService {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &QueryService{engine: engine, historyLimit: historyLimit}
}

func (q *QueryService) ready() error {
	if q.engine.Mode() != ModeQuery {
		return ErrOperationalMode
	}
	return nil
}

// List returns transfers executed in [from, to).
func (q *QueryService) List(from, to models.Timestamp) (ListResult, error) {
	if err := q.ready(); err != nil {
		return ListResult{}, err
	}

	res := ListResult{From: from, To: to}
	if to <= from {
		res.EmptyInterval = true
		return res, nil
	}
	res.Transactions = q.engine.Ledger().ExecutedBetween(from, to)
	return res, nil
}

// Revenue sums fees of executed transfers placed in [from, to).
func (q *QueryService) Revenue(from, to models.Timestamp) (RevenueResult, error) {
	if err := q.ready(); err != nil {
		return RevenueResult{}, err
	}

	res := RevenueResult{From: from, To: to}
	if to <= from {
		res.EmptyInterval = true
		return res, nil
	}
	for _, tx := range q.engine.Ledger().PlacedBetween(from, to) {
		res.TotalFees += tx.Fee
	}
	res.Elapsed = ElapsedBetween(from, to)
	return res, nil
}

// History summarizes a customer's account and most recent transfers.
func (q *QueryService) History(userID string) (HistoryResult, error) {
	if err := q.ready(); err != nil {
		return HistoryResult{}, err
	}

	res := HistoryResult{UserID: userID}
	account, ok := q.engine.Directory().Lookup(userID)
	if !ok {
		return res, nil
	}

	res.Found = true
	res.Balance = account.Balance
	res.TotalTransactions = account.TransactionCount()
	res.IncomingCount = len(account.Incoming)
	res.OutgoingCount = len(account.Outgoing)
	res.Incoming = lastN(account.Incoming, q.historyLimit)
	res.Outgoing = lastN(account.Outgoing, q.historyLimit)
	return res, nil
}

// DaySummary reports transfers executed on the day holding at.
func (q *QueryService) DaySummary(at models.Timestamp) (DaySummaryResult, error) {
	if err := q.ready(); err != nil {
		return DaySummaryResult{}, err
	}

	start, end := at.DayBounds()
	res := DaySummaryResult{Start: start, End: end}
	res.Transactions = q.engine.Ledger().ExecutedBetween(start, end)
	for _, tx := range res.Transactions {
		res.TotalFees += tx.Fee
	}
	return res, nil
}

// Transaction returns one executed transfer.
func (q *QueryService) Transaction(id uint64) (*models.Transaction, error) {
	if err := q.ready(); err != nil {
		return nil, err
	}
	tx, ok := q.engine.Ledger().Get(id)
	if !ok {
		return nil, ErrTransactionNotFound
	}
	return tx, nil
}

func lastN(txs []*models.Transaction, n int) []*models.Transaction {
	if len(txs) > n {
		txs = txs[len(txs)-n:]
	}
	out := make([]*models.Transaction, len(txs))
	copy(out, txs)
	return out
}

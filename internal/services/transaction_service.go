package services

import (
	"math"

	"github.com/ruralpay/ledgersim/internal/models"
)

// DefaultHorizon is the furthest a transfer may be scheduled past its placement, in ticks.
const DefaultHorizon uint64 = 3_000_000

// Mode is the processing phase of the engine.
type Mode int

const (
	// ModeOperational accepts session commands and placements.
	ModeOperational Mode = iota
	// ModeQuery is terminal and read-only.
	ModeQuery
)

func (m Mode) String() string {
	if m == ModeQuery {
		return "query"
	}
	return "operational"
}

// PlaceRequest is a parsed place command.
type PlaceRequest struct {
	PlacedAt  models.Timestamp
	IP        string
	Sender    string
	Recipient string
	Amount    uint64
	ExecuteAt models.Timestamp
	FeeMode   models.FeeMode
}

// TransactionService owns the directory, the settlement queue, the ledger and the logical
// clock. It is single-threaded: callers must not share it across goroutines while in
// operational mode.
type TransactionService struct {
	directory *UserDirectory
	queue     *SettlementQueue
	ledger    *TransactionLedger
	fees      FeePolicy
	horizon   uint64
	checked   bool
	sink      EventSink

	clock      models.Timestamp
	lastPlaced models.Timestamp
	placed     bool
	nextID     uint64
	mode       Mode
}

// Option configures a TransactionService.
type Option func(*TransactionService)

// WithFeePolicy replaces the default fee policy.
func WithFeePolicy(p FeePolicy) Option {
	return func(s *TransactionService) { s.fees = p }
}

// WithHorizon replaces the default scheduling horizon.
func WithHorizon(ticks uint64) Option {
	return func(s *TransactionService) { s.horizon = ticks }
}

// WithCheckedBalance enforces session and address checks on balance queries.
func WithCheckedBalance(checked bool) Option {
	return func(s *TransactionService) { s.checked = checked }
}

// WithEventSink sets the receiver of every engine event.
func WithEventSink(sink EventSink) Option {
	return func(s *TransactionService) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// NewTransactionService creates an engine over an imported directory. The clock starts
// at the first registration timestamp.
func NewTransactionService(directory *UserDirectory, opts ...Option) *TransactionService {
	s := &TransactionService{
		directory: directory,
		queue:     NewSettlementQueue(),
		ledger:    NewTransactionLedger(),
		fees:      DefaultFeePolicy(),
		horizon:   DefaultHorizon,
		sink:      discardSink{},
		clock:     directory.FirstRegistration(),
		mode:      ModeOperational,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Directory returns the user directory.
func (s *TransactionService) Directory() *UserDirectory { return s.directory }

// Ledger returns the executed transaction ledger.
func (s *TransactionService) Ledger() *TransactionLedger { return s.ledger }

// Clock returns the logical clock.
func (s *TransactionService) Clock() models.Timestamp { return s.clock }

// Mode returns the current processing phase.
func (s *TransactionService) Mode() Mode { return s.mode }

// Pending returns the number of queued transactions.
func (s *TransactionService) Pending() int { return s.queue.Len() }

// Login authenticates ip for a user.
func (s *TransactionService) Login(userID, pin, ip string) (Event, error) {
	if s.mode == ModeQuery {
		return Event{}, ErrQueryMode
	}
	return s.emit(s.directory.Login(userID, pin, ip)), nil
}

// Logout ends the session of ip for a user.
func (s *TransactionService) Logout(userID, ip string) (Event, error) {
	if s.mode == ModeQuery {
		return Event{}, ErrQueryMode
	}
	return s.emit(s.directory.Logout(userID, ip)), nil
}

// Balance reports a user's balance as of the logical clock.
func (s *TransactionService) Balance(userID, ip string) (Event, error) {
	if s.mode == ModeQuery {
		return Event{}, ErrQueryMode
	}
	return s.emit(s.directory.Balance(userID, ip, s.clock, s.checked)), nil
}

// Place validates a transfer, settles everything due by its placement time and queues it.
// A non-nil error is a protocol violation and the run must stop; business rejections are
// reported on the returned event.
func (s *TransactionService) Place(req PlaceRequest) (Event, error) {
	if s.mode == ModeQuery {
		return Event{}, ErrQueryMode
	}

	if s.placed && req.PlacedAt < s.lastPlaced {
		return Event{}, ErrDecreasingTimestamp
	}
	if req.ExecuteAt < req.PlacedAt {
		return Event{}, ErrExecutionBeforePlacement
	}
	s.clock = req.PlacedAt

	if reason := s.validatePlacement(req); reason != ReasonNone {
		return s.emit(Event{
			Kind:         EventPlaceRejected,
			Reason:       reason,
			UserID:       req.Sender,
			Counterparty: req.Recipient,
			IP:           req.IP,
		}), nil
	}

	s.lastPlaced = req.PlacedAt
	s.placed = true
	s.Advance(false)

	tx := &models.Transaction{
		ID:        s.nextID,
		PlacedAt:  req.PlacedAt,
		ExecuteAt: req.ExecuteAt,
		Sender:    req.Sender,
		Recipient: req.Recipient,
		Amount:    req.Amount,
		FeeMode:   req.FeeMode,
		Status:    models.TransactionPending,
	}
	s.nextID++
	s.queue.Push(tx)

	return s.emit(Event{Kind: EventPlaced, UserID: req.Sender, Counterparty: req.Recipient, IP: req.IP, Tx: tx}), nil
}

// validatePlacement applies the business rules in order; the first failure wins.
func (s *TransactionService) validatePlacement(req PlaceRequest) Reason {
	if req.Sender == req.Recipient {
		return ReasonSelfTransfer
	}
	if req.ExecuteAt.Since(req.PlacedAt) > s.horizon {
		return ReasonHorizonExceeded
	}

	sender, ok := s.directory.Lookup(req.Sender)
	if !ok {
		return ReasonUnknownSender
	}
	recipient, ok := s.directory.Lookup(req.Recipient)
	if !ok {
		return ReasonUnknownRecipient
	}
	if req.ExecuteAt < sender.RegisteredAt || req.ExecuteAt < recipient.RegisteredAt {
		return ReasonNotRegistered
	}
	if !sender.LoggedIn() {
		return ReasonSenderNotLoggedIn
	}
	if !sender.HasIP(req.IP) {
		return ReasonFraud
	}
	return ReasonNone
}

// Advance settles queued transactions due by the logical clock, or all of them when
// draining, in (execution time, id) order.
func (s *TransactionService) Advance(draining bool) []Event {
	var events []Event
	for {
		top, ok := s.queue.Peek()
		if !ok || (!draining && top.ExecuteAt > s.clock) {
			break
		}
		tx, _ := s.queue.Pop()
		events = append(events, s.settle(tx))
	}
	return events
}

// Drain settles every queued transaction regardless of its execution time. Draining an
// empty queue is a no-op.
func (s *TransactionService) Drain() []Event {
	var events []Event
	for s.queue.Len() > 0 {
		events = append(events, s.Advance(true)...)
	}
	return events
}

// EnterQueryMode drains the queue and switches permanently to query mode.
func (s *TransactionService) EnterQueryMode() []Event {
	events := s.Drain()
	if s.mode == ModeQuery {
		return events
	}
	s.mode = ModeQuery
	s.emit(Event{Kind: EventQueryMode, AsOf: s.clock})
	return events
}

// settle applies tx or discards it. Balances change only when both parties can pay.
func (s *TransactionService) settle(tx *models.Transaction) Event {
	sender, okSender := s.directory.Lookup(tx.Sender)
	recipient, okRecipient := s.directory.Lookup(tx.Recipient)
	if !okSender || !okRecipient {
		tx.Status = models.TransactionDiscarded
		return s.emit(Event{Kind: EventDiscarded, Reason: ReasonPartyMissing, UserID: tx.Sender, Counterparty: tx.Recipient, Tx: tx})
	}

	fee := s.fees.Calculate(tx.Amount, sender.RegisteredAt, tx.ExecuteAt)
	senderFee, recipientFee := s.fees.Allocate(tx.FeeMode, fee)

	if !canSettle(sender.Balance, recipient.Balance, tx.Amount, senderFee, recipientFee) {
		tx.Status = models.TransactionDiscarded
		return s.emit(Event{Kind: EventDiscarded, Reason: ReasonInsufficientFunds, UserID: tx.Sender, Counterparty: tx.Recipient, Tx: tx})
	}

	sender.Balance = sender.Balance - tx.Amount - senderFee
	recipient.Balance = recipient.Balance - recipientFee + tx.Amount

	tx.Fee = fee
	tx.SenderFee = senderFee
	tx.RecipientFee = recipientFee
	tx.Status = models.TransactionExecuted

	s.ledger.Append(tx)
	sender.Outgoing = append(sender.Outgoing, tx)
	recipient.Incoming = append(recipient.Incoming, tx)

	return s.emit(Event{Kind: EventExecuted, UserID: tx.Sender, Counterparty: tx.Recipient, Tx: tx})
}

// canSettle reports whether the sender covers amount plus its fee share, the recipient covers
// its fee share, and the credited balance fits in a uint64. None of the comparisons add.
func canSettle(senderBalance, recipientBalance, amount, senderFee, recipientFee uint64) bool {
	if amount > senderBalance || senderBalance-amount < senderFee {
		return false
	}
	if recipientBalance < recipientFee {
		return false
	}
	return recipientBalance-recipientFee <= math.MaxUint64-amount
}

func (s *TransactionService) emit(e Event) Event {
	s.sink.Emit(e)
	return e
}

package models

import "fmt"

// FeeMode selects who carries the settlement fee.
type FeeMode byte

const (
	// FeeSenderPays charges the whole fee to the sender.
	FeeSenderPays FeeMode = 'o'
	// FeeSplit charges ceil(fee/2) to the sender and floor(fee/2) to the recipient.
	FeeSplit FeeMode = 's'
)

// String returns the single-character command form.
func (m FeeMode) String() string { return string(rune(m)) }

// Valid reports whether m is a known allocation mode.
func (m FeeMode) Valid() bool { return m == FeeSenderPays || m == FeeSplit }

// MarshalText keeps exports readable ("o"/"s" instead of a byte value).
func (m FeeMode) MarshalText() ([]byte, error) { return []byte{byte(m)}, nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *FeeMode) UnmarshalText(text []byte) error {
	if len(text) != 1 || !FeeMode(text[0]).Valid() {
		return fmt.Errorf("models: unknown fee mode %q", text)
	}
	*m = FeeMode(text[0])
	return nil
}

// TransactionStatus tracks a transfer from placement to its final outcome.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "PENDING"
	TransactionExecuted  TransactionStatus = "EXECUTED"
	TransactionDiscarded TransactionStatus = "DISCARDED"
)

// Transaction is a scheduled transfer. While queued the fee is unset; once executed the
// record is shared by the ledger and both parties' histories and must not be modified.
type Transaction struct {
	ID           uint64            `json:"id" yaml:"id" db:"id"`
	PlacedAt     Timestamp         `json:"placed_at" yaml:"placed_at" db:"placed_at"`
	ExecuteAt    Timestamp         `json:"execute_at" yaml:"execute_at" db:"execute_at"`
	Sender       string            `json:"sender" yaml:"sender" db:"sender"`
	Recipient    string            `json:"recipient" yaml:"recipient" db:"recipient"`
	Amount       uint64            `json:"amount" yaml:"amount" db:"amount"`
	FeeMode      FeeMode           `json:"fee_mode" yaml:"fee_mode" db:"fee_mode"`
	Fee          uint64            `json:"fee" yaml:"fee" db:"fee"`
	SenderFee    uint64            `json:"sender_fee" yaml:"sender_fee" db:"sender_fee"`
	RecipientFee uint64            `json:"recipient_fee" yaml:"recipient_fee" db:"recipient_fee"`
	Status       TransactionStatus `json:"status" yaml:"status" db:"status"`
}

// Executed reports whether the transaction has been settled into the ledger.
func (t *Transaction) Executed() bool { return t.Status == TransactionExecuted }

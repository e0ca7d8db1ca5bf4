package models

// Registration is one record of the registration import: ts|id|pin|balance.
type Registration struct {
	RegisteredAt Timestamp `json:"registered_at" validate:"-"`
	UserID       string    `json:"user_id" validate:"required"`
	PIN          string    `json:"-" validate:"required"`
	Balance      uint64    `json:"balance"`
}

// Account is the live state of a registered user.
type Account struct {
	UserID       string    `json:"user_id" yaml:"user_id" db:"user_id"`
	PINHash      string    `json:"-" yaml:"-" db:"pin_hash"`
	Balance      uint64    `json:"balance" yaml:"balance" db:"balance"`
	RegisteredAt Timestamp `json:"registered_at" yaml:"registered_at" db:"registered_at"`

	// ActiveIPs holds every address the user is currently authenticated from.
	ActiveIPs map[string]struct{} `json:"-" yaml:"-"`

	Incoming []*Transaction `json:"-" yaml:"-"`
	Outgoing []*Transaction `json:"-" yaml:"-"`
}

// NewAccount builds an account from an imported registration and a hashed PIN.
func NewAccount(reg Registration, pinHash string) *Account {
	return &Account{
		UserID:       reg.UserID,
		PINHash:      pinHash,
		Balance:      reg.Balance,
		RegisteredAt: reg.RegisteredAt,
		ActiveIPs:    make(map[string]struct{}),
	}
}

// LoggedIn is derived from the authenticated address set.
func (a *Account) LoggedIn() bool { return len(a.ActiveIPs) > 0 }

// HasIP reports whether ip is an authenticated address for this account.
func (a *Account) HasIP(ip string) bool {
	_, ok := a.ActiveIPs[ip]
	return ok
}

// TransactionCount is the number of settled transfers touching the account.
func (a *Account) TransactionCount() int { return len(a.Incoming) + len(a.Outgoing) }

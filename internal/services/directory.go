package services

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ruralpay/ledgersim/internal/models"
)

// PINHasher hashes and verifies account PINs.
type PINHasher interface {
	HashPIN(pin string, salt []byte) (string, error)
	VerifyPIN(pin string, hashedPIN string) (bool, error)
}

// UserDirectory maps user ids to account state. Accounts are created once by Import and
// never removed.
type UserDirectory struct {
	accounts  map[string]*models.Account
	order     []string
	pins      PINHasher
	validator *ValidationHelper
	first     models.Timestamp
	loaded    bool
}

// NewUserDirectory creates an empty directory that stores PINs through pins.
func NewUserDirectory(pins PINHasher) *UserDirectory {
	return &UserDirectory{
		accounts:  make(map[string]*models.Account),
		pins:      pins,
		validator: NewValidationHelper(),
	}
}

// ParseRegistrations reads pipe-delimited ts|id|pin|balance lines. Blank lines are skipped.
func ParseRegistrations(r io.Reader) ([]models.Registration, error) {
	var records []models.Registration

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		fields := strings.Split(text, "|")
		if len(fields) != 4 {
			return nil, fmt.Errorf("%w: line %d: want 4 fields, got %d", ErrMalformedRegistration, line, len(fields))
		}

		registeredAt, err := models.ParseTimestamp(fields[0])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedRegistration, line, err)
		}
		balance, err := strconv.ParseUint(strings.TrimSpace(fields[3]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: balance %q", ErrMalformedRegistration, line, fields[3])
		}

		records = append(records, models.Registration{
			RegisteredAt: registeredAt,
			UserID:       strings.TrimSpace(fields[1]),
			PIN:          strings.TrimSpace(fields[2]),
			Balance:      balance,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read registrations: %w", err)
	}
	return records, nil
}

// Import builds the directory from registration records. A repeated user id replaces the
// earlier record.
func (d *UserDirectory) Import(records []models.Registration) error {
	if d.loaded {
		return ErrDirectoryLoaded
	}

	for i, reg := range records {
		if err := d.validator.ValidateStruct(&reg); err != nil {
			return fmt.Errorf("%w: record %d: %v", ErrMalformedRegistration, i+1, err)
		}

		hash, err := d.pins.HashPIN(reg.PIN, nil)
		if err != nil {
			return fmt.Errorf("hash pin for %s: %w", reg.UserID, err)
		}

		if _, exists := d.accounts[reg.UserID]; !exists {
			d.order = append(d.order, reg.UserID)
		}
		d.accounts[reg.UserID] = models.NewAccount(reg, hash)

		if i == 0 {
			d.first = reg.RegisteredAt
		}
	}

	d.loaded = true
	return nil
}

// FirstRegistration is the timestamp of the first imported record; it seeds the clock.
func (d *UserDirectory) FirstRegistration() models.Timestamp { return d.first }

// Lookup returns the account for id.
func (d *UserDirectory) Lookup(id string) (*models.Account, bool) {
	a, ok := d.accounts[id]
	return a, ok
}

// Len returns the number of accounts.
func (d *UserDirectory) Len() int { return len(d.accounts) }

// Accounts returns every account in import order.
func (d *UserDirectory) Accounts() []*models.Account {
	out := make([]*models.Account, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.accounts[id])
	}
	return out
}

// Login authenticates ip for id when pin matches.
func (d *UserDirectory) Login(id, pin, ip string) Event {
	fail := Event{Kind: EventLoginFailed, UserID: id, IP: ip}

	account, ok := d.accounts[id]
	if !ok {
		fail.Reason = ReasonUnknownUser
		return fail
	}

	match, err := d.pins.VerifyPIN(pin, account.PINHash)
	if err != nil || !match {
		fail.Reason = ReasonBadPIN
		return fail
	}

	account.ActiveIPs[ip] = struct{}{}
	return Event{Kind: EventLoginSucceeded, UserID: id, IP: ip}
}

// Logout removes ip from the authenticated set of id.
func (d *UserDirectory) Logout(id, ip string) Event {
	fail := Event{Kind: EventLogoutFailed, UserID: id, IP: ip}

	account, ok := d.accounts[id]
	if !ok {
		fail.Reason = ReasonUnknownUser
		return fail
	}
	if !account.HasIP(ip) {
		fail.Reason = ReasonIPNotActive
		return fail
	}

	delete(account.ActiveIPs, ip)
	return Event{Kind: EventLogoutSucceeded, UserID: id, IP: ip}
}

// Balance reports the balance of id as of asOf. In checked mode the user must be logged in
// from ip; otherwise any existing account is disclosed.
func (d *UserDirectory) Balance(id, ip string, asOf models.Timestamp, checked bool) Event {
	denied := Event{Kind: EventBalanceDenied, UserID: id, IP: ip}

	account, ok := d.accounts[id]
	if !ok {
		denied.Reason = ReasonUnknownUser
		return denied
	}
	if checked && !account.LoggedIn() {
		denied.Reason = ReasonNotLoggedIn
		return denied
	}
	if checked && !account.HasIP(ip) {
		denied.Reason = ReasonFraud
		return denied
	}

	return Event{Kind: EventBalance, UserID: id, IP: ip, Balance: account.Balance, AsOf: asOf}
}

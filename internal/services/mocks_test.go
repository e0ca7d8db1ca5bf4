package services

import (
	"github.com/ruralpay/ledgersim/internal/models"
	"github.com/stretchr/testify/mock"
)

type MockPINHasher struct {
	mock.Mock
}

func (m *MockPINHasher) HashPIN(pin string, salt []byte) (string, error) {
	args := m.Called(pin, salt)
	return args.String(0), args.Error(1)
}

func (m *MockPINHasher) VerifyPIN(pin string, hashedPIN string) (bool, error) {
	args := m.Called(pin, hashedPIN)
	return args.Bool(0), args.Error(1)
}

type MockEventSink struct {
	mock.Mock
}

func (m *MockEventSink) Emit(e Event) {
	m.Called(e)
}

// plainPINs stores PINs with a fixed prefix so tests can run without argon2.
type plainPINs struct{}

func (plainPINs) HashPIN(pin string, _ []byte) (string, error) { return "plain:" + pin, nil }

func (plainPINs) VerifyPIN(pin string, hashedPIN string) (bool, error) {
	return "plain:"+pin == hashedPIN, nil
}

type recordingSink struct {
	events []Event
}

func (r *recordingSink) Emit(e Event) { r.events = append(r.events, e) }

func (r *recordingSink) kinds() []EventKind {
	out := make([]EventKind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

func ts(raw string) models.Timestamp { return models.MustParseTimestamp(raw) }

func newDirectory(regs ...models.Registration) *UserDirectory {
	dir := NewUserDirectory(plainPINs{})
	if err := dir.Import(regs); err != nil {
		panic(err)
	}
	return dir
}

func reg(at, id, pin string, balance uint64) models.Registration {
	return models.Registration{RegisteredAt: ts(at), UserID: id, PIN: pin, Balance: balance}
}

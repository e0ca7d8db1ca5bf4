package handlers

import (
	"strings"
	"testing"

	"github.com/ruralpay/ledgersim/internal/hsm"
	"github.com/ruralpay/ledgersim/internal/services"
	"github.com/stretchr/testify/require"
)

const registrations = `08:01:01:00:00:00|alice|1111|1000
08:01:01:00:00:00|bob|2222|500
`

func newTestEngine(t *testing.T, opts ...services.Option) *services.TransactionService {
	t.Helper()
	records, err := services.ParseRegistrations(strings.NewReader(registrations))
	require.NoError(t, err)

	dir := services.NewUserDirectory(hsm.NewPinVault(hsm.DefaultArgon2Params()))
	require.NoError(t, dir.Import(records))
	return services.NewTransactionService(dir, opts...)
}

func lines(s ...string) string {
	return strings.Join(s, "\n") + "\n"
}

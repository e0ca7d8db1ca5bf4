package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ruralpay/ledgersim/internal/models"
	"github.com/ruralpay/ledgersim/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clearPINs struct{}

func (clearPINs) HashPIN(pin string, _ []byte) (string, error) { return pin, nil }
func (clearPINs) VerifyPIN(pin, hashed string) (bool, error)   { return pin == hashed, nil }

func settledEngine(t *testing.T) *services.TransactionService {
	t.Helper()
	at := models.MustParseTimestamp("08:01:01:00:00:00")
	dir := services.NewUserDirectory(clearPINs{})
	require.NoError(t, dir.Import([]models.Registration{
		{RegisteredAt: at, UserID: "alice", PIN: "1", Balance: 1000},
		{RegisteredAt: at, UserID: "bob", PIN: "2", Balance: 500},
	}))

	engine := services.NewTransactionService(dir)
	_, err := engine.Login("alice", "1", "10.0.0.1")
	require.NoError(t, err)
	_, err = engine.Place(services.PlaceRequest{
		PlacedAt: at, IP: "10.0.0.1", Sender: "alice", Recipient: "bob",
		Amount: 100, ExecuteAt: at, FeeMode: models.FeeSplit,
	})
	require.NoError(t, err)
	engine.EnterQueryMode()
	return engine
}

func TestNewSnapshot(t *testing.T) {
	snap := NewSnapshot("run-1", "281Bank", settledEngine(t))

	assert.Equal(t, "run-1", snap.Meta.RunID)
	assert.Equal(t, "query", snap.Meta.Mode)
	require.Len(t, snap.Accounts, 2)
	assert.Equal(t, "alice", snap.Accounts[0].UserID)
	assert.Equal(t, uint64(1000-100-5), snap.Accounts[0].Balance)
	assert.Equal(t, 1, snap.Accounts[0].OutgoingCount)
	assert.Equal(t, uint64(500+100-5), snap.Accounts[1].Balance)
	require.Len(t, snap.Transactions, 1)
	assert.Equal(t, uint64(10), snap.TotalFees)
}

func TestWrite(t *testing.T) {
	snap := NewSnapshot("run-1", "281Bank", settledEngine(t))

	for _, name := range []string{"ledger.json", "ledger.yaml", "ledger.yml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, Write(path, snap))

			_, err := os.Stat(path + ".tmp")
			assert.True(t, os.IsNotExist(err))

			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, snap.Accounts, loaded.Accounts)
			assert.Equal(t, snap.TotalFees, loaded.TotalFees)
			require.Len(t, loaded.Transactions, 1)
			assert.Equal(t, models.FeeSplit, loaded.Transactions[0].FeeMode)
		})
	}

	t.Run("unwritable directory", func(t *testing.T) {
		err := Write(filepath.Join(t.TempDir(), "missing", "ledger.json"), snap)
		assert.Error(t, err)
	})
}

func TestEncode_Format(t *testing.T) {
	snap := Snapshot{Meta: Meta{RunID: "r", Bank: "281Bank"}}

	var js, ym bytes.Buffer
	require.NoError(t, Encode(&js, snap, false))
	require.NoError(t, Encode(&ym, snap, true))

	assert.Contains(t, js.String(), `"run_id": "r"`)
	assert.Contains(t, ym.String(), "run_id: r")
}

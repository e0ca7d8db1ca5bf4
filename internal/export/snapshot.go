package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ruralpay/ledgersim/internal/models"
	"github.com/ruralpay/ledgersim/internal/services"
	"gopkg.in/yaml.v3"
)

type Meta struct {
	RunID       string           `json:"run_id" yaml:"run_id"`
	Bank        string           `json:"bank" yaml:"bank"`
	GeneratedAt time.Time        `json:"generated_at" yaml:"generated_at"`
	Clock       models.Timestamp `json:"clock" yaml:"clock"`
	Mode        string           `json:"mode" yaml:"mode"`
}

type AccountSnapshot struct {
	UserID        string           `json:"user_id" yaml:"user_id"`
	RegisteredAt  models.Timestamp `json:"registered_at" yaml:"registered_at"`
	Balance       uint64           `json:"balance" yaml:"balance"`
	IncomingCount int              `json:"incoming_count" yaml:"incoming_count"`
	OutgoingCount int              `json:"outgoing_count" yaml:"outgoing_count"`
}

// Snapshot is the end-of-run state: balances and the executed ledger.
type Snapshot struct {
	Meta         Meta                  `json:"meta" yaml:"meta"`
	Accounts     []AccountSnapshot     `json:"accounts" yaml:"accounts"`
	Transactions []*models.Transaction `json:"transactions" yaml:"transactions"`
	TotalFees    uint64                `json:"total_fees" yaml:"total_fees"`
}

// NewSnapshot captures engine state. Accounts keep registration order.
func NewSnapshot(runID, bank string, engine *services.TransactionService) Snapshot {
	snap := Snapshot{
		Meta: Meta{
			RunID: runID,
			Bank:  bank,
			Clock: engine.Clock(),
			Mode:  engine.Mode().String(),
		},
		Transactions: engine.Ledger().Entries(),
	}
	for _, a := range engine.Directory().Accounts() {
		snap.Accounts = append(snap.Accounts, AccountSnapshot{
			UserID:        a.UserID,
			RegisteredAt:  a.RegisteredAt,
			Balance:       a.Balance,
			IncomingCount: len(a.Incoming),
			OutgoingCount: len(a.Outgoing),
		})
	}
	for _, tx := range snap.Transactions {
		snap.TotalFees += tx.Fee
	}
	return snap
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Encode writes snap as YAML or JSON.
func Encode(w io.Writer, snap Snapshot, asYAML bool) error {
	if asYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// Write saves snap to path atomically: the data goes to path+".tmp" and is renamed into place.
// The format follows the file extension; .yaml and .yml select YAML, anything else JSON.
func Write(path string, snap Snapshot) error {
	snap.Meta.GeneratedAt = time.Now().UTC()
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	if err := Encode(f, snap, isYAML(path)); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close snapshot: %w", err)
	}

	return os.Rename(tmp, path)
}

// Load reads a snapshot written by Write.
func Load(path string) (Snapshot, error) {
	var snap Snapshot
	data, err := os.ReadFile(path)
	if err != nil {
		return snap, err
	}
	if isYAML(path) {
		err = yaml.Unmarshal(data, &snap)
	} else {
		err = json.Unmarshal(data, &snap)
	}
	return snap, err
}

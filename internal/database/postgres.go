package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq"
	"github.com/ruralpay/ledgersim/internal/config"
	"github.com/ruralpay/ledgersim/internal/models"
)

// InitDB initializes the database connection
func InitDB(cfg config.DBConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Test connection
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	log.Println("Database connection established")
	return db, nil
}

const createExecutedTransactions = `CREATE TABLE IF NOT EXISTS executed_transactions (
	run_id        TEXT    NOT NULL,
	id            BIGINT  NOT NULL,
	placed_at     BIGINT  NOT NULL,
	execute_at    BIGINT  NOT NULL,
	sender        TEXT    NOT NULL,
	recipient     TEXT    NOT NULL,
	amount        BIGINT  NOT NULL,
	fee_mode      CHAR(1) NOT NULL,
	fee           BIGINT  NOT NULL,
	sender_fee    BIGINT  NOT NULL,
	recipient_fee BIGINT  NOT NULL,
	PRIMARY KEY (run_id, id)
)`

const insertExecutedTransaction = `INSERT INTO executed_transactions
	(run_id, id, placed_at, execute_at, sender, recipient, amount, fee_mode, fee, sender_fee, recipient_fee)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

// LedgerExporter copies the executed ledger of a run into Postgres.
type LedgerExporter struct {
	db *sql.DB
}

func NewLedgerExporter(db *sql.DB) *LedgerExporter {
	return &LedgerExporter{db: db}
}

// Export writes txs under runID in a single database transaction.
func (e *LedgerExporter) Export(ctx context.Context, runID string, txs []*models.Transaction) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, createExecutedTransactions); err != nil {
		return fmt.Errorf("failed to create ledger table: %w", err)
	}

	for _, t := range txs {
		_, err := tx.ExecContext(ctx, insertExecutedTransaction,
			runID,
			int64(t.ID),
			int64(t.PlacedAt),
			int64(t.ExecuteAt),
			t.Sender,
			t.Recipient,
			int64(t.Amount),
			t.FeeMode.String(),
			int64(t.Fee),
			int64(t.SenderFee),
			int64(t.RecipientFee),
		)
		if err != nil {
			return fmt.Errorf("failed to export transaction %d: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ledger export: %w", err)
	}

	log.Printf("[EXPORT] %d executed transactions written for run %s", len(txs), runID)
	return nil
}

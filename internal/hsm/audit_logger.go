package hsm

import (
	"encoding/json"
	"log"
	"time"

	"github.com/ruralpay/ledgersim/internal/services"
)

type AuditEvent struct {
	Timestamp     time.Time `json:"timestamp"`
	RunID         string    `json:"run_id"`
	EventType     string    `json:"event_type"`
	TransactionID *uint64   `json:"transaction_id,omitempty"`
	AccountID     string    `json:"account_id,omitempty"`
	Amount        uint64    `json:"amount,omitempty"`
	Status        string    `json:"status"`
	Details       any       `json:"details,omitempty"`
}

// AuditLogger writes one JSON line per engine event. It implements services.EventSink.
type AuditLogger struct {
	runID  string
	logger *log.Logger
	now    func() time.Time
}

func NewAuditLogger(runID string, logger *log.Logger) *AuditLogger {
	if logger == nil {
		logger = log.Default()
	}
	return &AuditLogger{runID: runID, logger: logger, now: time.Now}
}

func (a *AuditLogger) Emit(e services.Event) {
	event := AuditEvent{
		Timestamp: a.now(),
		RunID:     a.runID,
		EventType: string(e.Kind),
		AccountID: e.UserID,
		Status:    "SUCCESS",
	}
	if e.Rejected() {
		event.Status = "FAILED"
	}

	details := map[string]string{}
	if e.Reason != services.ReasonNone {
		details["reason"] = string(e.Reason)
	}
	if e.IP != "" {
		details["ip"] = e.IP
	}
	if e.Tx != nil {
		id := e.Tx.ID
		event.TransactionID = &id
		event.Amount = e.Tx.Amount
		details["from_account"] = e.Tx.Sender
		details["to_account"] = e.Tx.Recipient
		details["execute_at"] = e.Tx.ExecuteAt.Format()
	}
	if e.Kind == services.EventQueryMode {
		details["as_of"] = e.AsOf.Format()
	}
	if len(details) > 0 {
		event.Details = details
	}

	a.log(event)
}

func (a *AuditLogger) LogError(accountID string, err error) {
	event := AuditEvent{
		Timestamp: a.now(),
		RunID:     a.runID,
		EventType: "ERROR",
		AccountID: accountID,
		Status:    "FAILED",
		Details:   map[string]string{"error": err.Error()},
	}
	a.log(event)
}

func (a *AuditLogger) log(event AuditEvent) {
	data, _ := json.Marshal(event)
	a.logger.Printf("AUDIT: %s", string(data))
}

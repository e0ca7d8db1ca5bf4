package handlers

import (
	"fmt"
	"io"
	"strings"

	"github.com/ruralpay/ledgersim/internal/models"
	"github.com/ruralpay/ledgersim/internal/services"
)

// TextPresenter renders engine events and query results as the line-oriented report the
// command stream expects. Verbose-only lines are dropped unless verbose is set.
type TextPresenter struct {
	out     io.Writer
	verbose bool
	bank    string
}

func NewTextPresenter(out io.Writer, verbose bool, bank string) *TextPresenter {
	if bank == "" {
		bank = "281Bank"
	}
	return &TextPresenter{out: out, verbose: verbose, bank: bank}
}

func (p *TextPresenter) printf(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

func (p *TextPresenter) verbosef(format string, args ...any) {
	if p.verbose {
		p.printf(format, args...)
	}
}

// Emit implements services.EventSink.
func (p *TextPresenter) Emit(e services.Event) {
	switch e.Kind {
	case services.EventLoginSucceeded:
		p.verbosef("User %s logged in.", e.UserID)
	case services.EventLoginFailed:
		p.verbosef("Login failed for %s.", e.UserID)
	case services.EventLogoutSucceeded:
		p.verbosef("User %s logged out.", e.UserID)
	case services.EventLogoutFailed:
		p.verbosef("Logout failed for %s.", e.UserID)
	case services.EventBalance:
		p.printf("As of %s, %s has a balance of $%d.", e.AsOf, e.UserID, e.Balance)
	case services.EventBalanceDenied:
		p.balanceDenied(e)
	case services.EventPlaceRejected:
		p.placeRejected(e)
	case services.EventPlaced:
		tx := e.Tx
		p.verbosef("Transaction %d placed at %s: $%d from %s to %s at %s.",
			tx.ID, tx.PlacedAt, tx.Amount, tx.Sender, tx.Recipient, tx.ExecuteAt)
	case services.EventExecuted:
		tx := e.Tx
		p.verbosef("Transaction %d executed at %s: $%d from %s to %s.",
			tx.ID, tx.ExecuteAt, tx.Amount, tx.Sender, tx.Recipient)
	case services.EventDiscarded:
		p.verbosef("Insufficient funds to process transaction %d.", e.Tx.ID)
	}
}

func (p *TextPresenter) balanceDenied(e services.Event) {
	switch e.Reason {
	case services.ReasonUnknownUser:
		p.verbosef("User %s does not exist.", e.UserID)
	case services.ReasonNotLoggedIn:
		p.printf("User %s is not logged in.", e.UserID)
	case services.ReasonFraud:
		p.printf("Fraudulent balance check detected, aborting request.")
	}
}

func (p *TextPresenter) placeRejected(e services.Event) {
	switch e.Reason {
	case services.ReasonSelfTransfer:
		p.verbosef("Self transactions are not allowed.")
	case services.ReasonHorizonExceeded:
		p.verbosef("Select a time up to three days in the future.")
	case services.ReasonUnknownSender:
		p.verbosef("Sender %s does not exist.", e.UserID)
	case services.ReasonUnknownRecipient:
		p.verbosef("Recipient %s does not exist.", e.Counterparty)
	case services.ReasonNotRegistered:
		p.verbosef("At the time of execution, sender and/or recipient have not registered.")
	case services.ReasonSenderNotLoggedIn:
		p.verbosef("Sender %s is not logged in.", e.UserID)
	case services.ReasonFraud:
		p.verbosef("Fraudulent transaction detected, aborting request.")
	}
}

func (p *TextPresenter) transferLine(tx *models.Transaction) {
	unit := "dollars"
	if tx.Amount == 1 {
		unit = "dollar"
	}
	p.printf("%d: %s sent %d %s to %s at %s.", tx.ID, tx.Sender, tx.Amount, unit, tx.Recipient, tx.ExecuteAt)
}

func plural(n int, singular, multiple string) string {
	if n == 1 {
		return singular
	}
	return multiple
}

// RenderList prints the transfers executed in an interval.
func (p *TextPresenter) RenderList(res services.ListResult) {
	if res.EmptyInterval {
		p.printf("List Transactions requires a non-empty time interval.")
		return
	}
	for _, tx := range res.Transactions {
		p.transferLine(tx)
	}
	n := len(res.Transactions)
	p.printf("There %s %d %s that %s executed between time %s to %s.",
		plural(n, "was", "were"), n, plural(n, "transaction", "transactions"),
		plural(n, "was", "were"), res.From, res.To)
}

// RenderRevenue prints the fees collected on transfers placed in an interval.
func (p *TextPresenter) RenderRevenue(res services.RevenueResult) {
	if res.EmptyInterval {
		p.printf("Bank Revenue requires a non-empty time interval.")
		return
	}
	p.printf("%s has collected %d dollars in fees over %s.", p.bank, res.TotalFees, FormatElapsed(res.Elapsed))
}

// RenderHistory prints a customer account summary.
func (p *TextPresenter) RenderHistory(res services.HistoryResult) {
	if !res.Found {
		p.printf("User %s does not exist.", res.UserID)
		return
	}
	p.printf("Customer %s account summary:", res.UserID)
	p.printf("Balance: $%d", res.Balance)
	p.printf("Total # of transactions: %d", res.TotalTransactions)
	p.printf("Incoming %d:", res.IncomingCount)
	for _, tx := range res.Incoming {
		p.transferLine(tx)
	}
	p.printf("Outgoing %d:", res.OutgoingCount)
	for _, tx := range res.Outgoing {
		p.transferLine(tx)
	}
}

// RenderDaySummary prints the transfers executed during one day.
func (p *TextPresenter) RenderDaySummary(res services.DaySummaryResult) {
	p.printf("Summary of [%s, %s):", res.Start, res.End)
	for _, tx := range res.Transactions {
		p.transferLine(tx)
	}
	n := len(res.Transactions)
	p.printf("There %s a total of %d %s, %s has collected %d dollars in fees.",
		plural(n, "was", "were"), n, plural(n, "transaction", "transactions"), p.bank, res.TotalFees)
}

// FormatElapsed renders an elapsed breakdown like "1 day 2 hours 30 seconds". Zero fields
// are omitted.
func FormatElapsed(e services.Elapsed) string {
	fields := []struct {
		n    uint64
		unit string
	}{
		{e.Years, "year"},
		{e.Months, "month"},
		{e.Days, "day"},
		{e.Hours, "hour"},
		{e.Minutes, "minute"},
		{e.Seconds, "second"},
	}

	var parts []string
	for _, f := range fields {
		switch f.n {
		case 0:
		case 1:
			parts = append(parts, "1 "+f.unit)
		default:
			parts = append(parts, fmt.Sprintf("%d %ss", f.n, f.unit))
		}
	}
	return strings.Join(parts, " ")
}

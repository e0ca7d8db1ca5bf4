package services

import "github.com/ruralpay/ledgersim/internal/models"

// EventKind names an engine outcome.
type EventKind string

const (
	EventLoginSucceeded  EventKind = "LOGIN_SUCCEEDED"
	EventLoginFailed     EventKind = "LOGIN_FAILED"
	EventLogoutSucceeded EventKind = "LOGOUT_SUCCEEDED"
	EventLogoutFailed    EventKind = "LOGOUT_FAILED"
	EventBalance         EventKind = "BALANCE"
	EventBalanceDenied   EventKind = "BALANCE_DENIED"
	EventPlaced          EventKind = "PLACED"
	EventPlaceRejected   EventKind = "PLACE_REJECTED"
	EventExecuted        EventKind = "EXECUTED"
	EventDiscarded       EventKind = "DISCARDED"
	EventQueryMode       EventKind = "QUERY_MODE"
)

// Reason explains a business rejection. Rejections never mutate state.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonUnknownUser       Reason = "unknown_user"
	ReasonBadPIN            Reason = "bad_pin"
	ReasonIPNotActive       Reason = "ip_not_active"
	ReasonNotLoggedIn       Reason = "not_logged_in"
	ReasonFraud             Reason = "fraud"
	ReasonSelfTransfer      Reason = "self_transfer"
	ReasonHorizonExceeded   Reason = "horizon_exceeded"
	ReasonUnknownSender     Reason = "unknown_sender"
	ReasonUnknownRecipient  Reason = "unknown_recipient"
	ReasonNotRegistered     Reason = "not_registered"
	ReasonSenderNotLoggedIn Reason = "sender_not_logged_in"
	ReasonInsufficientFunds Reason = "insufficient_funds"
	ReasonPartyMissing      Reason = "party_missing"
)

// Event is the structured outcome of a command or settlement step. Presentation,
// audit and export layers consume events; nothing here is pre-formatted text.
type Event struct {
	Kind         EventKind           `json:"kind"`
	Reason       Reason              `json:"reason,omitempty"`
	UserID       string              `json:"user_id,omitempty"`
	Counterparty string              `json:"counterparty,omitempty"`
	IP           string              `json:"ip,omitempty"`
	Balance      uint64              `json:"balance,omitempty"`
	AsOf         models.Timestamp    `json:"as_of,omitempty"`
	Tx           *models.Transaction `json:"transaction,omitempty"`
}

// Rejected reports whether the event is a business rejection.
func (e Event) Rejected() bool { return e.Reason != ReasonNone }

// EventSink receives every event in the order it happens.
type EventSink interface {
	Emit(Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(Event)

// Emit implements EventSink.
func (f EventSinkFunc) Emit(e Event) { f(e) }

// MultiSink fans events out to several sinks in order.
type MultiSink []EventSink

// Emit implements EventSink.
func (m MultiSink) Emit(e Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}

type discardSink struct{}

func (discardSink) Emit(Event) {}

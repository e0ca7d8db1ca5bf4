package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	mW "github.com/ruralpay/ledgersim/internal/middleware"
	"github.com/ruralpay/ledgersim/internal/models"
	"github.com/ruralpay/ledgersim/internal/services"
)

// QueryHandler serves the read-only query surface over HTTP once the engine is in query mode.
type QueryHandler struct {
	queries   *services.QueryService
	iso       *services.ISO20022Service
	validator *services.ValidationHelper
}

func NewQueryHandler(queries *services.QueryService, iso *services.ISO20022Service) *QueryHandler {
	return &QueryHandler{
		queries:   queries,
		iso:       iso,
		validator: services.NewValidationHelper(),
	}
}

// Routes builds the router. metrics may be nil; an empty jwtSecret leaves the API open.
func (h *QueryHandler) Routes(metrics http.Handler, jwtSecret string) http.Handler {
	r := chi.NewRouter()

	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         86400,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	if metrics != nil {
		r.Handle("/metrics", metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mW.JWTAuth(jwtSecret))

		r.Get("/transactions", h.ListTransactions)
		r.Get("/transactions/{txId}", h.GetTransaction)
		r.Get("/transactions/{txId}/iso20022", h.GetTransactionISO20022)
		r.Get("/transactions/{txId}/status", h.GetTransactionStatus)
		r.Get("/revenue", h.Revenue)
		r.Get("/customers/{userID}/history", h.CustomerHistory)
		r.Get("/summary", h.DaySummary)
	})

	return r
}

type intervalQuery struct {
	From string `validate:"required"`
	To   string `validate:"required"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (h *QueryHandler) parseInterval(w http.ResponseWriter, r *http.Request) (from, to models.Timestamp, ok bool) {
	q := intervalQuery{From: r.URL.Query().Get("from"), To: r.URL.Query().Get("to")}
	if err := h.validator.ValidateStruct(&q); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return 0, 0, false
	}

	from, err := models.ParseTimestamp(q.From)
	if err != nil {
		services.SendErrorResponse(w, "Invalid from timestamp", http.StatusBadRequest, nil)
		return 0, 0, false
	}
	to, err = models.ParseTimestamp(q.To)
	if err != nil {
		services.SendErrorResponse(w, "Invalid to timestamp", http.StatusBadRequest, nil)
		return 0, 0, false
	}
	return from, to, true
}

func (h *QueryHandler) queryFailed(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrOperationalMode):
		services.SendErrorResponse(w, "Ledger is still processing operations", http.StatusServiceUnavailable, nil)
	case errors.Is(err, services.ErrTransactionNotFound):
		services.SendErrorResponse(w, "Transaction not found", http.StatusNotFound, nil)
	default:
		log.Printf("[QUERY] unexpected error: %v", err)
		services.SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
	}
}

// ListTransactions returns transfers executed in [from, to).
func (h *QueryHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.parseInterval(w, r)
	if !ok {
		return
	}
	res, err := h.queries.List(from, to)
	if err != nil {
		h.queryFailed(w, err)
		return
	}
	if res.EmptyInterval {
		services.SendErrorResponse(w, "List Transactions requires a non-empty time interval.", http.StatusBadRequest, nil)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Revenue returns fees of transfers placed in [from, to).
func (h *QueryHandler) Revenue(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.parseInterval(w, r)
	if !ok {
		return
	}
	res, err := h.queries.Revenue(from, to)
	if err != nil {
		h.queryFailed(w, err)
		return
	}
	if res.EmptyInterval {
		services.SendErrorResponse(w, "Bank Revenue requires a non-empty time interval.", http.StatusBadRequest, nil)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *QueryHandler) lookupTransaction(w http.ResponseWriter, r *http.Request) (*models.Transaction, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "txId"), 10, 64)
	if err != nil {
		services.SendErrorResponse(w, "Invalid transaction id", http.StatusBadRequest, nil)
		return nil, false
	}
	tx, err := h.queries.Transaction(id)
	if err != nil {
		h.queryFailed(w, err)
		return nil, false
	}
	return tx, true
}

// GetTransaction returns one executed transfer.
func (h *QueryHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, ok := h.lookupTransaction(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// GetTransactionISO20022 returns an executed transfer as a pacs.008 document.
func (h *QueryHandler) GetTransactionISO20022(w http.ResponseWriter, r *http.Request) {
	tx, ok := h.lookupTransaction(w, r)
	if !ok {
		return
	}

	doc, err := h.iso.CreatePacs008(tx)
	if err != nil {
		log.Printf("[ISO20022] pacs.008 for %d: %v", tx.ID, err)
		services.SendErrorResponse(w, "Failed to create ISO20022 message", http.StatusInternalServerError, nil)
		return
	}
	h.writeXML(w, tx, doc)
}

// GetTransactionStatus returns the settlement status of a transfer as a pacs.002 report.
func (h *QueryHandler) GetTransactionStatus(w http.ResponseWriter, r *http.Request) {
	tx, ok := h.lookupTransaction(w, r)
	if !ok {
		return
	}

	doc, err := h.iso.CreatePacs002(tx)
	if err != nil {
		log.Printf("[ISO20022] pacs.002 for %d: %v", tx.ID, err)
		services.SendErrorResponse(w, "Failed to create ISO20022 message", http.StatusInternalServerError, nil)
		return
	}
	h.writeXML(w, tx, doc)
}

func (h *QueryHandler) writeXML(w http.ResponseWriter, tx *models.Transaction, doc any) {
	xmlData, err := h.iso.ConvertToXML(doc)
	if err != nil {
		log.Printf("[ISO20022] XML for %d: %v", tx.ID, err)
		services.SendErrorResponse(w, "Failed to convert to XML", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(xmlData))
}

// CustomerHistory returns a customer account summary.
func (h *QueryHandler) CustomerHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	res, err := h.queries.History(userID)
	if err != nil {
		h.queryFailed(w, err)
		return
	}
	if !res.Found {
		services.SendErrorResponse(w, fmt.Sprintf("User %s does not exist.", userID), http.StatusNotFound, nil)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// DaySummary returns the transfers executed on the day holding ?at=.
func (h *QueryHandler) DaySummary(w http.ResponseWriter, r *http.Request) {
	at, err := models.ParseTimestamp(r.URL.Query().Get("at"))
	if err != nil {
		services.SendErrorResponse(w, "Invalid at timestamp", http.StatusBadRequest, nil)
		return
	}
	res, err := h.queries.DaySummary(at)
	if err != nil {
		h.queryFailed(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

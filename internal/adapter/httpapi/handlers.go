package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dinkup/dinkup-backend/internal/domain"
	"github.com/dinkup/dinkup-backend/internal/usecase/ingest"
	"github.com/dinkup/dinkup-backend/internal/usecase/parser"
	"github.com/dinkup/dinkup-backend/internal/usecase/summary"
)

// WebhookHandler handles inbound email deliveries from the mail adapter
type WebhookHandler struct {
	ingestService *ingest.Service
	log           zerolog.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(ingestService *ingest.Service, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		ingestService: ingestService,
		log:           log,
	}
}

// IngestEmail handles POST /webhook/email
func (h *WebhookHandler) IngestEmail(w http.ResponseWriter, r *http.Request) {
	var payload parser.EmailPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.ingestService.IngestEmail(r.Context(), payload)
	if err != nil {
		if result != nil && result.Transaction != nil {
			// The record survived; only the obligation update failed
			h.log.Error().Err(err).
				Str("transaction_id", result.Transaction.ID.String()).
				Msg("Reconciliation failed after transaction was recorded")
			WriteJSON(w, http.StatusInternalServerError, map[string]string{
				"status":         "recorded",
				"transaction_id": result.Transaction.ID.String(),
				"error":          "reconciliation failed",
			})
			return
		}
		h.log.Error().Err(err).Str("subject", payload.Subject).Msg("Failed to ingest email")
		WriteError(w, http.StatusInternalServerError, "Failed to ingest email")
		return
	}

	if result.Ignored {
		h.log.Info().Str("subject", payload.Subject).Msg("Email is not a transaction, ignoring")
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	h.log.Info().
		Str("transaction_id", result.Transaction.ID.String()).
		Str("type", string(result.Transaction.Type)).
		Str("outcome", string(result.Outcome)).
		Msg("Transaction recorded")

	WriteJSON(w, http.StatusOK, map[string]string{
		"status":         "recorded",
		"transaction_id": result.Transaction.ID.String(),
		"outcome":        string(result.Outcome),
	})
}

// TransactionsHandler serves the stored transaction records to the
// session-management UI
type TransactionsHandler struct {
	repo           domain.TransactionRepository
	summaryService *summary.Service
	log            zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler
func NewTransactionsHandler(repo domain.TransactionRepository, summaryService *summary.Service, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		repo:           repo,
		summaryService: summaryService,
		log:            log,
	}
}

// ListTransactions handles GET /api/transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	filter := domain.TransactionFilter{
		CorrelationTag: r.URL.Query().Get("tag"),
		SenderName:     r.URL.Query().Get("sender"),
		MatchState:     domain.MatchState(r.URL.Query().Get("match_state")),
	}

	if amountStr := r.URL.Query().Get("amount"); amountStr != "" {
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid amount format")
			return
		}
		filter.Amount = &amount
	}

	transactions, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list transactions")
		WriteError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}

	responses := make([]transactionResponse, 0, len(transactions))
	for _, tx := range transactions {
		responses = append(responses, toTransactionResponse(tx))
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": responses,
		"count":        len(responses),
	})
}

// GetTransaction handles GET /api/transactions/{id}
func (h *TransactionsHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid transaction ID")
		return
	}

	tx, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Transaction not found")
			return
		}
		h.log.Error().Err(err).Str("transaction_id", id.String()).Msg("Failed to get transaction")
		WriteError(w, http.StatusInternalServerError, "Failed to get transaction")
		return
	}

	WriteJSON(w, http.StatusOK, toTransactionResponse(tx))
}

// GetSummary handles GET /api/transactions/summary
func (h *TransactionsHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	matchSummary, err := h.summaryService.GetMatchSummary(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to build transaction summary")
		WriteError(w, http.StatusInternalServerError, "Failed to build summary")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]int{
		"total":        matchSummary.Total,
		"auto_settled": matchSummary.AutoSettled,
		"in_review":    matchSummary.InReview,
		"unmatched":    matchSummary.Unmatched,
	})
}

type transactionResponse struct {
	ID                  string     `json:"id"`
	Type                string     `json:"type"`
	Amount              string     `json:"amount"`
	SenderName          string     `json:"sender_name"`
	RecipientName       string     `json:"recipient_name"`
	Note                *string    `json:"note"`
	CorrelationTag      *string    `json:"correlation_tag"`
	EmailSubject        string     `json:"email_subject"`
	EmailFrom           string     `json:"email_from"`
	TransactionDate     *time.Time `json:"transaction_date"`
	MatchedObligationID *string    `json:"matched_obligation_id"`
	MatchMethod         *string    `json:"match_method"`
	ReviewRequired      bool       `json:"review_required"`
	CreatedAt           time.Time  `json:"created_at"`
}

func toTransactionResponse(tx *domain.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:              tx.ID.String(),
		Type:            string(tx.Type),
		Amount:          tx.Amount.String(),
		SenderName:      tx.SenderName,
		RecipientName:   tx.RecipientName,
		Note:            tx.Note,
		CorrelationTag:  tx.CorrelationTag,
		EmailSubject:    tx.EmailSubject,
		EmailFrom:       tx.EmailFrom,
		TransactionDate: tx.TransactionDate,
		ReviewRequired:  tx.ReviewRequired,
		CreatedAt:       tx.CreatedAt,
	}

	if tx.MatchedObligationID != nil {
		id := tx.MatchedObligationID.String()
		resp.MatchedObligationID = &id
	}
	if tx.MatchMethod != nil {
		method := string(*tx.MatchMethod)
		resp.MatchMethod = &method
	}

	return resp
}

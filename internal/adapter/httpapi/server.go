package httpapi

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dinkup/dinkup-backend/internal/domain"
	"github.com/dinkup/dinkup-backend/internal/usecase/ingest"
	"github.com/dinkup/dinkup-backend/internal/usecase/summary"
)

// NewRouter builds the HTTP routing tree: the webhook endpoint guarded by
// the shared secret, and the read-only query surface for the
// session-management UI.
func NewRouter(
	ingestService *ingest.Service,
	transactionRepo domain.TransactionRepository,
	summaryService *summary.Service,
	webhookSecret string,
	log zerolog.Logger,
) http.Handler {
	webhookHandler := NewWebhookHandler(ingestService, log)
	transactionsHandler := NewTransactionsHandler(transactionRepo, summaryService, log)

	mux := http.NewServeMux()

	webhook := http.HandlerFunc(webhookHandler.IngestEmail)
	mux.Handle("POST /webhook/email", WebhookSecret(webhookSecret)(webhook))

	mux.HandleFunc("GET /api/transactions", transactionsHandler.ListTransactions)
	mux.HandleFunc("GET /api/transactions/summary", transactionsHandler.GetSummary)
	mux.HandleFunc("GET /api/transactions/{id}", transactionsHandler.GetTransaction)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	var handler http.Handler = mux
	handler = Logger(log)(handler)
	handler = Recovery(log)(handler)

	return handler
}

package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/chigozirigeorge/omnixec/internal/model"
	"github.com/chigozirigeorge/omnixec/internal/webhook"
)

// WebhookHandler accepts chain-specific external notifications. The
// response is an unconditional acknowledgment; processing happens out of
// band and its failures are logged, never surfaced to the sender.
type WebhookHandler struct {
	dispatcher *webhook.Dispatcher
	logger     *zap.Logger
}

func NewWebhookHandler(dispatcher *webhook.Dispatcher, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{dispatcher: dispatcher, logger: logger}
}

// Receive handles POST /api/webhooks/{chain}
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	chainName := mux.Vars(r)["chain"]
	if _, err := model.ParseChain(chainName); err != nil {
		writeErrorResponse(w, h.logger, http.StatusBadRequest, "unsupported_chain", err.Error())
		return
	}

	var payload webhook.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeErrorResponse(w, h.logger, http.StatusBadRequest, "invalid_request_body", "Invalid JSON in request body")
		return
	}
	if payload.TransactionID == "" || payload.QuoteID == "" {
		writeErrorResponse(w, h.logger, http.StatusBadRequest, "missing_fields", "transaction_id and quote_id are required")
		return
	}

	if !h.dispatcher.Enqueue(payload) {
		writeErrorResponse(w, h.logger, http.StatusServiceUnavailable, "queue_full", "Webhook queue is full, retry later")
		return
	}

	h.logger.Info("Accepted webhook",
		zap.String("chain", chainName),
		zap.String("transaction_id", payload.TransactionID),
		zap.String("quote_id", payload.QuoteID))
	writeJSONResponse(w, h.logger, http.StatusAccepted, WebhookAck{Accepted: true})
}

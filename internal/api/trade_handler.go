package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/chigozirigeorge/omnixec/internal/ledger"
)

// TradeHandler serves trade status queries.
type TradeHandler struct {
	trades ledger.TradeStore
	logger *zap.Logger
}

func NewTradeHandler(trades ledger.TradeStore, logger *zap.Logger) *TradeHandler {
	return &TradeHandler{trades: trades, logger: logger}
}

// GetTrade handles GET /api/trades/{id}
func (h *TradeHandler) GetTrade(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	t, err := h.trades.GetTrade(id)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			writeErrorResponse(w, h.logger, http.StatusNotFound, "trade_not_found", "Trade not found")
			return
		}
		h.logger.Error("Failed to get trade", zap.String("trade_id", id), zap.Error(err))
		writeErrorResponse(w, h.logger, http.StatusInternalServerError, "ledger_error", "Failed to retrieve trade")
		return
	}

	writeJSONResponse(w, h.logger, http.StatusOK, tradeResponse(t))
}

// GetTradeByQuote handles GET /api/quotes/{id}/trade
func (h *TradeHandler) GetTradeByQuote(w http.ResponseWriter, r *http.Request) {
	quoteID := mux.Vars(r)["id"]

	t, err := h.trades.GetTradeByQuoteID(quoteID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			writeErrorResponse(w, h.logger, http.StatusNotFound, "trade_not_found", "No trade for quote")
			return
		}
		h.logger.Error("Failed to get trade by quote", zap.String("quote_id", quoteID), zap.Error(err))
		writeErrorResponse(w, h.logger, http.StatusInternalServerError, "ledger_error", "Failed to retrieve trade")
		return
	}

	writeJSONResponse(w, h.logger, http.StatusOK, tradeResponse(t))
}

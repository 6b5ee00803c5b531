package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chigozirigeorge/omnixec/internal/ledger"
	"github.com/chigozirigeorge/omnixec/internal/model"
	"github.com/chigozirigeorge/omnixec/internal/pricing"
	"github.com/chigozirigeorge/omnixec/internal/quote"
	"github.com/chigozirigeorge/omnixec/internal/wallet"
)

// QuoteObserver is notified of freshly created quotes (the funding
// monitor's matcher registers expectations through it).
type QuoteObserver interface {
	Expect(q *model.Quote)
}

// QuoteHandler handles quote creation, lookup and commit endpoints.
type QuoteHandler struct {
	engine   *quote.Engine
	commits  *quote.CommitService
	quotes   ledger.QuoteStore
	verifier *wallet.Verifier
	observer QuoteObserver
	logger   *zap.Logger
}

func NewQuoteHandler(
	engine *quote.Engine,
	commits *quote.CommitService,
	quotes ledger.QuoteStore,
	verifier *wallet.Verifier,
	observer QuoteObserver,
	logger *zap.Logger,
) *QuoteHandler {
	return &QuoteHandler{
		engine:   engine,
		commits:  commits,
		quotes:   quotes,
		verifier: verifier,
		observer: observer,
		logger:   logger,
	}
}

// CreateQuote handles POST /api/quotes
func (h *QuoteHandler) CreateQuote(w http.ResponseWriter, r *http.Request) {
	var req CreateQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, h.logger, http.StatusBadRequest, "invalid_request_body", "Invalid JSON in request body")
		return
	}

	if req.Amount == "" {
		writeErrorResponse(w, h.logger, http.StatusBadRequest, "missing_amount", "Amount is required")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeErrorResponse(w, h.logger, http.StatusBadRequest, "invalid_amount", "Amount must be a decimal number")
		return
	}

	fundingChain, err := model.ParseChain(req.FundingChain)
	if err != nil {
		writeErrorResponse(w, h.logger, http.StatusBadRequest, "unsupported_chain", err.Error())
		return
	}
	executionChain, err := model.ParseChain(req.ExecutionChain)
	if err != nil {
		writeErrorResponse(w, h.logger, http.StatusBadRequest, "unsupported_chain", err.Error())
		return
	}

	if req.RecipientAddress != "" {
		if err := h.verifier.ValidateAddress(executionChain, req.RecipientAddress); err != nil {
			writeErrorResponse(w, h.logger, http.StatusBadRequest, "invalid_recipient", err.Error())
			return
		}
	}

	q, err := h.engine.CreateQuote(r.Context(), quote.Request{
		UserID:           req.UserID,
		FundingChain:     fundingChain,
		ExecutionChain:   executionChain,
		FundingAsset:     req.FundingAsset,
		ExecutionAsset:   req.ExecutionAsset,
		Amount:           amount,
		RecipientAddress: req.RecipientAddress,
	})
	if err != nil {
		switch {
		case errors.Is(err, quote.ErrAmountBelowMinimum):
			writeErrorResponse(w, h.logger, http.StatusBadRequest, "amount_below_minimum", err.Error())
		case errors.Is(err, quote.ErrUnsupportedChainPair):
			writeErrorResponse(w, h.logger, http.StatusBadRequest, "unsupported_chain_pair", err.Error())
		case errors.Is(err, pricing.ErrPriceUnavailable):
			writeErrorResponse(w, h.logger, http.StatusServiceUnavailable, "price_unavailable", err.Error())
		default:
			h.logger.Error("Failed to create quote", zap.Error(err))
			writeErrorResponse(w, h.logger, http.StatusInternalServerError, "quote_error", "Failed to create quote")
		}
		return
	}

	if h.observer != nil {
		h.observer.Expect(q)
	}
	writeJSONResponse(w, h.logger, http.StatusCreated, quoteResponse(q))
}

// GetQuote handles GET /api/quotes/{id}
func (h *QuoteHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	q, err := h.quotes.GetQuote(id)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			writeErrorResponse(w, h.logger, http.StatusNotFound, "quote_not_found", "Quote not found")
			return
		}
		h.logger.Error("Failed to get quote", zap.String("quote_id", id), zap.Error(err))
		writeErrorResponse(w, h.logger, http.StatusInternalServerError, "ledger_error", "Failed to retrieve quote")
		return
	}

	writeJSONResponse(w, h.logger, http.StatusOK, quoteResponse(q))
}

// CommitQuote handles POST /api/quotes/{id}/commit
func (h *QuoteHandler) CommitQuote(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req CommitQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, h.logger, http.StatusBadRequest, "invalid_request_body", "Invalid JSON in request body")
		return
	}
	if req.FundingTxHash == "" {
		writeErrorResponse(w, h.logger, http.StatusBadRequest, "missing_funding_tx_hash", "Funding transaction hash is required")
		return
	}

	trade, err := h.commits.Commit(r.Context(), id, req.FundingTxHash)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrNotFound):
			writeErrorResponse(w, h.logger, http.StatusNotFound, "quote_not_found", "Quote not found")
		case errors.Is(err, quote.ErrQuoteExpired):
			writeErrorResponse(w, h.logger, http.StatusGone, "quote_expired", "Quote has expired")
		case errors.Is(err, ledger.ErrStatusConflict):
			writeErrorResponse(w, h.logger, http.StatusConflict, "quote_not_pending", "Quote is no longer pending")
		default:
			h.logger.Error("Failed to commit quote", zap.String("quote_id", id), zap.Error(err))
			writeErrorResponse(w, h.logger, http.StatusInternalServerError, "commit_error", "Failed to commit quote")
		}
		return
	}

	writeJSONResponse(w, h.logger, http.StatusCreated, tradeResponse(trade))
}

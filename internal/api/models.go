package api

import (
	"time"

	"github.com/chigozirigeorge/omnixec/internal/model"
)

// CreateQuoteRequest is the request body for POST /api/quotes.
type CreateQuoteRequest struct {
	UserID           string          `json:"user_id"`
	FundingChain     string          `json:"funding_chain"`
	ExecutionChain   string          `json:"execution_chain"`
	FundingAsset     model.AssetInfo `json:"funding_asset"`
	ExecutionAsset   model.AssetInfo `json:"execution_asset"`
	Amount           string          `json:"amount"`
	RecipientAddress string          `json:"recipient_address"`
}

// QuoteResponse is the API representation of a quote.
type QuoteResponse struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	FundingChain     string    `json:"funding_chain"`
	ExecutionChain   string    `json:"execution_chain"`
	FundingSymbol    string    `json:"funding_symbol"`
	ExecutionSymbol  string    `json:"execution_symbol"`
	MaxFundingAmount string    `json:"max_funding_amount"`
	ExecutionCost    string    `json:"execution_cost"`
	ServiceFee       string    `json:"service_fee"`
	PaymentAddress   string    `json:"payment_address"`
	ExpiresAt        time.Time `json:"expires_at"`
	Nonce            string    `json:"nonce"`
	Status           string    `json:"status"`
}

// CommitQuoteRequest is the request body for POST /api/quotes/{id}/commit.
type CommitQuoteRequest struct {
	FundingTxHash string `json:"funding_tx_hash"`
}

// TradeResponse is the API representation of a trade.
type TradeResponse struct {
	ID                 string `json:"id"`
	QuoteID            string `json:"quote_id"`
	SourceChain        string `json:"source_chain"`
	DestinationChain   string `json:"destination_chain"`
	DestinationAddress string `json:"destination_address,omitempty"`
	AmountIn           string `json:"amount_in"`
	AmountOutExpected  string `json:"amount_out_expected"`
	AmountOutActual    string `json:"amount_out_actual"`
	DEXUsed            string `json:"dex_used"`
	Status             string `json:"status"`
	SwapTxHash         string `json:"swap_tx_hash"`
	DestinationTxHash  string `json:"destination_tx_hash"`
	ErrorMessage       string `json:"error_message,omitempty"`
}

// WebhookAck is the unconditional acknowledgment returned to webhook
// senders. It means "accepted for processing", not "processed".
type WebhookAck struct {
	Accepted bool `json:"accepted"`
}

// HealthResponse reports per-chain availability flags.
type HealthResponse struct {
	Status string          `json:"status"`
	Time   string          `json:"time"`
	Chains map[string]bool `json:"chains"`
}

// ErrorResponse is the API error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func quoteResponse(q *model.Quote) QuoteResponse {
	return QuoteResponse{
		ID:               q.ID,
		UserID:           q.UserID,
		FundingChain:     q.FundingChain.String(),
		ExecutionChain:   q.ExecutionChain.String(),
		FundingSymbol:    q.FundingAsset.Symbol,
		ExecutionSymbol:  q.ExecutionAsset.Symbol,
		MaxFundingAmount: q.MaxFundingAmount.String(),
		ExecutionCost:    q.ExecutionCost.String(),
		ServiceFee:       q.ServiceFee.String(),
		PaymentAddress:   q.PaymentAddress,
		ExpiresAt:        q.ExpiresAt,
		Nonce:            q.Nonce,
		Status:           string(q.Status),
	}
}

func tradeResponse(t *model.Trade) TradeResponse {
	return TradeResponse{
		ID:                 t.ID,
		QuoteID:            t.QuoteID,
		SourceChain:        t.SourceChain.String(),
		DestinationChain:   t.DestinationChain.String(),
		DestinationAddress: t.DestinationAddress,
		AmountIn:           t.AmountIn.String(),
		AmountOutExpected:  t.AmountOutExpected.String(),
		AmountOutActual:    t.AmountOutActual.String(),
		DEXUsed:            t.DEXUsed,
		Status:             string(t.Status),
		SwapTxHash:         t.SwapTxHash,
		DestinationTxHash:  t.DestinationTxHash,
		ErrorMessage:       t.ErrorMessage,
	}
}

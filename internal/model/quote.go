package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuoteStatus tracks the pricing/commit half of the trade lifecycle.
// Transitions only move forward: Pending -> Committed -> Executed, with
// Failed reachable from any non-terminal status.
type QuoteStatus string

const (
	QuoteStatusPending   QuoteStatus = "pending"
	QuoteStatusCommitted QuoteStatus = "committed"
	QuoteStatusExecuted  QuoteStatus = "executed"
	QuoteStatusFailed    QuoteStatus = "failed"
)

// Terminal reports whether no further transition is legal from s.
func (s QuoteStatus) Terminal() bool {
	return s == QuoteStatusExecuted || s == QuoteStatusFailed
}

// Quote is a priced, expiring, nonce-bound reservation to exchange
// funding-chain value for execution-chain value.
type Quote struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	FundingChain     Chain           `json:"funding_chain"`
	ExecutionChain   Chain           `json:"execution_chain"`
	FundingAsset     AssetInfo       `json:"funding_asset"`
	ExecutionAsset   AssetInfo       `json:"execution_asset"`
	MaxFundingAmount decimal.Decimal `json:"max_funding_amount"`
	ExecutionCost    decimal.Decimal `json:"execution_cost"`
	ServiceFee       decimal.Decimal `json:"service_fee"`
	PaymentAddress   string          `json:"payment_address"`
	RecipientAddress string          `json:"recipient_address,omitempty"`
	ExpiresAt        time.Time       `json:"expires_at"`
	Nonce            string          `json:"nonce"`
	Status           QuoteStatus     `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
}

// IsExpired reports whether the quote may no longer be committed or
// settled. Expiry is checked at every consumption point rather than by a
// background sweeper.
func (q *Quote) IsExpired(now time.Time) bool {
	return !now.Before(q.ExpiresAt)
}

// Execution links an observed on-chain payment/settlement to its Quote.
// There is at most one Execution per quote_id; webhook updates are
// idempotent upserts.
type Execution struct {
	QuoteID         string    `json:"quote_id"`
	TransactionHash string    `json:"transaction_hash"`
	Status          string    `json:"status"`
	UpdatedAt       time.Time `json:"updated_at"`
}

package events

import (
	"time"
)

// Event types emitted on the trade lifecycle stream.
const (
	TypeQuoteCreated    = "quote_created"
	TypeQuoteCommitted  = "quote_committed"
	TypeQuoteExecuted   = "quote_executed"
	TypeQuoteFailed     = "quote_failed"
	TypeTradeTransition = "trade_transition"
	TypeTradeCompleted  = "trade_completed"
	TypeTradeFailed     = "trade_failed"
)

// Event is one trade-lifecycle notification. TradeID (or QuoteID for
// quote-level events) doubles as the partition key so per-record ordering
// survives the broker.
type Event struct {
	Type      string    `json:"type"`
	QuoteID   string    `json:"quote_id,omitempty"`
	TradeID   string    `json:"trade_id,omitempty"`
	Status    string    `json:"status,omitempty"`
	TxHash    string    `json:"tx_hash,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Key returns the partition key for the event.
func (e Event) Key() string {
	if e.TradeID != "" {
		return e.TradeID
	}
	return e.QuoteID
}

// Sink receives lifecycle events. Publish failures must not affect the
// operation that produced the event; implementations log and move on.
type Sink interface {
	Publish(e Event)
	Close()
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Publish(Event) {}
func (NopSink) Close()        {}

// Package webhook ingests asynchronous external payment/settlement
// notifications and advances the ledger idempotently. Acceptance and
// processing are separate scheduling units: the HTTP handler acknowledges
// immediately and the dispatcher processes out of band.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chigozirigeorge/omnixec/internal/events"
	"github.com/chigozirigeorge/omnixec/internal/ledger"
	"github.com/chigozirigeorge/omnixec/internal/model"
)

// ErrValidation marks payloads rejected synchronously and never retried.
var ErrValidation = errors.New("webhook validation failed")

// Payload is the external notification body.
type Payload struct {
	TransactionID string    `json:"transaction_id"`
	QuoteID       string    `json:"quote_id"`
	Status        string    `json:"status"`
	Amount        string    `json:"amount"`
	Timestamp     time.Time `json:"timestamp"`
}

// MapExternalStatus maps the sender's free-form status string onto the
// quote lifecycle. Unknown strings are treated as still pending.
func MapExternalStatus(s string) model.QuoteStatus {
	switch strings.ToLower(s) {
	case "success", "completed":
		return model.QuoteStatusExecuted
	case "failed", "error":
		return model.QuoteStatusFailed
	case "pending", "confirming":
		return model.QuoteStatusPending
	default:
		return model.QuoteStatusPending
	}
}

// Processor validates webhook payloads against the ledger and applies
// guarded status transitions. Processing the same payload twice lands on
// the same terminal state.
type Processor struct {
	ledger *ledger.Ledger
	dedupe DedupeStore
	sink   events.Sink
	logger *zap.Logger
}

func NewProcessor(l *ledger.Ledger, dedupe DedupeStore, sink events.Sink, logger *zap.Logger) *Processor {
	return &Processor{
		ledger: l,
		dedupe: dedupe,
		sink:   sink,
		logger: logger.With(zap.String("component", "webhook_processor")),
	}
}

// Process applies one payload. Errors are for the caller's log sink; the
// webhook sender has already been acknowledged.
func (p *Processor) Process(ctx context.Context, payload Payload) error {
	if payload.TransactionID == "" || payload.QuoteID == "" {
		return fmt.Errorf("%w: transaction_id and quote_id are required", ErrValidation)
	}

	deliveryID := payload.TransactionID + ":" + strings.ToLower(payload.Status)
	seen, err := p.dedupe.Seen(ctx, deliveryID)
	if err != nil {
		// Dedupe is an optimization; the guarded transitions below keep
		// duplicates harmless, so degrade rather than drop the payload.
		p.logger.Warn("Dedupe store unavailable, processing anyway", zap.Error(err))
	} else if seen {
		p.logger.Info("Duplicate webhook ignored",
			zap.String("transaction_id", payload.TransactionID),
			zap.String("quote_id", payload.QuoteID))
		return nil
	}

	execution, err := p.ledger.Executions.GetExecution(payload.QuoteID)
	if err != nil {
		return fmt.Errorf("failed to look up execution: %w", err)
	}
	if execution.QuoteID != payload.QuoteID {
		return fmt.Errorf("%w: payload quote_id %s does not match execution record %s",
			ErrValidation, payload.QuoteID, execution.QuoteID)
	}

	if err := p.ledger.Executions.UpsertExecution(model.Execution{
		QuoteID:         payload.QuoteID,
		TransactionHash: payload.TransactionID,
		Status:          payload.Status,
	}); err != nil {
		return fmt.Errorf("failed to update execution: %w", err)
	}

	target := MapExternalStatus(payload.Status)
	if err := p.applyQuoteStatus(payload.QuoteID, target, payload.TransactionID); err != nil {
		return err
	}

	// Marked only now that processing succeeded: a delivery that failed
	// above stays unmarked so the sender's retransmission is not dropped.
	if err := p.dedupe.Mark(ctx, deliveryID); err != nil {
		p.logger.Warn("Failed to record delivery id", zap.Error(err))
	}

	p.logger.Info("Processed webhook",
		zap.String("transaction_id", payload.TransactionID),
		zap.String("quote_id", payload.QuoteID),
		zap.String("status", payload.Status))
	return nil
}

// applyQuoteStatus applies the mapped status through the ledger's guarded
// transition: the move only succeeds when the quote's current status is
// the expected pre-transition value, so a stale or duplicate webhook can
// never clobber a more advanced state.
func (p *Processor) applyQuoteStatus(quoteID string, target model.QuoteStatus, txHash string) error {
	switch target {
	case model.QuoteStatusPending:
		// Record-only update; the quote does not move.
		return nil

	case model.QuoteStatusExecuted:
		err := p.ledger.Quotes.TransitionQuote(quoteID, model.QuoteStatusCommitted, model.QuoteStatusExecuted)
		if errors.Is(err, ledger.ErrStatusConflict) {
			if q, getErr := p.ledger.Quotes.GetQuote(quoteID); getErr == nil && q.Status == model.QuoteStatusExecuted {
				return nil
			}
			return err
		}
		if err != nil {
			return err
		}
		p.sink.Publish(events.Event{
			Type:      events.TypeQuoteExecuted,
			QuoteID:   quoteID,
			TxHash:    txHash,
			Timestamp: time.Now(),
		})
		return nil

	case model.QuoteStatusFailed:
		// A payment can fail before or after commit; try each legal
		// pre-state. Already-failed quotes are a no-op.
		for _, from := range []model.QuoteStatus{model.QuoteStatusPending, model.QuoteStatusCommitted} {
			err := p.ledger.Quotes.TransitionQuote(quoteID, from, model.QuoteStatusFailed)
			if err == nil {
				p.sink.Publish(events.Event{
					Type:      events.TypeQuoteFailed,
					QuoteID:   quoteID,
					TxHash:    txHash,
					Timestamp: time.Now(),
				})
				return nil
			}
			if !errors.Is(err, ledger.ErrStatusConflict) {
				return err
			}
		}
		if q, err := p.ledger.Quotes.GetQuote(quoteID); err == nil && q.Status == model.QuoteStatusFailed {
			return nil
		}
		return fmt.Errorf("quote %s: cannot mark failed: %w", quoteID, ledger.ErrStatusConflict)

	default:
		return nil
	}
}

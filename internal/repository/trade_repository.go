package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chigozirigeorge/omnixec/internal/ledger"
	"github.com/chigozirigeorge/omnixec/internal/model"
)

const tradeColumns = `id, quote_id, user_id, source_chain, destination_chain, destination_address, asset_in, asset_out,
	amount_in, amount_out_expected, amount_out_actual, dex_used, status, swap_tx_hash,
	destination_tx_hash, slippage_actual, execution_price, error_message, created_at, executed_at, completed_at`

// TradeRepository is the Postgres-backed ledger.TradeStore. Every named
// transition is an UPDATE guarded by the expected pre-transition status, so
// the row either moves atomically or stays untouched.
type TradeRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewTradeRepository(db *sql.DB, logger *zap.Logger) *TradeRepository {
	return &TradeRepository{db: db, logger: logger}
}

func (r *TradeRepository) CreateTrade(t *model.Trade) error {
	assetIn, err := json.Marshal(t.AssetIn)
	if err != nil {
		return fmt.Errorf("failed to marshal asset_in: %w", err)
	}
	assetOut, err := json.Marshal(t.AssetOut)
	if err != nil {
		return fmt.Errorf("failed to marshal asset_out: %w", err)
	}

	status := t.Status
	if status == "" {
		status = model.TradeStatusCreated
	}

	_, err = r.db.Exec(`
		INSERT INTO trades (id, quote_id, user_id, source_chain, destination_chain, destination_address, asset_in, asset_out,
			amount_in, amount_out_expected, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, t.ID, t.QuoteID, t.UserID, t.SourceChain, t.DestinationChain, t.DestinationAddress, assetIn, assetOut,
		t.AmountIn, t.AmountOutExpected, status, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create trade: %w", err)
	}

	r.logger.Info("Created trade",
		zap.String("trade_id", t.ID),
		zap.String("quote_id", t.QuoteID))
	return nil
}

func (r *TradeRepository) GetTrade(id string) (*model.Trade, error) {
	return r.scanTrade(r.db.QueryRow(
		`SELECT `+tradeColumns+` FROM trades WHERE id = $1`, id), id)
}

func (r *TradeRepository) GetTradeByQuoteID(quoteID string) (*model.Trade, error) {
	return r.scanTrade(r.db.QueryRow(
		`SELECT `+tradeColumns+` FROM trades WHERE quote_id = $1 ORDER BY created_at DESC LIMIT 1`, quoteID), quoteID)
}

func (r *TradeRepository) scanTrade(row *sql.Row, id string) (*model.Trade, error) {
	var (
		t           model.Trade
		assetIn     []byte
		assetOut    []byte
		executedAt  sql.NullTime
		completedAt sql.NullTime
	)
	err := row.Scan(&t.ID, &t.QuoteID, &t.UserID, &t.SourceChain, &t.DestinationChain, &t.DestinationAddress, &assetIn, &assetOut,
		&t.AmountIn, &t.AmountOutExpected, &t.AmountOutActual, &t.DEXUsed, &t.Status, &t.SwapTxHash,
		&t.DestinationTxHash, &t.SlippageActual, &t.ExecutionPrice, &t.ErrorMessage, &t.CreatedAt, &executedAt, &completedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("trade %s: %w", id, ledger.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get trade: %w", err)
	}

	if err := json.Unmarshal(assetIn, &t.AssetIn); err != nil {
		return nil, fmt.Errorf("failed to unmarshal asset_in: %w", err)
	}
	if err := json.Unmarshal(assetOut, &t.AssetOut); err != nil {
		return nil, fmt.Errorf("failed to unmarshal asset_out: %w", err)
	}
	if executedAt.Valid {
		t.ExecutedAt = executedAt.Time
	}
	if completedAt.Valid {
		t.CompletedAt = completedAt.Time
	}
	return &t, nil
}

func (r *TradeRepository) ListStuckTrades(status model.TradeStatus, cutoff time.Time) ([]*model.Trade, error) {
	rows, err := r.db.Query(`
		SELECT id FROM trades WHERE status = $1 AND created_at < $2
	`, status, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list stuck trades: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan trade id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stuck trades: %w", err)
	}

	trades := make([]*model.Trade, 0, len(ids))
	for _, id := range ids {
		t, err := r.GetTrade(id)
		if err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, nil
}

// guardedUpdate runs the transition statement and translates a zero
// rows-affected result into NotFound or InvalidTransition.
func (r *TradeRepository) guardedUpdate(id string, to model.TradeStatus, query string, args ...interface{}) error {
	res, err := r.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to transition trade: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		var current model.TradeStatus
		err := r.db.QueryRow(`SELECT status FROM trades WHERE id = $1`, id).Scan(&current)
		if err == sql.ErrNoRows {
			return fmt.Errorf("trade %s: %w", id, ledger.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to read trade status: %w", err)
		}
		return fmt.Errorf("trade %s: %s -> %s: %w", id, current, to, ledger.ErrInvalidTransition)
	}

	r.logger.Info("Transitioned trade",
		zap.String("trade_id", id),
		zap.String("to", string(to)))
	return nil
}

func (r *TradeRepository) MarkExecuting(id string) error {
	return r.guardedUpdate(id, model.TradeStatusExecutingSwap, `
		UPDATE trades SET status = $1 WHERE id = $2 AND status = $3
	`, model.TradeStatusExecutingSwap, id, model.TradeStatusCreated)
}

func (r *TradeRepository) MarkSwapCompleted(id, dexUsed, swapTxHash string, amountOut, executionPrice, slippage decimal.Decimal) error {
	return r.guardedUpdate(id, model.TradeStatusSwapCompleted, `
		UPDATE trades SET status = $1, dex_used = $2, swap_tx_hash = $3, amount_out_actual = $4,
			execution_price = $5, slippage_actual = $6, executed_at = NOW()
		WHERE id = $7 AND status = $8
	`, model.TradeStatusSwapCompleted, dexUsed, swapTxHash, amountOut, executionPrice, slippage,
		id, model.TradeStatusExecutingSwap)
}

func (r *TradeRepository) MarkSettlementInProgress(id string) error {
	return r.guardedUpdate(id, model.TradeStatusSettlementInProgress, `
		UPDATE trades SET status = $1 WHERE id = $2 AND status = $3
	`, model.TradeStatusSettlementInProgress, id, model.TradeStatusSwapCompleted)
}

func (r *TradeRepository) MarkCompleted(id, destinationTxHash string) error {
	return r.guardedUpdate(id, model.TradeStatusCompleted, `
		UPDATE trades SET status = $1, destination_tx_hash = $2, completed_at = NOW()
		WHERE id = $3 AND status = $4
	`, model.TradeStatusCompleted, destinationTxHash, id, model.TradeStatusSettlementInProgress)
}

func (r *TradeRepository) MarkFailed(id, errorMessage string) error {
	return r.guardedUpdate(id, model.TradeStatusFailed, `
		UPDATE trades SET status = $1, error_message = $2, completed_at = NOW()
		WHERE id = $3 AND status NOT IN ($4, $5)
	`, model.TradeStatusFailed, errorMessage, id, model.TradeStatusCompleted, model.TradeStatusFailed)
}

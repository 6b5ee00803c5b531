package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/chigozirigeorge/omnixec/internal/ledger"
	"github.com/chigozirigeorge/omnixec/internal/model"
)

// QuoteRepository is the Postgres-backed ledger.QuoteStore. The guarded
// transition is realized as an optimistic UPDATE ... WHERE status matches.
type QuoteRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewQuoteRepository(db *sql.DB, logger *zap.Logger) *QuoteRepository {
	return &QuoteRepository{db: db, logger: logger}
}

func (r *QuoteRepository) CreateQuote(q *model.Quote) error {
	fundingAsset, err := json.Marshal(q.FundingAsset)
	if err != nil {
		return fmt.Errorf("failed to marshal funding asset: %w", err)
	}
	executionAsset, err := json.Marshal(q.ExecutionAsset)
	if err != nil {
		return fmt.Errorf("failed to marshal execution asset: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO quotes (id, user_id, funding_chain, execution_chain, funding_asset, execution_asset,
			max_funding_amount, execution_cost, service_fee, payment_address, recipient_address, expires_at, nonce, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, q.ID, q.UserID, q.FundingChain, q.ExecutionChain, fundingAsset, executionAsset,
		q.MaxFundingAmount, q.ExecutionCost, q.ServiceFee, q.PaymentAddress, q.RecipientAddress, q.ExpiresAt, q.Nonce, q.Status, q.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create quote: %w", err)
	}

	r.logger.Info("Created quote",
		zap.String("quote_id", q.ID),
		zap.String("status", string(q.Status)))
	return nil
}

func (r *QuoteRepository) GetQuote(id string) (*model.Quote, error) {
	var (
		q              model.Quote
		fundingAsset   []byte
		executionAsset []byte
	)
	err := r.db.QueryRow(`
		SELECT id, user_id, funding_chain, execution_chain, funding_asset, execution_asset,
			max_funding_amount, execution_cost, service_fee, payment_address, recipient_address, expires_at, nonce, status, created_at
		FROM quotes
		WHERE id = $1
	`, id).Scan(&q.ID, &q.UserID, &q.FundingChain, &q.ExecutionChain, &fundingAsset, &executionAsset,
		&q.MaxFundingAmount, &q.ExecutionCost, &q.ServiceFee, &q.PaymentAddress, &q.RecipientAddress, &q.ExpiresAt, &q.Nonce, &q.Status, &q.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("quote %s: %w", id, ledger.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}

	if err := json.Unmarshal(fundingAsset, &q.FundingAsset); err != nil {
		return nil, fmt.Errorf("failed to unmarshal funding asset: %w", err)
	}
	if err := json.Unmarshal(executionAsset, &q.ExecutionAsset); err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution asset: %w", err)
	}
	return &q, nil
}

func (r *QuoteRepository) TransitionQuote(id string, from, to model.QuoteStatus) error {
	res, err := r.db.Exec(`
		UPDATE quotes SET status = $1 WHERE id = $2 AND status = $3
	`, to, id, from)
	if err != nil {
		return fmt.Errorf("failed to transition quote: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		var current model.QuoteStatus
		err := r.db.QueryRow(`SELECT status FROM quotes WHERE id = $1`, id).Scan(&current)
		if err == sql.ErrNoRows {
			return fmt.Errorf("quote %s: %w", id, ledger.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to read quote status: %w", err)
		}
		return fmt.Errorf("quote %s is %s, expected %s: %w", id, current, from, ledger.ErrStatusConflict)
	}

	r.logger.Info("Transitioned quote",
		zap.String("quote_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return nil
}

// ExecutionRepository is the Postgres-backed ledger.ExecutionStore.
type ExecutionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewExecutionRepository(db *sql.DB, logger *zap.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

func (r *ExecutionRepository) UpsertExecution(e model.Execution) error {
	_, err := r.db.Exec(`
		INSERT INTO executions (quote_id, transaction_hash, status, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (quote_id) DO UPDATE SET
			transaction_hash = EXCLUDED.transaction_hash,
			status = EXCLUDED.status,
			updated_at = NOW()
	`, e.QuoteID, e.TransactionHash, e.Status)
	if err != nil {
		return fmt.Errorf("failed to upsert execution: %w", err)
	}

	r.logger.Info("Upserted execution",
		zap.String("quote_id", e.QuoteID),
		zap.String("tx_hash", e.TransactionHash),
		zap.String("status", e.Status))
	return nil
}

func (r *ExecutionRepository) GetExecution(quoteID string) (*model.Execution, error) {
	var e model.Execution
	err := r.db.QueryRow(`
		SELECT quote_id, transaction_hash, status, updated_at
		FROM executions
		WHERE quote_id = $1
	`, quoteID).Scan(&e.QuoteID, &e.TransactionHash, &e.Status, &e.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("execution for quote %s: %w", quoteID, ledger.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get execution: %w", err)
	}
	return &e, nil
}

package repository

import (
	"database/sql"
	"fmt"
)

// InitMigration initializes the ledger tables. In production this would use
// a proper migration library like go-migrate.
func InitMigration(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS quotes (
			id UUID PRIMARY KEY,
			user_id VARCHAR(128) NOT NULL,
			funding_chain VARCHAR(20) NOT NULL,
			execution_chain VARCHAR(20) NOT NULL,
			funding_asset JSONB NOT NULL,
			execution_asset JSONB NOT NULL,
			max_funding_amount DECIMAL(78,18) NOT NULL,
			execution_cost DECIMAL(78,18) NOT NULL,
			service_fee DECIMAL(78,18) NOT NULL,
			payment_address VARCHAR(64) NOT NULL,
			recipient_address VARCHAR(64) NOT NULL DEFAULT '',
			expires_at TIMESTAMP NOT NULL,
			nonce UUID NOT NULL UNIQUE,
			status VARCHAR(20) NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_quotes_status_expires ON quotes (status, expires_at)`,
		`CREATE TABLE IF NOT EXISTS executions (
			quote_id UUID PRIMARY KEY REFERENCES quotes(id),
			transaction_hash VARCHAR(128) NOT NULL,
			status VARCHAR(40) NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS trades (
			id UUID PRIMARY KEY,
			quote_id UUID NOT NULL REFERENCES quotes(id),
			user_id VARCHAR(128) NOT NULL,
			source_chain VARCHAR(20) NOT NULL,
			destination_chain VARCHAR(20) NOT NULL,
			destination_address VARCHAR(64) NOT NULL DEFAULT '',
			asset_in JSONB NOT NULL,
			asset_out JSONB NOT NULL,
			amount_in DECIMAL(78,18) NOT NULL,
			amount_out_expected DECIMAL(78,18) NOT NULL,
			amount_out_actual DECIMAL(78,18) NOT NULL DEFAULT 0,
			dex_used VARCHAR(64) NOT NULL DEFAULT '',
			status VARCHAR(30) NOT NULL,
			swap_tx_hash VARCHAR(128) NOT NULL DEFAULT '',
			destination_tx_hash VARCHAR(128) NOT NULL DEFAULT '',
			slippage_actual DECIMAL(40,18) NOT NULL DEFAULT 0,
			execution_price DECIMAL(78,18) NOT NULL DEFAULT 0,
			error_message TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			executed_at TIMESTAMP,
			completed_at TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_quote ON trades (quote_id)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_status_created ON trades (status, created_at)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query %s: %w", query, err)
		}
	}
	return nil
}

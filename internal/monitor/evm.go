// Package monitor watches funding chains for payments into the
// coordinator's deposit wallets and reports them for quote commitment.
package monitor

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chigozirigeorge/omnixec/internal/model"
)

var transferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// Observation is one token transfer into a payment address.
type Observation struct {
	Chain       model.Chain
	TxHash      string
	From        string
	Token       string
	Amount      decimal.Decimal
	BlockNumber uint64
}

// Handler consumes observations. Handler errors are logged; the monitor
// keeps going.
type Handler interface {
	PaymentObserved(ctx context.Context, obs Observation) error
}

// EVMMonitor polls one EVM chain for ERC20 transfers to the chain's
// payment address. Blocks are processed in chunks behind a finality offset
// so reorged payments are never reported.
type EVMMonitor struct {
	chain          model.Chain
	client         *ethclient.Client
	paymentAddress common.Address
	handler        Handler
	chunkSize      uint64
	finalityOffset uint64
	pollInterval   time.Duration
	lastProcessed  uint64
	logger         *zap.Logger
}

func NewEVMMonitor(
	chain model.Chain,
	rpcURL string,
	paymentAddress string,
	handler Handler,
	chunkSize, finalityOffset uint64,
	logger *zap.Logger,
) (*EVMMonitor, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s RPC: %w", chain, err)
	}

	return &EVMMonitor{
		chain:          chain,
		client:         client,
		paymentAddress: common.HexToAddress(paymentAddress),
		handler:        handler,
		chunkSize:      chunkSize,
		finalityOffset: finalityOffset,
		pollInterval:   15 * time.Second,
		logger: logger.With(
			zap.String("component", "funding_monitor"),
			zap.String("chain", chain.String())),
	}, nil
}

// Run polls until ctx is done. The cursor starts at the current finalized
// head; historical payments are the reconciler's concern.
func (m *EVMMonitor) Run(ctx context.Context) error {
	head, err := m.client.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("failed to read head block: %w", err)
	}
	if head > m.finalityOffset {
		m.lastProcessed = head - m.finalityOffset
	}

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	m.logger.Info("Funding monitor started",
		zap.Uint64("from_block", m.lastProcessed),
		zap.String("payment_address", m.paymentAddress.Hex()))

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := m.poll(ctx); err != nil {
				m.logger.Error("Polling pass failed", zap.Error(err))
			}
		}
	}
}

func (m *EVMMonitor) poll(ctx context.Context) error {
	head, err := m.client.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("failed to read head block: %w", err)
	}
	if head <= m.finalityOffset {
		return nil
	}
	safe := head - m.finalityOffset
	if safe <= m.lastProcessed {
		return nil
	}

	// Chunked ranges keep individual FilterLogs calls under RPC limits.
	for start := m.lastProcessed + 1; start <= safe; start += m.chunkSize {
		end := start + m.chunkSize - 1
		if end > safe {
			end = safe
		}
		if err := m.processRange(ctx, start, end); err != nil {
			return fmt.Errorf("failed to process blocks %d-%d: %w", start, end, err)
		}
		m.lastProcessed = end
	}
	return nil
}

func (m *EVMMonitor) processRange(ctx context.Context, fromBlock, toBlock uint64) error {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Topics: [][]common.Hash{
			{transferTopic},
			nil,
			{common.BytesToHash(m.paymentAddress.Bytes())},
		},
	}

	logs, err := m.client.FilterLogs(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to filter logs: %w", err)
	}

	for _, entry := range logs {
		obs, ok := m.parseTransfer(entry)
		if !ok {
			continue
		}
		m.logger.Info("Observed payment",
			zap.String("tx_hash", obs.TxHash),
			zap.String("from", obs.From),
			zap.String("amount", obs.Amount.String()))
		if err := m.handler.PaymentObserved(ctx, obs); err != nil {
			m.logger.Error("Payment handler failed",
				zap.String("tx_hash", obs.TxHash),
				zap.Error(err))
		}
	}
	return nil
}

func (m *EVMMonitor) parseTransfer(entry types.Log) (Observation, bool) {
	if len(entry.Topics) != 3 || len(entry.Data) != 32 {
		return Observation{}, false
	}
	amount := new(big.Int).SetBytes(entry.Data)
	return Observation{
		Chain:       m.chain,
		TxHash:      entry.TxHash.Hex(),
		From:        common.BytesToAddress(entry.Topics[1].Bytes()).Hex(),
		Token:       entry.Address.Hex(),
		Amount:      decimal.NewFromBigInt(amount, 0),
		BlockNumber: entry.BlockNumber,
	}, true
}

// Close releases the RPC connection.
func (m *EVMMonitor) Close() {
	m.client.Close()
}

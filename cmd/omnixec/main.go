package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/chigozirigeorge/omnixec/internal/adapter"
	"github.com/chigozirigeorge/omnixec/internal/api"
	"github.com/chigozirigeorge/omnixec/internal/config"
	"github.com/chigozirigeorge/omnixec/internal/events"
	"github.com/chigozirigeorge/omnixec/internal/ledger"
	"github.com/chigozirigeorge/omnixec/internal/model"
	"github.com/chigozirigeorge/omnixec/internal/monitor"
	"github.com/chigozirigeorge/omnixec/internal/pricing"
	"github.com/chigozirigeorge/omnixec/internal/quote"
	"github.com/chigozirigeorge/omnixec/internal/repository"
	"github.com/chigozirigeorge/omnixec/internal/risk"
	"github.com/chigozirigeorge/omnixec/internal/router"
	"github.com/chigozirigeorge/omnixec/internal/settlement"
	"github.com/chigozirigeorge/omnixec/internal/wallet"
	"github.com/chigozirigeorge/omnixec/internal/webhook"
)

// referenceAssets are the per-chain stable assets venue quotes are
// denominated against.
var referenceAssets = map[model.Chain]model.AssetInfo{
	model.ChainEthereum: {
		Chain:    model.ChainEthereum,
		Address:  "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
		Symbol:   "USDC",
		Name:     "USD Coin",
		Decimals: 6,
	},
	model.ChainPolygon: {
		Chain:    model.ChainPolygon,
		Address:  "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359",
		Symbol:   "USDC",
		Name:     "USD Coin",
		Decimals: 6,
	},
	model.ChainBSC: {
		Chain:    model.ChainBSC,
		Address:  "0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d",
		Symbol:   "USDC",
		Name:     "USD Coin",
		Decimals: 18,
	},
}

func main() {
	// Initialize zap logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger.Info("Starting coordinator with configuration",
		zap.Int("http_port", cfg.HTTPPort),
		zap.String("db_url", cfg.DBURL),
		zap.String("kafka_broker", cfg.KafkaBroker),
		zap.String("kafka_topic", cfg.KafkaTopic),
		zap.String("redis_addr", cfg.RedisAddr),
		zap.Int("dex_adapters", len(cfg.DEXAdapters)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ledger: Postgres when configured, in-memory otherwise.
	var l *ledger.Ledger
	if cfg.DBURL != "" {
		db, err := sql.Open("postgres", cfg.DBURL)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		if err := repository.InitMigration(db); err != nil {
			logger.Fatal("Failed to initialize database", zap.Error(err))
		}
		l = &ledger.Ledger{
			Quotes:     repository.NewQuoteRepository(db, logger),
			Executions: repository.NewExecutionRepository(db, logger),
			Trades:     repository.NewTradeRepository(db, logger),
		}
	} else {
		logger.Warn("DB_URL not set, using in-memory ledger")
		l = ledger.NewMemoryLedger()
	}

	// Lifecycle event stream.
	var sink events.Sink = events.NopSink{}
	if cfg.KafkaBroker != "" {
		kafkaSink, err := events.NewKafkaSink(cfg.KafkaBroker, cfg.KafkaTopic, logger)
		if err != nil {
			logger.Fatal("Failed to create Kafka sink", zap.Error(err))
		}
		sink = kafkaSink
	}
	defer sink.Close()

	// DEX adapters.
	registry := adapter.NewRegistry(logger)
	for _, dex := range cfg.DEXAdapters {
		registry.Register(dex.Name, adapter.NewHTTPAdapter(dex.Name, dex.URL, dex.Chains, logger))
	}

	cache := pricing.NewCache(cfg.PriceValidity, cfg.PriceRetention, logger)
	go cache.StartSweeper(ctx, time.Minute)

	oracle := pricing.NewAdapterOracle(registry, referenceAssets, logger)
	engine := quote.NewEngine(cache, oracle, l.Quotes, sink, quote.Config{
		ServiceFeeBps:    cfg.ServiceFeeBps,
		MinFundingAmount: cfg.MinFundingAmount,
		ExpiryHorizon:    cfg.QuoteExpiry,
		PaymentAddresses: cfg.PaymentAddresses(),
	}, logger)

	// Settlement saga.
	limiter := risk.NewLimiter(cfg.DailyLimits(), logger)
	coordinator := settlement.NewCoordinator(
		l,
		router.New(registry, logger),
		limiter,
		settlement.NewLedgerCollector(l.Executions, logger),
		settlement.NewHTTPBridgeGateway(cfg.BridgeGatewayURL, logger),
		settlement.NewHTTPDeliverer(cfg.DeliveryServiceURL, logger),
		sink,
		logger,
	)

	dispatch := quote.DispatchFunc(func(tradeID string) {
		go func() {
			if err := coordinator.SettleTrade(ctx, tradeID); err != nil {
				logger.Error("Settlement failed", zap.String("trade_id", tradeID), zap.Error(err))
			}
		}()
	})
	commits := quote.NewCommitService(l, dispatch, sink, logger)

	reconciler := settlement.NewReconciler(l, coordinator, cfg.ReconcileStuckAfter, cfg.ReconcileInterval, logger)
	go reconciler.Run(ctx)

	// Webhook ingestion.
	var dedupe webhook.DedupeStore
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer client.Close()
		dedupe = webhook.NewRedisDedupe(client, "webhook:", 24*time.Hour)
	} else {
		dedupe = webhook.NewMemoryDedupe(24 * time.Hour)
	}
	processor := webhook.NewProcessor(l, dedupe, sink, logger)
	dispatcher := webhook.NewDispatcher(processor, cfg.WebhookQueueSize, cfg.WebhookWorkers, logger)
	dispatcher.Start(ctx)

	// Funding monitors, one per chain with an RPC endpoint configured.
	matcher := monitor.NewQuoteMatcher(commits, logger)
	for chain, cc := range cfg.Chains {
		if cc.RPCURL == "" || cc.PaymentAddress == "" {
			continue
		}
		m, err := monitor.NewEVMMonitor(chain, cc.RPCURL, cc.PaymentAddress, matcher,
			cfg.MonitorChunkSize, cfg.MonitorFinalityOffset, logger)
		if err != nil {
			logger.Fatal("Failed to create funding monitor",
				zap.String("chain", chain.String()), zap.Error(err))
		}
		defer m.Close()
		go func(chain model.Chain) {
			if err := m.Run(ctx); err != nil {
				logger.Error("Funding monitor stopped",
					zap.String("chain", chain.String()), zap.Error(err))
			}
		}(chain)
	}

	// API server.
	verifier := wallet.NewVerifier()
	apiServer := api.NewServer(
		cfg.HTTPPort,
		api.NewQuoteHandler(engine, commits, l.Quotes, verifier, matcher, logger),
		api.NewTradeHandler(l.Trades, logger),
		api.NewWebhookHandler(dispatcher, logger),
		registry,
		logger,
	)
	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Fatal("API server failed", zap.Error(err))
		}
	}()

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	logger.Info("Received shutdown signal, starting graceful shutdown...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error shutting down API server", zap.Error(err))
	}
	dispatcher.Wait()

	logger.Info("Coordinator shutdown complete")
}

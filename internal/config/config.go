package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/chigozirigeorge/omnixec/internal/model"
)

// DEXAdapterConfig describes one swap venue served by an executor
// endpoint.
type DEXAdapterConfig struct {
	Name   string
	URL    string
	Chains []model.Chain
}

// ChainConfig carries the per-chain settings the coordinator needs.
type ChainConfig struct {
	// RPCURL enables the funding monitor for this chain when set.
	RPCURL string
	// PaymentAddress is the deposit wallet quoted payments must arrive at.
	PaymentAddress string
	// DailyLimit caps the chain's sliding-window spending.
	DailyLimit decimal.Decimal
}

// Config is the full service configuration, loaded from the environment
// (optionally seeded from a .env file and/or a yaml config file).
type Config struct {
	HTTPPort int

	// DBURL selects the Postgres ledger when set; empty means in-memory.
	DBURL string
	// KafkaBroker/KafkaTopic enable the lifecycle event stream when set.
	KafkaBroker string
	KafkaTopic  string
	// RedisAddr enables the shared webhook dedupe store when set.
	RedisAddr     string
	RedisPassword string

	Chains map[model.Chain]ChainConfig

	// BridgeGatewayURL and DeliveryServiceURL point at the executor
	// services that custody keys for bridging and payout.
	BridgeGatewayURL   string
	DeliveryServiceURL string
	// DEXAdapters lists the executor-backed swap venues to register.
	DEXAdapters []DEXAdapterConfig

	ServiceFeeBps    int64
	MinFundingAmount decimal.Decimal
	QuoteExpiry      time.Duration
	PriceValidity    time.Duration
	PriceRetention   time.Duration

	WebhookQueueSize int
	WebhookWorkers   int

	ReconcileStuckAfter time.Duration
	ReconcileInterval   time.Duration

	MonitorChunkSize      uint64
	MonitorFinalityOffset uint64
}

// Load reads configuration with viper, after seeding the process
// environment from .env when present.
func Load(configFile string) (*Config, error) {
	// Missing .env is fine; explicit env vars win either way.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetDefault("HTTP_PORT", 8080)
	v.SetDefault("KAFKA_TOPIC", "omnixec.trade-events")
	v.SetDefault("SERVICE_FEE_BPS", 30)
	v.SetDefault("MIN_FUNDING_AMOUNT", "10")
	v.SetDefault("QUOTE_EXPIRY_SECONDS", 300)
	v.SetDefault("PRICE_VALIDITY_MS", 5000)
	v.SetDefault("PRICE_RETENTION_SECONDS", 300)
	v.SetDefault("WEBHOOK_QUEUE_SIZE", 1024)
	v.SetDefault("WEBHOOK_WORKERS", 4)
	v.SetDefault("RECONCILE_STUCK_AFTER_MINUTES", 30)
	v.SetDefault("RECONCILE_INTERVAL_MINUTES", 5)
	v.SetDefault("MONITOR_CHUNK_SIZE", 100)
	v.SetDefault("MONITOR_FINALITY_OFFSET", 12)
	v.SetDefault("DEFAULT_DAILY_LIMIT", "100000")
	v.SetDefault("BRIDGE_GATEWAY_URL", "http://localhost:9201")
	v.SetDefault("DELIVERY_SERVICE_URL", "http://localhost:9202")

	minAmount, err := decimal.NewFromString(v.GetString("MIN_FUNDING_AMOUNT"))
	if err != nil {
		return nil, fmt.Errorf("invalid MIN_FUNDING_AMOUNT: %w", err)
	}
	defaultLimit, err := decimal.NewFromString(v.GetString("DEFAULT_DAILY_LIMIT"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_DAILY_LIMIT: %w", err)
	}

	chains := make(map[model.Chain]ChainConfig, len(model.AllChains()))
	for _, chain := range model.AllChains() {
		prefix := envPrefix(chain)
		limit := defaultLimit
		if raw := v.GetString(prefix + "_DAILY_LIMIT"); raw != "" {
			limit, err = decimal.NewFromString(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid %s_DAILY_LIMIT: %w", prefix, err)
			}
		}
		chains[chain] = ChainConfig{
			RPCURL:         v.GetString(prefix + "_RPC_URL"),
			PaymentAddress: v.GetString(prefix + "_PAYMENT_ADDRESS"),
			DailyLimit:     limit,
		}
	}

	adapters, err := parseDEXAdapters(v.GetString("DEX_ADAPTERS"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEX_ADAPTERS: %w", err)
	}

	cfg := &Config{
		HTTPPort:              v.GetInt("HTTP_PORT"),
		DBURL:                 v.GetString("DB_URL"),
		KafkaBroker:           v.GetString("KAFKA_BROKER"),
		KafkaTopic:            v.GetString("KAFKA_TOPIC"),
		RedisAddr:             v.GetString("REDIS_ADDR"),
		RedisPassword:         v.GetString("REDIS_PASSWORD"),
		Chains:                chains,
		BridgeGatewayURL:      v.GetString("BRIDGE_GATEWAY_URL"),
		DeliveryServiceURL:    v.GetString("DELIVERY_SERVICE_URL"),
		DEXAdapters:           adapters,
		ServiceFeeBps:         v.GetInt64("SERVICE_FEE_BPS"),
		MinFundingAmount:      minAmount,
		QuoteExpiry:           time.Duration(v.GetInt("QUOTE_EXPIRY_SECONDS")) * time.Second,
		PriceValidity:         time.Duration(v.GetInt("PRICE_VALIDITY_MS")) * time.Millisecond,
		PriceRetention:        time.Duration(v.GetInt("PRICE_RETENTION_SECONDS")) * time.Second,
		WebhookQueueSize:      v.GetInt("WEBHOOK_QUEUE_SIZE"),
		WebhookWorkers:        v.GetInt("WEBHOOK_WORKERS"),
		ReconcileStuckAfter:   time.Duration(v.GetInt("RECONCILE_STUCK_AFTER_MINUTES")) * time.Minute,
		ReconcileInterval:     time.Duration(v.GetInt("RECONCILE_INTERVAL_MINUTES")) * time.Minute,
		MonitorChunkSize:      v.GetUint64("MONITOR_CHUNK_SIZE"),
		MonitorFinalityOffset: v.GetUint64("MONITOR_FINALITY_OFFSET"),
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// parseDEXAdapters parses entries of the form
// "name=url@chain1,chain2", separated by semicolons. An empty value
// yields no adapters; deployments can also register adapters in code.
func parseDEXAdapters(raw string) ([]DEXAdapterConfig, error) {
	if raw == "" {
		return nil, nil
	}

	var out []DEXAdapterConfig
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, rest, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("entry %q: expected name=url@chains", entry)
		}
		url, chainList, ok := strings.Cut(rest, "@")
		if !ok {
			return nil, fmt.Errorf("entry %q: expected name=url@chains", entry)
		}

		var chains []model.Chain
		for _, c := range strings.Split(chainList, ",") {
			chain, err := model.ParseChain(strings.TrimSpace(c))
			if err != nil {
				return nil, fmt.Errorf("entry %q: %w", entry, err)
			}
			chains = append(chains, chain)
		}
		out = append(out, DEXAdapterConfig{
			Name:   strings.TrimSpace(name),
			URL:    strings.TrimSpace(url),
			Chains: chains,
		})
	}
	return out, nil
}

func envPrefix(chain model.Chain) string {
	switch chain {
	case model.ChainEthereum:
		return "ETHEREUM"
	case model.ChainPolygon:
		return "POLYGON"
	case model.ChainBSC:
		return "BSC"
	default:
		return "UNKNOWN"
	}
}

func validate(cfg *Config) error {
	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP_PORT: %d", cfg.HTTPPort)
	}
	if cfg.ServiceFeeBps < 0 || cfg.ServiceFeeBps >= 10000 {
		return fmt.Errorf("SERVICE_FEE_BPS must be in [0, 10000)")
	}
	if !cfg.MinFundingAmount.IsPositive() {
		return fmt.Errorf("MIN_FUNDING_AMOUNT must be positive")
	}
	if cfg.QuoteExpiry <= 0 {
		return fmt.Errorf("QUOTE_EXPIRY_SECONDS must be positive")
	}
	for chain, cc := range cfg.Chains {
		if !cc.DailyLimit.IsPositive() {
			return fmt.Errorf("daily limit for %s must be positive", chain)
		}
	}
	return nil
}

// PaymentAddresses projects the per-chain payment wallets for the quote
// engine.
func (c *Config) PaymentAddresses() map[model.Chain]string {
	out := make(map[model.Chain]string, len(c.Chains))
	for chain, cc := range c.Chains {
		if cc.PaymentAddress != "" {
			out[chain] = cc.PaymentAddress
		}
	}
	return out
}

// DailyLimits projects the per-chain spend limits for the risk gate.
func (c *Config) DailyLimits() map[model.Chain]decimal.Decimal {
	out := make(map[model.Chain]decimal.Decimal, len(c.Chains))
	for chain, cc := range c.Chains {
		out[chain] = cc.DailyLimit
	}
	return out
}

// Package config loads runtime configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mr-tron/base58"

	"tweet-sniper/internal/domain"
	"tweet-sniper/internal/solana"
)

type Config struct {
	// Secrets (from .env)
	TwitterAPIKey   string
	RelayAPIKey     string
	WalletSecretKey string
	WebhookURL      string

	// Endpoints
	TwitterAPIBase string
	JupiterBaseURL string
	RPCEndpoint    string
	RelayEndpoint  string

	// Trading
	SlippageBps int
	TipLamports uint64
	TipAccount  string

	// Watch targets
	Pairs []domain.WatchedPair

	// Timing
	PollInterval time.Duration
	Deadline     time.Duration // zero means run until all pairs match

	// Infrastructure
	DatabaseURL string // empty means in-memory stores
	MetricsAddr string
}

// maxTargets bounds the TARGET_n_* scan.
const maxTargets = 64

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		TwitterAPIKey:   envStr("TWITTER_API_KEY", ""),
		RelayAPIKey:     envStr("RELAY_API_KEY", ""),
		WalletSecretKey: envStr("WALLET_SECRET_KEY", ""),
		WebhookURL:      envStr("WEBHOOK_URL", ""),

		TwitterAPIBase: envStr("TWITTER_API_BASE", "https://api.twitterapi.io"),
		JupiterBaseURL: envStr("JUPITER_BASE_URL", "https://quote-api.jup.ag/v6"),
		RPCEndpoint:    envStr("RPC_ENDPOINT", "https://api.mainnet-beta.solana.com"),
		RelayEndpoint:  envStr("RELAY_ENDPOINT", ""),

		SlippageBps: envInt("SLIPPAGE_BPS", 300),
		TipLamports: uint64(envInt("TIP_LAMPORTS", 100_000)),
		TipAccount:  envStr("TIP_ACCOUNT", ""),

		PollInterval: envDuration("POLL_INTERVAL_MS", 500) * time.Millisecond,
		Deadline:     envDuration("DEADLINE_MINUTES", 0) * time.Minute,

		DatabaseURL: envStr("DATABASE_URL", ""),
		MetricsAddr: envStr("METRICS_ADDR", ":9090"),
	}

	cfg.Pairs = loadPairs()

	return cfg, nil
}

// loadPairs reads indexed TARGET_n_HANDLE / TARGET_n_KEYWORD /
// TARGET_n_MINT / TARGET_n_AMOUNT_SOL groups. Indexing starts at 1; a gap
// ends the scan. MINT may be empty for alert-only pairs.
func loadPairs() []domain.WatchedPair {
	var pairs []domain.WatchedPair
	for i := 1; i <= maxTargets; i++ {
		handle := envStr(fmt.Sprintf("TARGET_%d_HANDLE", i), "")
		if handle == "" {
			break
		}
		pairs = append(pairs, domain.WatchedPair{
			Handle:    strings.TrimPrefix(handle, "@"),
			Keyword:   envStr(fmt.Sprintf("TARGET_%d_KEYWORD", i), ""),
			Mint:      envStr(fmt.Sprintf("TARGET_%d_MINT", i), ""),
			AmountSOL: envFloat(fmt.Sprintf("TARGET_%d_AMOUNT_SOL", i), 0),
		})
	}
	return pairs
}

func (c *Config) Validate() error {
	var errs []string

	if c.TwitterAPIKey == "" {
		errs = append(errs, "TWITTER_API_KEY is required")
	}
	if len(c.Pairs) == 0 {
		errs = append(errs, "at least one TARGET_n_HANDLE is required")
	}

	trading := false
	for i, p := range c.Pairs {
		if p.Mint == "" {
			continue
		}
		trading = true
		if !validBase58Key(p.Mint) {
			errs = append(errs, fmt.Sprintf("TARGET_%d_MINT is not a valid mint address", i+1))
		}
		if p.AmountSOL <= 0 {
			errs = append(errs, fmt.Sprintf("TARGET_%d_AMOUNT_SOL must be positive", i+1))
		}
	}

	if trading {
		if c.WalletSecretKey == "" {
			errs = append(errs, "WALLET_SECRET_KEY is required when any target has a mint")
		} else if _, err := solana.KeypairFromBase58(c.WalletSecretKey); err != nil {
			errs = append(errs, fmt.Sprintf("WALLET_SECRET_KEY: %v", err))
		}
		if c.RelayEndpoint == "" {
			errs = append(errs, "RELAY_ENDPOINT is required when any target has a mint")
		}
		if c.TipAccount != "" {
			if err := solana.ValidatePublicKey(c.TipAccount); err != nil {
				errs = append(errs, fmt.Sprintf("TIP_ACCOUNT: %v", err))
			}
		}
	}

	if c.SlippageBps < 0 || c.SlippageBps > 10_000 {
		errs = append(errs, "SLIPPAGE_BPS must be between 0 and 10000")
	}
	if c.PollInterval <= 0 {
		errs = append(errs, "POLL_INTERVAL_MS must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

// validBase58Key accepts any 32-byte base58 key. Mints may be off-curve
// program-derived addresses, so no curve check here.
func validBase58Key(key string) bool {
	raw, err := base58.Decode(key)
	return err == nil && len(raw) == 32
}

// --- helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// envDuration reads an integer count of units; the caller supplies the unit.
func envDuration(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback))
}

// Package main runs the tweet sniper: it watches configured accounts for
// keyword-matching new posts and executes a token purchase through an
// MEV-protected relay when one lands.
package main

import (
	"context"
	"flag"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"tweet-sniper/internal/config"
	"tweet-sniper/internal/jupiter"
	"tweet-sniper/internal/notify"
	"tweet-sniper/internal/observability"
	"tweet-sniper/internal/relay"
	"tweet-sniper/internal/solana"
	"tweet-sniper/internal/storage"
	"tweet-sniper/internal/storage/memory"
	"tweet-sniper/internal/storage/migrations"
	pgstore "tweet-sniper/internal/storage/postgres"
	"tweet-sniper/internal/trade"
	"tweet-sniper/internal/twitter"
	"tweet-sniper/internal/watch"
)

func main() {
	jsonLogs := flag.Bool("json-logs", false, "Emit logs as JSON")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	logger := logrus.New()
	if *jsonLogs {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	if level, err := logrus.ParseLevel(*logLevel); err == nil {
		logger.SetLevel(level)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	events, results, cleanup, err := createStores(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.WithError(err).Fatal("create stores")
	}
	defer cleanup()

	source := twitter.NewClient(cfg.TwitterAPIBase, cfg.TwitterAPIKey)

	var executor watch.Executor
	if trading(cfg) {
		wallet, err := solana.KeypairFromBase58(cfg.WalletSecretKey)
		if err != nil {
			logger.WithError(err).Fatal("load wallet")
		}
		logger.WithField("wallet", wallet.PublicKey()).Info("wallet loaded")

		executor = trade.NewPipeline(trade.Config{
			Swaps:       jupiter.NewClient(cfg.JupiterBaseURL),
			RPC:         solana.NewHTTPClient(cfg.RPCEndpoint),
			Relay:       relay.NewSubmitter(cfg.RelayEndpoint, cfg.RelayAPIKey),
			Wallet:      wallet,
			SlippageBps: cfg.SlippageBps,
			TipLamports: cfg.TipLamports,
			TipAccount:  cfg.TipAccount,
			Logger:      logger,
		})
	}

	var notifier watch.Notifier
	if cfg.WebhookURL != "" {
		notifier = notify.NewSender(cfg.WebhookURL, "", logger)
	}

	scheduler := watch.New(watch.Options{
		Pairs:    cfg.Pairs,
		Source:   source,
		Executor: executor,
		Events:   events,
		Results:  results,
		Notifier: notifier,
		Interval: cfg.PollInterval,
		Deadline: cfg.Deadline,
		Logger:   logger,
	})

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			logger.WithField("addr", cfg.MetricsAddr).Info("metrics server listening")
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logger.WithError(err).Warn("metrics server stopped")
			}
		}()
	}

	logger.WithFields(logrus.Fields{
		"pairs":    len(cfg.Pairs),
		"interval": cfg.PollInterval,
		"deadline": cfg.Deadline,
	}).Info("starting monitoring")

	scheduler.Start(ctx)

	select {
	case <-scheduler.Done():
		status := scheduler.Status()
		logger.WithField("matched", status.Matched).Info("all pairs settled")
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		scheduler.Stop()
	}

	// Let in-flight purchases finish before exiting.
	scheduler.WaitPipelines()
	logger.Info("shutdown complete")
}

// trading reports whether any pair has a mint configured.
func trading(cfg *config.Config) bool {
	for _, p := range cfg.Pairs {
		if p.Mint != "" {
			return true
		}
	}
	return false
}

// createStores selects postgres when a DSN is configured, memory otherwise.
func createStores(ctx context.Context, dsn string, logger *logrus.Logger) (storage.MatchEventStore, storage.TradeResultStore, func(), error) {
	if dsn == "" {
		logger.Info("using in-memory stores")
		return memory.NewMatchEventStore(), memory.NewTradeResultStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, err
	}
	logger.Info("using postgres stores")
	return pgstore.NewMatchEventStore(pool), pgstore.NewTradeResultStore(pool), pool.Close, nil
}

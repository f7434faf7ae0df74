// Command clearingd is a minimal demo host for the clearing engine: it
// loads configuration, wires a handful of in-memory token adapters, and
// exposes the engine's Prometheus metrics over HTTP. It is not a network
// service in its own right — the engine's External Interfaces (section 6)
// are a Go API, not RPC — this binary exists only to give the metrics
// registry somewhere to be scraped from, the way the teacher's services
// expose a `/metrics` endpoint alongside their real work.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smith5mc/clearing-sub001/config"
	"github.com/smith5mc/clearing-sub001/engine"
	"github.com/smith5mc/clearing-sub001/native/settlement"
	"github.com/smith5mc/clearing-sub001/observability/logging"
	"github.com/smith5mc/clearing-sub001/token"
	tokenmemory "github.com/smith5mc/clearing-sub001/token/memory"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "clearing-data/config.toml", "path to clearingd configuration")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("CLEARING_ENV"))
	log := logging.Setup("clearingd", env)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log.Info("config loaded",
		"listenAddress", cfg.ListenAddress,
		logging.MaskField("dataDir", cfg.DataDir),
	)

	amountScale, ok := new(big.Int).SetString(cfg.AmountScale, 10)
	if !ok {
		return fmt.Errorf("config: AmountScale %q is not a base-10 integer", cfg.AmountScale)
	}

	eng := engine.New(settlement.Config{
		CycleIntervalSeconds: cfg.CycleIntervalSeconds,
		StakeRateBps:         cfg.StakeRateBps,
		MaxFailedCycles:      cfg.MaxFailedCycles,
	}, amountScale)

	if err := wireDemoTokens(eng); err != nil {
		return fmt.Errorf("wire demo tokens: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 1)
	go func() {
		log.Info("clearingd listening", "addr", cfg.ListenAddress)
		errs <- httpServer.ListenAndServe()
	}()

	select {
	case <-stopCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			_ = httpServer.Close()
			return err
		}
		return nil
	case err := <-errs:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

// wireDemoTokens registers a small fixed set of in-memory fungible and
// non-fungible adapters so the binary is runnable out of the box. A
// production deployment replaces these with real ledger/asset-registry
// adapters behind the same token.Adapter interface (spec section 1:
// persistence and settlement-instrument custody are external
// collaborators).
func wireDemoTokens(eng *engine.Engine) error {
	for _, id := range []string{"USD1", "USD2"} {
		if err := eng.RegisterToken(id, token.NewFungible(tokenmemory.NewLedger())); err != nil {
			return err
		}
	}
	return eng.RegisterToken("DEMO-ASSET", token.NewNonFungible(tokenmemory.NewAssetRegistry("ENGINE")))
}

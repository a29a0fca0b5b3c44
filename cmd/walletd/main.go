// main.go - Wallet node daemon.
//
// The daemon loads (or creates) the identity ledger, compiles the transition
// circuit and sets up or loads the Groth16 keys, then serves the submission
// API. Blobs are validated on the fast path and proved in the background;
// a proving-path journal that diverges from the fast path invalidates the
// tentative acceptance.
//
// Usage:
//   walletd -config walletd.yaml

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"walletd/internal/harness"
	"walletd/internal/identity"
	"walletd/internal/node"
)

const version = "0.3.0"

func main() {
	configPath := flag.String("config", "walletd.yaml", "path to the configuration file")
	listenAddr := flag.String("listen", "", "listen address override")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := NewLogger(cfg.LogLevel, cfg.LogFormat)
	log.Info().Str("version", version).Str("config", *configPath).Msg("walletd starting")

	if err := os.MkdirAll(filepath.Dir(cfg.LedgerPath), 0755); err != nil {
		log.Fatal().Err(err).Msg("ledger directory creation failed")
	}

	// Load or create the ledger
	var ledger *identity.Ledger
	if l, err := identity.LoadLedgerFromFile(cfg.LedgerPath); err == nil {
		ledger = l
		log.Info().Int("accounts", len(ledger.Accounts)).Msg("ledger loaded")
	} else {
		ledger = identity.NewLedger()
		log.Info().Msg("starting with an empty ledger")
	}

	// Compile the circuit and set up or load the Groth16 keys. First-run
	// setup takes a while on BW6-761; subsequent starts load from disk.
	var worker *node.ProverWorker
	if cfg.ProverEnabled {
		if err := os.MkdirAll(filepath.Dir(cfg.ProvingKeyPath), 0755); err != nil {
			log.Fatal().Err(err).Msg("key directory creation failed")
		}
		prover, err := harness.NewProver(cfg.ProvingKeyPath, cfg.VerifyKeyPath)
		if err != nil {
			log.Fatal().Err(err).Msg("prover setup failed")
		}
		worker = node.NewProverWorker(log.With().Str("component", "prover").Logger(), prover, cfg.ProverQueueSize)
		worker.Start()
		log.Info().Msg("background prover running")
	} else {
		log.Warn().Msg("prover disabled, accepted blobs stay unproven")
	}

	server := node.NewServer(log, node.Config{
		LedgerPath: cfg.LedgerPath,
		RateRPS:    cfg.RateRPS,
		RateBurst:  cfg.RateBurst,
		Version:    version,
	}, ledger, worker)

	server.Health().RegisterProbe("ledger", func() error {
		_, err := os.Stat(cfg.LedgerPath)
		if os.IsNotExist(err) {
			// Not yet checkpointed; the in-memory ledger is authoritative.
			return nil
		}
		return err
	})
	if cfg.ProverEnabled {
		server.Health().RegisterProbe("proving_keys", func() error {
			if _, err := os.Stat(cfg.ProvingKeyPath); err != nil {
				return err
			}
			_, err := os.Stat(cfg.VerifyKeyPath)
			return err
		})
	}

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("listening")
		errCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server failed")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutS)*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	if worker != nil {
		worker.Stop()
	}
	if err := ledger.SaveToFile(cfg.LedgerPath); err != nil {
		log.Error().Err(err).Msg("final ledger checkpoint failed")
	}
	log.Info().Msg("walletd stopped")
}

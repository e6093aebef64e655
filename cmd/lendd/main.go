package main

import (
	"flag"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"lendledger/config"
	"lendledger/core"
	"lendledger/crypto"
	"lendledger/observability/logging"
	"lendledger/rpc"
	"lendledger/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	memory := flag.Bool("memory", false, "Run against an in-memory store (state is lost on exit)")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("LENDLEDGER_ENV"))
	logger := logging.Setup("lendd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	trustedOracle, err := cfg.OracleAddress()
	if err != nil {
		logger.Error("failed to decode trusted oracle", slog.Any("error", err))
		os.Exit(1)
	}
	if trustedOracle.IsZero() {
		logger.Warn("no trusted oracle configured; score and whitelist writes will be rejected")
	}

	var db storage.Database
	if *memory {
		db = storage.NewMemDB()
	} else {
		ldb, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "ledger"))
		if err != nil {
			logger.Error("failed to open database", slog.Any("error", err))
			os.Exit(1)
		}
		db = ldb
	}
	defer db.Close()

	ledger := core.NewLedger(db, trustedOracle)
	if err := applyBootstrapMints(ledger, cfg, logger); err != nil {
		logger.Error("bootstrap mint failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("ledger ready",
		slog.String("vault", ledger.VaultAddress().String()),
		slog.String("oracle", cfg.TrustedOracle),
	)
	server := rpc.NewServer(ledger, logger)
	if err := server.Start(cfg.ListenAddress); err != nil {
		logger.Error("http server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// applyBootstrapMints seeds token balances once: a mint only runs while the
// loan ledger is still empty, so restarting a persistent node does not
// inflate supply.
func applyBootstrapMints(ledger *core.Ledger, cfg *config.Config, logger *slog.Logger) error {
	if len(cfg.BootstrapMints) == 0 {
		return nil
	}
	next, err := ledger.NextLoanID()
	if err != nil {
		return err
	}
	if next != 1 {
		return nil
	}
	for _, mint := range cfg.BootstrapMints {
		addr, err := crypto.DecodeAddress(strings.TrimSpace(mint.Address))
		if err != nil {
			return err
		}
		amount, ok := new(big.Int).SetString(strings.TrimSpace(mint.Amount), 10)
		if !ok {
			logger.Warn("skipping bootstrap mint with invalid amount",
				slog.String("token", mint.Token), slog.String("amount", mint.Amount))
			continue
		}
		if err := ledger.MintToken(mint.Token, addr, amount); err != nil {
			return err
		}
		logger.Info("bootstrap mint applied",
			slog.String("token", mint.Token),
			slog.String("address", addr.String()),
			slog.String("amount", amount.String()),
		)
	}
	return nil
}

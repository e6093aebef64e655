// riskoracled runs one scoring round as the trusted oracle: fetch prices
// (falling back to the configured fixed pair), invoke the risk model and
// submit the resulting score to the ledger node over HTTP.
package main

import (
	"context"
	"flag"
	"log/slog"
	"math/big"
	"os"
	"strings"
	"time"

	"lendledger/config"
	"lendledger/crypto"
	"lendledger/observability/logging"
	"lendledger/services/riskoracle"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	borrowerFlag := flag.String("borrower", "", "Borrower address to score")
	principalFlag := flag.String("principal", "", "Requested principal")
	tenureFlag := flag.Uint64("tenure", 12, "Loan tenure in time units")
	collateralFlag := flag.String("collateral", "", "Collateral amount")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("LENDLEDGER_ENV"))
	logger := logging.Setup("riskoracled", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	identity, err := cfg.OracleAddress()
	if err != nil || identity.IsZero() {
		logger.Error("trusted oracle identity required", slog.Any("error", err))
		os.Exit(1)
	}
	borrower, err := crypto.DecodeAddress(strings.TrimSpace(*borrowerFlag))
	if err != nil {
		logger.Error("invalid borrower address", slog.Any("error", err))
		os.Exit(1)
	}
	principal, ok := new(big.Int).SetString(strings.TrimSpace(*principalFlag), 10)
	if !ok {
		logger.Error("invalid principal", slog.String("value", *principalFlag))
		os.Exit(1)
	}
	collateral, ok := new(big.Int).SetString(strings.TrimSpace(*collateralFlag), 10)
	if !ok {
		logger.Error("invalid collateral", slog.String("value", *collateralFlag))
		os.Exit(1)
	}

	var primary riskoracle.PriceSource
	if strings.TrimSpace(cfg.PriceFeedURL) != "" {
		primary = riskoracle.NewHTTPPriceSource(cfg.PriceFeedURL)
	}
	prices := riskoracle.NewFallbackPriceSource(primary, riskoracle.PricePair{
		USD: cfg.FallbackUSD,
		INR: cfg.FallbackINR,
	}, logger)

	scorer, err := riskoracle.NewExecScorer(cfg.ScorerCommand)
	if err != nil {
		logger.Error("scorer not configured", slog.Any("error", err))
		os.Exit(1)
	}

	service := riskoracle.NewService(riskoracle.NewClient(cfg.NodeURL), identity, prices, scorer, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	assessment, err := service.ScoreAndSubmit(ctx, riskoracle.Request{
		Borrower:         borrower,
		Principal:        principal,
		Tenure:           *tenureFlag,
		CollateralAmount: collateral,
	})
	if err != nil {
		logger.Error("scoring round failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("scoring round complete",
		slog.Int("score", assessment.Score),
		slog.String("decision", assessment.Decision),
	)
}

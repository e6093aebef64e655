// Package riskoracle implements the oracle collaborator: it obtains price
// quotes (with a fixed fallback), runs the injected risk-model strategy and
// submits the resulting score to the ledger under the trusted oracle
// identity. The ledger core never sees how a score was produced, nor any
// price-feed failure.
package riskoracle

import (
	"context"
	"fmt"
	"log/slog"

	"lendledger/crypto"
)

// ScoreWriter is the ledger-side write path for scores. Implemented by
// core.Ledger directly and by the HTTP client when the oracle runs out of
// process.
type ScoreWriter interface {
	SetRiskScore(caller, borrower crypto.Address, score uint64) error
}

// Service glues prices, scorer and the registry write path together.
type Service struct {
	writer   ScoreWriter
	identity crypto.Address
	prices   PriceSource
	scorer   Scorer
	log      *slog.Logger
}

// NewService builds the collaborator. identity must be the trusted oracle
// account configured on the ledger, or every submission will be rejected.
func NewService(writer ScoreWriter, identity crypto.Address, prices PriceSource, scorer Scorer, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{writer: writer, identity: identity, prices: prices, scorer: scorer, log: log}
}

// ScoreAndSubmit runs one assessment round for a borrower and writes the
// score through the oracle gate. The returned assessment carries the decision
// band and explanation for presentation.
func (s *Service) ScoreAndSubmit(ctx context.Context, req Request) (Assessment, error) {
	if s.writer == nil || s.prices == nil || s.scorer == nil {
		return Assessment{}, fmt.Errorf("risk oracle: service not fully configured")
	}
	pair, err := s.prices.Quote(ctx)
	if err != nil {
		return Assessment{}, fmt.Errorf("risk oracle: quote: %w", err)
	}
	req.Prices = pair

	assessment, err := s.scorer.Score(ctx, req)
	if err != nil {
		return Assessment{}, fmt.Errorf("risk oracle: score: %w", err)
	}
	score := assessment.Score
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	if err := s.writer.SetRiskScore(s.identity, req.Borrower, uint64(score)); err != nil {
		return Assessment{}, fmt.Errorf("risk oracle: submit: %w", err)
	}
	s.log.Info("risk score submitted",
		slog.String("borrower", req.Borrower.String()),
		slog.Int("score", score),
		slog.String("decision", assessment.Decision),
	)
	return assessment, nil
}

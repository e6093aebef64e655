package riskoracle

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"lendledger/crypto"
)

func makeAddress(fill byte) crypto.Address {
	buf := make([]byte, 20)
	for i := range buf {
		buf[i] = fill
	}
	return crypto.NewAddress(crypto.LedgerPrefix, buf)
}

type stubScorer struct {
	assessment Assessment
	err        error
	lastReq    Request
}

func (s *stubScorer) Score(_ context.Context, req Request) (Assessment, error) {
	s.lastReq = req
	return s.assessment, s.err
}

type stubWriter struct {
	caller   crypto.Address
	borrower crypto.Address
	score    uint64
	calls    int
	err      error
}

func (w *stubWriter) SetRiskScore(caller, borrower crypto.Address, score uint64) error {
	w.caller, w.borrower, w.score = caller, borrower, score
	w.calls++
	return w.err
}

func TestDecisionBands(t *testing.T) {
	require.Equal(t, DecisionApprove, DecisionForScore(70))
	require.Equal(t, DecisionApprove, DecisionForScore(100))
	require.Equal(t, DecisionManualReview, DecisionForScore(69))
	require.Equal(t, DecisionManualReview, DecisionForScore(45))
	require.Equal(t, DecisionReject, DecisionForScore(44))
	require.Equal(t, DecisionReject, DecisionForScore(0))
}

func TestHTTPPriceSourceParsesQuotes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"usd": 1800.25, "inr": 150000.5}`))
	}))
	defer server.Close()

	pair, err := NewHTTPPriceSource(server.URL).Quote(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1800.25, pair.USD)
	require.Equal(t, 150000.5, pair.INR)
}

func TestFallbackPriceSourceSubstitutes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	fallback := PricePair{USD: 2000, INR: 165000}
	source := NewFallbackPriceSource(NewHTTPPriceSource(server.URL), fallback, nil)
	pair, err := source.Quote(context.Background())
	require.NoError(t, err)
	require.Equal(t, fallback, pair)
}

func TestScoreAndSubmitWritesThroughGate(t *testing.T) {
	oracleID := makeAddress(0xAA)
	borrower := makeAddress(0x0B)
	scorer := &stubScorer{assessment: Assessment{Score: 82, Decision: DecisionApprove}}
	writer := &stubWriter{}
	prices := NewFallbackPriceSource(nil, PricePair{USD: 2000, INR: 165000}, nil)

	svc := NewService(writer, oracleID, prices, scorer, nil)
	assessment, err := svc.ScoreAndSubmit(context.Background(), Request{
		Borrower:         borrower,
		Principal:        big.NewInt(10),
		Tenure:           12,
		CollateralAmount: big.NewInt(5),
	})
	require.NoError(t, err)
	require.Equal(t, 82, assessment.Score)
	require.Equal(t, 1, writer.calls)
	require.True(t, writer.caller.Equal(oracleID))
	require.True(t, writer.borrower.Equal(borrower))
	require.Equal(t, uint64(82), writer.score)
	// The scorer saw the fallback quotes.
	require.Equal(t, 2000.0, scorer.lastReq.Prices.USD)
}

func TestScoreAndSubmitClampsModelOutput(t *testing.T) {
	writer := &stubWriter{}
	scorer := &stubScorer{assessment: Assessment{Score: 140}}
	svc := NewService(writer, makeAddress(0xAA), NewFallbackPriceSource(nil, PricePair{USD: 1, INR: 1}, nil), scorer, nil)

	_, err := svc.ScoreAndSubmit(context.Background(), Request{
		Borrower:         makeAddress(0x0B),
		Principal:        big.NewInt(10),
		Tenure:           12,
		CollateralAmount: big.NewInt(5),
	})
	require.NoError(t, err)
	require.Equal(t, uint64(100), writer.score)
}

func TestScoreAndSubmitPropagatesScorerFailure(t *testing.T) {
	writer := &stubWriter{}
	scorer := &stubScorer{err: errors.New("model crashed")}
	svc := NewService(writer, makeAddress(0xAA), NewFallbackPriceSource(nil, PricePair{USD: 1, INR: 1}, nil), scorer, nil)

	_, err := svc.ScoreAndSubmit(context.Background(), Request{
		Borrower:         makeAddress(0x0B),
		Principal:        big.NewInt(10),
		Tenure:           12,
		CollateralAmount: big.NewInt(5),
	})
	require.Error(t, err)
	require.Zero(t, writer.calls)
}

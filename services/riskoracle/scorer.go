package riskoracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os/exec"
	"strconv"

	"lendledger/crypto"
)

// Decision bands applied to the model score.
const (
	DecisionApprove      = "APPROVE"
	DecisionManualReview = "MANUAL_REVIEW"
	DecisionReject       = "REJECT"
)

// DecisionForScore maps a score onto the decision band the model reports:
// 70 and above approves, 45 and above routes to manual review, anything
// lower rejects.
func DecisionForScore(score int) string {
	switch {
	case score >= 70:
		return DecisionApprove
	case score >= 45:
		return DecisionManualReview
	default:
		return DecisionReject
	}
}

// Request carries the loan terms the risk model scores.
type Request struct {
	Borrower         crypto.Address
	Principal        *big.Int
	Tenure           uint64
	CollateralAmount *big.Int
	Prices           PricePair
}

// FeatureImpact is one entry of the model's explanation output.
type FeatureImpact struct {
	Feature string  `json:"feature"`
	Impact  float64 `json:"impact"`
}

// Assessment is the model verdict. The ledger consumes only Score; Decision
// and Explanation are presentation data passed through untouched.
type Assessment struct {
	Score       int             `json:"score"`
	Decision    string          `json:"decision"`
	Explanation []FeatureImpact `json:"explanation"`
}

// Scorer produces an assessment for a loan request. The strategy is injected
// so the service never depends on how the score is computed.
type Scorer interface {
	Score(ctx context.Context, req Request) (Assessment, error)
}

type scorerOutput struct {
	Score       int             `json:"score"`
	Decision    string          `json:"decision"`
	Explanation []FeatureImpact `json:"explanation"`
	Error       string          `json:"error"`
}

// ExecScorer invokes the external risk-model command, passing the request as
// positional arguments and reading one JSON document from stdout.
type ExecScorer struct {
	command string
	args    []string
}

// NewExecScorer builds a scorer around argv. The request fields are appended
// to the configured arguments at invocation time.
func NewExecScorer(argv []string) (*ExecScorer, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("exec scorer: command required")
	}
	return &ExecScorer{command: argv[0], args: append([]string(nil), argv[1:]...)}, nil
}

// Score implements the Scorer interface.
func (s *ExecScorer) Score(ctx context.Context, req Request) (Assessment, error) {
	if req.Principal == nil || req.CollateralAmount == nil {
		return Assessment{}, fmt.Errorf("exec scorer: principal and collateral required")
	}
	args := append([]string(nil), s.args...)
	args = append(args,
		req.Borrower.String(),
		req.Principal.String(),
		strconv.FormatUint(req.Tenure, 10),
		req.CollateralAmount.String(),
		strconv.FormatFloat(req.Prices.USD, 'f', -1, 64),
		strconv.FormatFloat(req.Prices.INR, 'f', -1, 64),
	)
	cmd := exec.CommandContext(ctx, s.command, args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return Assessment{}, fmt.Errorf("exec scorer: run %s: %w", s.command, err)
	}
	var out scorerOutput
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &out); err != nil {
		return Assessment{}, fmt.Errorf("exec scorer: decode output: %w", err)
	}
	if out.Error != "" {
		return Assessment{}, fmt.Errorf("exec scorer: model error: %s", out.Error)
	}
	assessment := Assessment{Score: out.Score, Decision: out.Decision, Explanation: out.Explanation}
	if assessment.Decision == "" {
		assessment.Decision = DecisionForScore(assessment.Score)
	}
	return assessment, nil
}

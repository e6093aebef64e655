// Package rpc exposes the ledger operations over a small JSON HTTP surface.
// It is a thin adapter: request decoding, caller identity parsing and error
// mapping live here, every rule lives in the ledger.
package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"lendledger/core"
	"lendledger/crypto"
	"lendledger/native/loan"
	"lendledger/native/oracle"
	"lendledger/native/vault"
)

// Server routes HTTP requests into the ledger.
type Server struct {
	ledger *core.Ledger
	log    *slog.Logger
}

// NewServer builds the HTTP surface over the given ledger.
func NewServer(ledger *core.Ledger, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{ledger: ledger, log: log}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Post("/v1/risk/score", s.handleSetScore)
	r.Get("/v1/risk/score/{address}", s.handleGetScore)
	r.Post("/v1/collateral/tokens", s.handleAddCollateralToken)
	r.Get("/v1/collateral/tokens/{token}", s.handleCollateralSupported)
	r.Post("/v1/loans", s.handleApply)
	r.Post("/v1/loans/{id}/repay", s.handleRepay)
	r.Get("/v1/loans/{id}", s.handleGetLoan)
	return r
}

// Start serves the API on addr, blocking until the listener fails.
func (s *Server) Start(addr string) error {
	s.log.Info("starting HTTP server", slog.String("addr", addr))
	return http.ListenAndServe(addr, s.Handler())
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("encode response", slog.Any("error", err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, oracle.ErrUnauthorized), errors.Is(err, loan.ErrNotBorrower):
		status = http.StatusForbidden
	case errors.Is(err, loan.ErrLoanNotFound):
		status = http.StatusNotFound
	case errors.Is(err, loan.ErrAlreadyRepaid):
		status = http.StatusConflict
	case errors.Is(err, oracle.ErrInvalidScore),
		errors.Is(err, loan.ErrNotScored),
		errors.Is(err, vault.ErrCollateralMismatch),
		errors.Is(err, vault.ErrUnsupportedCollateral),
		errors.Is(err, vault.ErrUnexpectedNativeValue),
		errors.Is(err, vault.ErrTransferFailed):
		status = http.StatusUnprocessableEntity
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeAddressField(value, field string) (crypto.Address, error) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return crypto.Address{}, badRequestf("%s: %v", field, err)
	}
	return addr, nil
}

func badRequestf(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

type badRequestError struct{ msg string }

func (e *badRequestError) Error() string { return e.msg }

func parseAmount(value, field string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, badRequestf("%s: amount required", field)
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, badRequestf("%s: invalid amount %q", field, trimmed)
	}
	return amount, nil
}

// --- risk handlers ---

type setScoreParams struct {
	Caller   string `json:"caller"`
	Borrower string `json:"borrower"`
	Score    uint64 `json:"score"`
}

func (s *Server) handleSetScore(w http.ResponseWriter, r *http.Request) {
	var params setScoreParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		s.writeError(w, badRequestf("decode request: %v", err))
		return
	}
	caller, err := decodeAddressField(params.Caller, "caller")
	if err != nil {
		s.writeError(w, err)
		return
	}
	borrower, err := decodeAddressField(params.Borrower, "borrower")
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.ledger.SetRiskScore(caller, borrower, params.Score); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"borrower": borrower.String(), "score": params.Score})
}

func (s *Server) handleGetScore(w http.ResponseWriter, r *http.Request) {
	borrower, err := decodeAddressField(chi.URLParam(r, "address"), "address")
	if err != nil {
		s.writeError(w, err)
		return
	}
	score, present, err := s.ledger.RiskScore(borrower)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"score": score, "present": present})
}

// --- collateral handlers ---

type addCollateralParams struct {
	Caller string `json:"caller"`
	Token  string `json:"token"`
}

func (s *Server) handleAddCollateralToken(w http.ResponseWriter, r *http.Request) {
	var params addCollateralParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		s.writeError(w, badRequestf("decode request: %v", err))
		return
	}
	caller, err := decodeAddressField(params.Caller, "caller")
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.ledger.AddCollateralToken(caller, params.Token); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"token": strings.ToUpper(strings.TrimSpace(params.Token))})
}

func (s *Server) handleCollateralSupported(w http.ResponseWriter, r *http.Request) {
	supported, err := s.ledger.CollateralSupported(chi.URLParam(r, "token"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"supported": supported})
}

// --- loan handlers ---

type applyParams struct {
	Borrower         string `json:"borrower"`
	Principal        string `json:"principal"`
	Tenure           uint64 `json:"tenure"`
	CollateralAmount string `json:"collateralAmount"`
	CollateralKind   string `json:"collateralKind"`
	CollateralToken  string `json:"collateralToken,omitempty"`
	NativeValueSent  string `json:"nativeValueSent,omitempty"`
}

type loanView struct {
	ID               uint64 `json:"loanId"`
	Borrower         string `json:"borrower"`
	Principal        string `json:"principal"`
	InterestRate     uint64 `json:"interestRate"`
	Tenure           uint64 `json:"tenure"`
	CollateralAmount string `json:"collateralAmount"`
	CollateralKind   string `json:"collateralKind"`
	Repaid           bool   `json:"repaid"`
}

func viewOf(l *loan.Loan) loanView {
	view := loanView{
		ID:             l.ID,
		Borrower:       l.Borrower.String(),
		InterestRate:   l.InterestRate,
		Tenure:         l.Tenure,
		CollateralKind: l.CollateralKind.String(),
		Repaid:         l.Repaid,
	}
	if l.Principal != nil {
		view.Principal = l.Principal.String()
	}
	if l.CollateralAmount != nil {
		view.CollateralAmount = l.CollateralAmount.String()
	}
	return view
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	var params applyParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		s.writeError(w, badRequestf("decode request: %v", err))
		return
	}
	borrower, err := decodeAddressField(params.Borrower, "borrower")
	if err != nil {
		s.writeError(w, err)
		return
	}
	principal, err := parseAmount(params.Principal, "principal")
	if err != nil {
		s.writeError(w, err)
		return
	}
	collateralAmount, err := parseAmount(params.CollateralAmount, "collateralAmount")
	if err != nil {
		s.writeError(w, err)
		return
	}
	var kind vault.CollateralKind
	switch strings.ToLower(strings.TrimSpace(params.CollateralKind)) {
	case "native":
		kind = vault.NativeCollateral()
	case "token":
		if strings.TrimSpace(params.CollateralToken) == "" {
			s.writeError(w, badRequestf("collateralToken required for token kind"))
			return
		}
		kind = vault.TokenCollateral(params.CollateralToken)
	default:
		s.writeError(w, badRequestf("collateralKind must be native or token"))
		return
	}
	var valueSent *big.Int
	if strings.TrimSpace(params.NativeValueSent) != "" {
		valueSent, err = parseAmount(params.NativeValueSent, "nativeValueSent")
		if err != nil {
			s.writeError(w, err)
			return
		}
	}
	record, err := s.ledger.ApplyForLoan(borrower, principal, params.Tenure, collateralAmount, kind, valueSent)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, viewOf(record))
}

type repayParams struct {
	Caller string `json:"caller"`
}

func (s *Server) handleRepay(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, badRequestf("loan id: %v", err))
		return
	}
	var params repayParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		s.writeError(w, badRequestf("decode request: %v", err))
		return
	}
	caller, err := decodeAddressField(params.Caller, "caller")
	if err != nil {
		s.writeError(w, err)
		return
	}
	record, err := s.ledger.MarkRepaid(caller, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, viewOf(record))
}

func (s *Server) handleGetLoan(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, badRequestf("loan id: %v", err))
		return
	}
	record, ok, err := s.ledger.Loan(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !ok {
		s.writeError(w, loan.ErrLoanNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, viewOf(record))
}

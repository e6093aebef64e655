package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"lendledger/core"
	"lendledger/crypto"
	"lendledger/storage"
)

func makeAddress(fill byte) crypto.Address {
	buf := make([]byte, 20)
	for i := range buf {
		buf[i] = fill
	}
	return crypto.NewAddress(crypto.LedgerPrefix, buf)
}

func newTestServer(t *testing.T) (*httptest.Server, crypto.Address) {
	t.Helper()
	trusted := makeAddress(0xAA)
	ledger := core.NewLedger(storage.NewMemDB(), trusted)
	server := httptest.NewServer(NewServer(ledger, nil).Handler())
	t.Cleanup(server.Close)
	return server, trusted
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func TestScoreAndApplyOverHTTP(t *testing.T) {
	server, trusted := newTestServer(t)
	borrower := makeAddress(0x0B)

	resp := postJSON(t, server.URL+"/v1/risk/score", map[string]any{
		"caller":   trusted.String(),
		"borrower": borrower.String(),
		"score":    50,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, server.URL+"/v1/loans", map[string]any{
		"borrower":         borrower.String(),
		"principal":        "10",
		"tenure":           12,
		"collateralAmount": "5",
		"collateralKind":   "native",
		"nativeValueSent":  "5",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view struct {
		ID           uint64 `json:"loanId"`
		InterestRate uint64 `json:"interestRate"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	resp.Body.Close()
	require.Equal(t, uint64(1), view.ID)
	require.Equal(t, uint64(2), view.InterestRate)

	getResp, err := http.Get(fmt.Sprintf("%s/v1/loans/%d", server.URL, view.ID))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, getResp.StatusCode)
	getResp.Body.Close()
}

func TestUnauthorizedScoreMapsToForbidden(t *testing.T) {
	server, _ := newTestServer(t)
	intruder := makeAddress(0x01)
	borrower := makeAddress(0x0B)

	resp := postJSON(t, server.URL+"/v1/risk/score", map[string]any{
		"caller":   intruder.String(),
		"borrower": borrower.String(),
		"score":    50,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestUnscoredApplicationMapsToUnprocessable(t *testing.T) {
	server, _ := newTestServer(t)
	borrower := makeAddress(0x0B)

	resp := postJSON(t, server.URL+"/v1/loans", map[string]any{
		"borrower":         borrower.String(),
		"principal":        "10",
		"tenure":           12,
		"collateralAmount": "5",
		"collateralKind":   "native",
		"nativeValueSent":  "5",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestRepayFlowOverHTTP(t *testing.T) {
	server, trusted := newTestServer(t)
	borrower := makeAddress(0x0B)

	resp := postJSON(t, server.URL+"/v1/risk/score", map[string]any{
		"caller": trusted.String(), "borrower": borrower.String(), "score": 50,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, server.URL+"/v1/loans", map[string]any{
		"borrower": borrower.String(), "principal": "10", "tenure": 12,
		"collateralAmount": "5", "collateralKind": "native", "nativeValueSent": "5",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	repay := func() *http.Response {
		return postJSON(t, server.URL+"/v1/loans/1/repay", map[string]any{"caller": borrower.String()})
	}
	resp = repay()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = repay()
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, server.URL+"/v1/loans/99/repay", map[string]any{"caller": borrower.String()})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestUnknownLoanReturnsNotFound(t *testing.T) {
	server, _ := newTestServer(t)
	resp, err := http.Get(server.URL + "/v1/loans/7")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

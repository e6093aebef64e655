package riskoracle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lendledger/crypto"
)

// Client submits scores to a ledger node over its HTTP surface. It satisfies
// ScoreWriter so the service can run out of process from the node.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient builds a client for the node at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type setScoreRequest struct {
	Caller   string `json:"caller"`
	Borrower string `json:"borrower"`
	Score    uint64 `json:"score"`
}

// SetRiskScore implements the ScoreWriter interface.
func (c *Client) SetRiskScore(caller, borrower crypto.Address, score uint64) error {
	payload, err := json.Marshal(setScoreRequest{
		Caller:   caller.String(),
		Borrower: borrower.String(),
		Score:    score,
	})
	if err != nil {
		return fmt.Errorf("oracle client: encode: %w", err)
	}
	resp, err := c.client.Post(c.baseURL+"/v1/risk/score", "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("oracle client: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("oracle client: node rejected score: %d %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

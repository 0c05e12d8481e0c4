// Package chain submits document hashes to an external blockchain gateway
// so approvals carry a tamper-evident timestamp. Only the SHA-256 digest
// leaves the system; document content never does.
package chain

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Anchorer records a digest on an external ledger and returns the
// transaction reference.
type Anchorer interface {
	Anchor(ctx context.Context, documentID, digest string) (string, error)
}

// Disabled is an Anchorer for deployments without a configured gateway.
// Every Anchor call fails, which keeps documents pending rather than
// approving them without a ledger record.
type Disabled struct{}

func (Disabled) Anchor(context.Context, string, string) (string, error) {
	return "", fmt.Errorf("anchoring gateway is not configured")
}

// Client talks to the anchoring gateway over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient builds a gateway client. The default request timeout is 10s.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// HashDocument computes the hex-encoded SHA-256 digest of document content.
func HashDocument(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

type anchorRequest struct {
	DocumentID string `json:"document_id"`
	Digest     string `json:"digest"`
	Timestamp  string `json:"ts"`
}

type anchorResponse struct {
	TxID string `json:"tx_id"`
}

// Anchor submits the digest and returns the ledger transaction id.
func (c *Client) Anchor(ctx context.Context, documentID, digest string) (string, error) {
	payload := anchorRequest{
		DocumentID: documentID,
		Digest:     digest,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding anchor request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/anchors", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building anchor request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("POST %s/anchors: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("anchor gateway returned status %d", resp.StatusCode)
	}

	var out anchorResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding anchor response: %w", err)
	}
	if out.TxID == "" {
		return "", fmt.Errorf("anchor gateway returned empty tx id")
	}
	return out.TxID, nil
}

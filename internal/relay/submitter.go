// Package relay submits signed transactions through an MEV-protected
// forwarding endpoint instead of the public RPC.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

const defaultTimeout = 15 * time.Second

// Submitter sends serialized transactions to the relay endpoint.
type Submitter struct {
	endpoint  string
	apiKey    string
	client    *http.Client
	requestID atomic.Uint64
}

// Option configures a Submitter.
type Option func(*Submitter)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Submitter) {
		s.client = client
	}
}

// NewSubmitter creates a relay submitter. apiKey may be empty when the
// relay endpoint is unauthenticated.
func NewSubmitter(endpoint, apiKey string, opts ...Option) *Submitter {
	s := &Submitter{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("relay error %d: %s", e.Code, e.Message)
}

// SendTransaction forwards a base64-encoded signed transaction. Preflight
// simulation is skipped so the relay races the transaction immediately.
// Returns the signature the relay acknowledged. A JSON-RPC error in the
// body is a failure even when the HTTP status is 200: the transaction was
// not accepted and there is nothing to wait for.
func (s *Submitter) SendTransaction(ctx context.Context, txBase64 string) (string, error) {
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      s.requestID.Add(1),
		Method:  "sendTransaction",
		Params: []interface{}{
			txBase64,
			map[string]interface{}{
				"encoding":      "base64",
				"skipPreflight": true,
			},
			true,
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("x-api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if rpcResp.Error != nil {
		return "", rpcResp.Error
	}

	var signature string
	if rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, &signature); err != nil {
			return "", fmt.Errorf("unmarshal result: %w", err)
		}
	}
	if signature == "" {
		return "", fmt.Errorf("relay returned no signature")
	}

	return signature, nil
}

// Package jupiter implements the quote and swap-instruction provider client.
package jupiter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"tweet-sniper/internal/httputil"
)

// Default configuration values.
const (
	DefaultTimeout    = 10 * time.Second
	DefaultMaxRetries = 2
	DefaultRetryDelay = 250 * time.Millisecond
	DefaultMaxDelay   = 1 * time.Second
)

// Client talks to a Jupiter-style quote API.
type Client struct {
	baseURL string
	client  *http.Client
	retry   httputil.RetryConfig
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.client = hc }
}

// WithRetry sets the retry policy.
func WithRetry(cfg httputil.RetryConfig) ClientOption {
	return func(c *Client) { c.retry = cfg }
}

// NewClient creates a quote provider client for the given API base URL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: DefaultTimeout},
		retry: httputil.RetryConfig{
			MaxAttempts: DefaultMaxRetries,
			BaseDelay:   DefaultRetryDelay,
			MaxDelay:    DefaultMaxDelay,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetQuote requests a price quote converting amount minor units of inputMint
// into outputMint at the given slippage tolerance.
func (c *Client) GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*Quote, error) {
	if amount == 0 {
		return nil, fmt.Errorf("quote amount must be positive")
	}

	query := url.Values{
		"inputMint":   {inputMint},
		"outputMint":  {outputMint},
		"amount":      {strconv.FormatUint(amount, 10)},
		"slippageBps": {strconv.Itoa(slippageBps)},
	}
	endpoint := c.baseURL + "/quote?" + query.Encode()

	resp, err := httputil.Do(ctx, c.client, c.retry, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("quote request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read quote response: %w", err)
	}

	var parsed struct {
		OutAmount string `json:"outAmount"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode quote: %w", err)
	}
	if parsed.OutAmount == "" || parsed.OutAmount == "0" {
		return nil, fmt.Errorf("quote has no route for %s", outputMint)
	}

	return &Quote{
		InputMint:  inputMint,
		OutputMint: outputMint,
		Amount:     amount,
		OutAmount:  parsed.OutAmount,
		Raw:        raw,
	}, nil
}

// GetSwapInstructions requests the unsigned instruction set for a quote.
func (c *Client) GetSwapInstructions(ctx context.Context, quote *Quote, userPublicKey string) (*SwapInstructions, error) {
	if quote == nil || len(quote.Raw) == 0 {
		return nil, fmt.Errorf("missing quote")
	}

	body, err := json.Marshal(map[string]any{
		"quoteResponse":    json.RawMessage(quote.Raw),
		"userPublicKey":    userPublicKey,
		"wrapAndUnwrapSol": true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal swap-instructions request: %w", err)
	}

	endpoint := c.baseURL + "/swap-instructions"
	resp, err := httputil.Do(ctx, c.client, c.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("swap-instructions request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("swap-instructions returned status %d", resp.StatusCode)
	}

	var instructions SwapInstructions
	if err := json.NewDecoder(resp.Body).Decode(&instructions); err != nil {
		return nil, fmt.Errorf("decode swap-instructions: %w", err)
	}
	if instructions.SwapInstruction == nil {
		return nil, fmt.Errorf("swap-instructions response missing swap instruction")
	}

	return &instructions, nil
}

package bridge

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"propguard/internal/config"
	"propguard/internal/logger"
	"propguard/internal/pkg/circuit"
)

// Client wraps the MT5 bridge REST API. It is stateless apart from the
// circuit breaker; all calls carry the caller's context deadline.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	username   string
	password   string
	token      string
	breaker    *circuit.CircuitBreaker
}

// NewClient constructs a bridge client from configuration.
func NewClient(cfg config.BridgeConfig) (*Client, error) {
	raw := strings.TrimSpace(cfg.APIURL)
	if raw == "" {
		return nil, fmt.Errorf("bridge.api_url cannot be empty")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing bridge.api_url failed: %w", err)
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402
		} else {
			transport.TLSClientConfig.InsecureSkipVerify = true // #nosec G402
		}
	}
	httpClient := &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
	cooldown := time.Duration(cfg.BreakerCooldownSeconds) * time.Second
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	threshold := cfg.BreakerThreshold
	if threshold <= 0 {
		threshold = 5
	}
	return &Client{
		baseURL:    parsed,
		httpClient: httpClient,
		username:   strings.TrimSpace(cfg.Username),
		password:   strings.TrimSpace(cfg.Password),
		token:      strings.TrimSpace(cfg.APIToken),
		breaker:    circuit.NewCircuitBreaker("mt5-bridge", threshold, cooldown),
	}, nil
}

// SetHTTPClient sets the HTTP client for testing.
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// CheckBulk fetches live equity/balance for a batch of logins. The caller
// must correlate results by login; the bridge does not preserve order.
func (c *Client) CheckBulk(ctx context.Context, reqs []BulkCheckRequest) ([]BulkCheckResult, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	raw, err := c.doRequest(ctx, http.MethodPost, "/check-bulk", reqs)
	if err != nil {
		return nil, err
	}
	return parseBulkResults(raw)
}

// FetchTrades pulls the trade list for one login.
func (c *Client) FetchTrades(ctx context.Context, login int64) ([]RawTrade, error) {
	if login <= 0 {
		return nil, fmt.Errorf("login required")
	}
	raw, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/trades?login=%d", login), nil)
	if err != nil {
		return nil, err
	}
	return parseTrades(raw)
}

// DisableAccount instructs the bridge to block further trading on a login.
func (c *Client) DisableAccount(ctx context.Context, login int64) error {
	_, err := c.doRequest(ctx, http.MethodPost, "/disable", map[string]any{"login": login})
	return err
}

// ClosePositions instructs the bridge to flatten all open positions.
func (c *Client) ClosePositions(ctx context.Context, login int64) error {
	_, err := c.doRequest(ctx, http.MethodPost, "/close-positions", map[string]any{"login": login})
	return err
}

func (c *Client) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("bridge client not initialized")
	}
	if c.breaker != nil && !c.breaker.Allow() {
		return nil, ErrBreakerOpen
	}
	endpoint, err := c.resolveEndpoint(path)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshaling bridge request failed: %w", err)
		}
		logger.LogBridgeRequest(path, string(buf))
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return nil, fmt.Errorf("building bridge request failed: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	} else if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFailure()
		return nil, &TransportError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		c.recordFailure()
		return nil, &TransportError{Op: method + " " + path, Err: err}
	}
	if resp.StatusCode >= 300 {
		c.recordFailure()
		excerpt := strings.TrimSpace(string(data))
		if len(excerpt) > 4096 {
			excerpt = excerpt[:4096]
		}
		return nil, &TransportError{Op: method + " " + path, Status: resp.StatusCode, Body: excerpt}
	}
	c.recordSuccess()
	logger.LogBridgeResponse(path, string(data))
	return data, nil
}

func (c *Client) recordFailure() {
	if c.breaker != nil {
		c.breaker.RecordFailure()
	}
}

func (c *Client) recordSuccess() {
	if c.breaker != nil {
		c.breaker.RecordSuccess()
	}
}

func (c *Client) resolveEndpoint(path string) (*url.URL, error) {
	if c.baseURL == nil {
		return nil, fmt.Errorf("bridge API address not set")
	}
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		trimmed = "/"
	}
	query := ""
	if idx := strings.Index(trimmed, "?"); idx >= 0 {
		query = trimmed[idx+1:]
		trimmed = trimmed[:idx]
	}
	if trimmed == "" {
		trimmed = "/"
	}
	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}
	base := *c.baseURL
	base.Path = strings.TrimSuffix(base.Path, "/") + trimmed
	base.RawPath = ""
	base.RawQuery = query
	base.Fragment = ""
	return &base, nil
}

package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/snapwatch/worker/internal/adapters/circuitbreaker"
	"github.com/snapwatch/worker/internal/adapters/retry"
	"github.com/snapwatch/worker/internal/ports"
)

// DiscoveryTimeout bounds one request to the discovery service, which
// crawls the target domain before answering.
const DiscoveryTimeout = 60 * time.Second

// Client talks to the external page-discovery service.
type Client struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	retryConfig retry.BackoffConfig
	breaker     *circuitbreaker.CircuitBreaker
}

func NewClient(baseURL, apiKey string) *Client {
	baseURL = strings.TrimSuffix(baseURL, "/")

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DiscoveryTimeout,
		},
		retryConfig: retry.HTTPConfig(),
		breaker:     circuitbreaker.New(5, 30*time.Second),
	}
}

type discoverRequest struct {
	Domain   string `json:"domain"`
	MaxPages int    `json:"max_pages"`
}

type discoverResponse struct {
	Success    bool                   `json:"success"`
	Pages      []ports.DiscoveredPage `json:"pages"`
	TotalFound int                    `json:"total_found"`
	Error      string                 `json:"error,omitempty"`
}

// Discover asks the service for capture-worthy pages on the domain.
func (c *Client) Discover(ctx context.Context, domain string, maxPages int) ([]ports.DiscoveredPage, int, error) {
	if c.baseURL == "" {
		return nil, 0, errors.New("no discovery service configured")
	}

	body, err := json.Marshal(discoverRequest{Domain: domain, MaxPages: maxPages})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	var decoded discoverResponse
	err = c.breaker.Execute(func() error {
		ctx, cancel := context.WithTimeout(ctx, DiscoveryTimeout)
		defer cancel()
		return c.post(ctx, body, &decoded)
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
			return nil, 0, fmt.Errorf("discovery service unavailable: %w", err)
		}
		return nil, 0, err
	}

	return decoded.Pages, decoded.TotalFound, nil
}

func (c *Client) post(ctx context.Context, body []byte, out *discoverResponse) error {
	var respBody []byte

	err := retry.WithBackoffHTTP(ctx, c.retryConfig, func() (int, error) {
		httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/discover-pages", bytes.NewReader(body))
		if err != nil {
			return 0, fmt.Errorf("failed to create request: %w", err)
		}

		httpReq.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			log.Printf("[DiscoveryClient] request failed: url=%s/discover-pages, error=%v", c.baseURL, err)
			return 0, fmt.Errorf("failed to send request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			log.Printf("[DiscoveryClient] service error: status=%d, body=%s", resp.StatusCode, string(respBody))
			return resp.StatusCode, fmt.Errorf("service error: %s", resp.Status)
		}

		return resp.StatusCode, nil
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !out.Success {
		if out.Error != "" {
			return fmt.Errorf("discovery rejected: %s", out.Error)
		}
		return errors.New("discovery rejected without detail")
	}
	return nil
}

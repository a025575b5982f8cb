package generation

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
	"github.com/snapwatch/worker/internal/adapters/metrics"
	"github.com/snapwatch/worker/internal/adapters/retry"
	"github.com/snapwatch/worker/internal/domain"
	"github.com/snapwatch/worker/internal/domain/models"
	"github.com/snapwatch/worker/internal/ports"
)

// DefaultTimeout bounds one request to the generation service. LLM
// backed endpoints routinely take tens of seconds.
const DefaultTimeout = 120 * time.Second

// Client talks to the external script-generation service. Its answers
// are untrusted; callers validate them before persisting or returning.
type Client struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	retryConfig retry.BackoffConfig
	breaker     *circuitbreaker.CircuitBreaker
}

// NewClient creates a generation client. An empty baseURL produces a
// client whose calls fail with ErrGenerationUnavailable; a zero timeout
// falls back to DefaultTimeout.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	baseURL = strings.TrimSuffix(baseURL, "/")
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retryConfig: retry.HTTPConfig(),
		breaker:     circuitbreaker.New(5, 30*time.Second),
	}
}

// generationResponse is the service's answer envelope
type generationResponse struct {
	Success     bool   `json:"success"`
	Script      string `json:"script"`
	ScriptType  string `json:"script_type"`
	Explanation string `json:"explanation,omitempty"`
	Error       string `json:"error,omitempty"`
}

// endpointForKind maps a generation kind to the service route
func endpointForKind(kind string) (string, error) {
	switch kind {
	case ports.GenerationKindScript:
		return "/generate-script", nil
	case ports.GenerationKindTest:
		return "/generate-test", nil
	case ports.GenerationKindActionScript:
		return "/generate-action-script", nil
	case ports.GenerationKindActionTest:
		return "/generate-action-test", nil
	}
	return "", fmt.Errorf("unknown generation kind %q", kind)
}

// GenerateScript asks the service to produce a script for the request's
// kind. The circuit breaker keeps a flapping service from stalling
// captures; open-circuit and transport failures surface as
// ErrGenerationUnavailable and ErrGenerationFailed respectively.
func (c *Client) GenerateScript(ctx context.Context, req *ports.GenerateScriptRequest) (*ports.GeneratedScript, error) {
	if c.baseURL == "" {
		return nil, domain.NewDomainError(domain.ErrGenerationUnavailable, "no generation service configured")
	}

	endpoint, err := endpointForKind(req.Kind)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	start := time.Now()
	var out *ports.GeneratedScript
	err = c.breaker.Execute(func() error {
		ctx, cancel := context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()

		result, err := c.post(ctx, endpoint, body)
		if err != nil {
			return err
		}
		out = result
		return nil
	})
	metrics.GenerationDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(req.Kind, "error").Inc()
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
			return nil, fmt.Errorf("%w: %v", domain.ErrGenerationUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(req.Kind, "ok").Inc()
	return out, nil
}

func (c *Client) post(ctx context.Context, endpoint string, body []byte) (*ports.GeneratedScript, error) {
	var respBody []byte

	err := retry.WithBackoffHTTP(ctx, c.retryConfig, func() (int, error) {
		httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+endpoint, bytes.NewReader(body))
		if err != nil {
			return 0, fmt.Errorf("failed to create request: %w", err)
		}

		httpReq.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			log.Printf("[GenerationClient] request failed: url=%s%s, error=%v", c.baseURL, endpoint, err)
			return 0, fmt.Errorf("failed to send request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			log.Printf("[GenerationClient] service error: url=%s%s, status=%d, body=%s", c.baseURL, endpoint, resp.StatusCode, string(respBody))
			return resp.StatusCode, fmt.Errorf("service error: %s", resp.Status)
		}

		return resp.StatusCode, nil
	})
	if err != nil {
		return nil, err
	}

	var decoded generationResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if !decoded.Success {
		if decoded.Error != "" {
			return nil, fmt.Errorf("generation rejected: %s", decoded.Error)
		}
		return nil, fmt.Errorf("generation rejected without detail")
	}
	if decoded.Script == "" {
		return nil, fmt.Errorf("generation returned an empty script")
	}

	return &ports.GeneratedScript{
		Script:      decoded.Script,
		ScriptType:  normalizeScriptType(decoded.ScriptType),
		Explanation: decoded.Explanation,
	}, nil
}

// normalizeScriptType tolerates a missing or unexpected type from the
// service; anything that is not the action DSL is treated as eval.
func normalizeScriptType(raw string) models.ScriptType {
	if models.ScriptType(raw) == models.ScriptTypeActions {
		return models.ScriptTypeActions
	}
	return models.ScriptTypeEval
}

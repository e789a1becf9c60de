package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tyo-it/pulsa-bridge/pkg/errorsx"
	"github.com/tyo-it/pulsa-bridge/pkg/resilience"
)

const maxResponseBytes = 1 << 20

// APIError is a non-2xx answer from the gateway.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("gateway status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gateway status %d", e.StatusCode)
}

// Client talks to the recharge API. Calls go through a shared retry
// policy and circuit breaker; classified 4xx answers are never retried.
type Client struct {
	cfg     Config
	http    *http.Client
	retry   resilience.RetryPolicy
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		retry:   resilience.NewRetryPolicy(3, 200*time.Millisecond, 2*time.Second),
		breaker: resilience.NewCircuitBreaker(3, 30*time.Second),
		logger:  logger,
	}
}

// classifyStatus maps a gateway HTTP status to the error taxonomy.
func classifyStatus(status int) errorsx.ReasonCode {
	switch status {
	case http.StatusUnauthorized:
		return errorsx.ReasonGatewayAuth
	case http.StatusPaymentRequired:
		return errorsx.ReasonGatewayInsufficientBalance
	case http.StatusNotFound:
		return errorsx.ReasonGatewayNotFound
	case http.StatusConflict:
		return errorsx.ReasonGatewayDuplicateTransaction
	case http.StatusBadRequest:
		return errorsx.ReasonGatewayInvalidParams
	case http.StatusTooManyRequests:
		return errorsx.ReasonGatewayRateLimit
	default:
		return errorsx.ReasonGatewayUnavailable
	}
}

// do executes one JSON request against the gateway, with retries for
// transport failures and 5xx answers only.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	if !c.breaker.Allow() {
		return errorsx.New(errorsx.ReasonGatewayUnavailable, "gateway circuit open")
	}
	err := c.retry.Do(ctx, func() error {
		err := c.doOnce(ctx, method, path, payload, out)
		if err == nil {
			return nil
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
			// Classified client errors are final.
			return resilience.Permanent(errorsx.Wrap(err, classifyStatus(apiErr.StatusCode)))
		}
		return err
	})
	if err == nil {
		c.breaker.OnSuccess()
		return nil
	}
	reason := errorsx.Reason(err)
	if reason == errorsx.ReasonUnknown {
		err = errorsx.Wrap(err, errorsx.ReasonGatewayUnavailable)
		reason = errorsx.ReasonGatewayUnavailable
	}
	if reason == errorsx.ReasonGatewayUnavailable || reason == errorsx.ReasonGatewayRateLimit {
		c.breaker.OnFailure()
	}
	return err
}

func (c *Client) doOnce(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(payload); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = buf
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read gateway response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode gateway response: %w", err)
		}
	}
	return nil
}

func errorMessage(raw []byte) string {
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	return strings.TrimSpace(string(raw))
}

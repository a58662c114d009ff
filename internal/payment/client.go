package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vinylhouse/labelapi/internal/config"
	"github.com/vinylhouse/labelapi/internal/metrics"
	"github.com/vinylhouse/labelapi/pkg/errors"
)

const (
	serviceName     = "payment"
	baseBackoff     = 200 * time.Millisecond
	maxResponseSize = 1 << 20
)

// Client calls a Stripe-compatible checkout session API with the secret key
type Client struct {
	baseURL     string
	secretKey   string
	maxRetries  int
	baseBackoff time.Duration
	httpClient  *http.Client
	metrics     *metrics.Collector
	logger      *zap.Logger
}

// NewClient creates a payment authority HTTP client
func NewClient(cfg config.PaymentConfig, collector *metrics.Collector, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if collector == nil {
		collector = metrics.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		secretKey:   cfg.SecretKey,
		maxRetries:  cfg.MaxRetries,
		baseBackoff: baseBackoff,
		httpClient:  &http.Client{Timeout: timeout},
		metrics:     collector,
		logger:      logger,
	}
}

type sessionResponse struct {
	ID            string          `json:"id"`
	PaymentStatus string          `json:"payment_status"`
	PaymentIntent json.RawMessage `json:"payment_intent"`
}

// LookupSession fetches the checkout session. Transport failures, 429 and 5xx
// are retried up to maxRetries times with exponential backoff and jitter.
func (c *Client) LookupSession(ctx context.Context, sessionID string) (*Session, error) {
	if c.baseURL == "" || c.secretKey == "" {
		return nil, permanent(fmt.Errorf("payment client not configured: base URL and secret key required"))
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, permanent(fmt.Errorf("session id is required"))
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := c.backoff(ctx, attempt-1); err != nil {
				return nil, retryable(fmt.Errorf("lookup of session %s abandoned: %w", sessionID, err))
			}
		}

		session, err := c.lookupOnce(ctx, sessionID)
		if err == nil {
			return session, nil
		}
		lastErr = err
		if !errors.IsRetryable(err) {
			return nil, err
		}
		c.logger.Warn("Payment authority lookup failed, will retry",
			zap.String("session_id", sessionID),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", c.maxRetries),
			zap.Error(err),
		)
	}

	c.logger.Error("Payment authority lookup failed after retries",
		zap.String("session_id", sessionID),
		zap.Int("attempts", c.maxRetries+1),
		zap.Error(lastErr),
	)
	return nil, lastErr
}

func (c *Client) lookupOnce(ctx context.Context, sessionID string) (*Session, error) {
	endpoint := c.baseURL + "/v1/checkout/sessions/" + url.PathEscape(sessionID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, permanent(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordPaymentRequest(0, time.Since(start))
		return nil, retryable(err)
	}
	defer resp.Body.Close()
	c.metrics.RecordPaymentRequest(resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, retryable(fmt.Errorf("read response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, retryable(fmt.Errorf("payment authority returned %d: %s", resp.StatusCode, truncate(body)))
	case resp.StatusCode == http.StatusNotFound:
		return nil, permanent(fmt.Errorf("session %s not found at payment authority", sessionID))
	default:
		return nil, permanent(fmt.Errorf("payment authority returned %d: %s", resp.StatusCode, truncate(body)))
	}

	var parsed sessionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, permanent(fmt.Errorf("malformed session response: %w", err))
	}
	if strings.TrimSpace(parsed.PaymentStatus) == "" {
		return nil, permanent(fmt.Errorf("session response has no payment_status"))
	}

	return &Session{
		ID:              parsed.ID,
		PaymentStatus:   parsed.PaymentStatus,
		PaymentIntentID: paymentIntentID(parsed.PaymentIntent),
		Raw:             json.RawMessage(body),
	}, nil
}

func (c *Client) backoff(ctx context.Context, attempt int) error {
	exp := c.baseBackoff * time.Duration(1<<attempt)
	wait := exp
	if half := int64(exp / 2); half > 0 {
		wait += time.Duration(rand.Int63n(half))
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// payment_intent is either an id string, an expanded object or null
func paymentIntentID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}
	var expanded struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &expanded); err == nil {
		return expanded.ID
	}
	return ""
}

func truncate(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}

func retryable(err error) error {
	return &errors.ErrExternal{Service: serviceName, Retryable: true, Err: err}
}

func permanent(err error) error {
	return &errors.ErrExternal{Service: serviceName, Retryable: false, Err: err}
}

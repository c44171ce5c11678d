// AngelaMos | 2026
// client.go

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/gifty-app/gifty-api/internal/config"
)

const (
	defaultTimeout       = 10 * time.Second
	maxResponseBodyBytes = 1 << 20
	idempotenceHeader    = "Idempotence-Key"
)

// APIError is a non-2xx answer from the gateway.
type APIError struct {
	StatusCode  int
	Method      string
	Path        string
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf(
			"gateway %s %s: status=%d code=%s: %s",
			e.Method, e.Path, e.StatusCode, e.Code, e.Description,
		)
	}
	return fmt.Sprintf(
		"gateway %s %s: status=%d: %s",
		e.Method, e.Path, e.StatusCode, e.Description,
	)
}

type Client struct {
	baseURL    string
	shopID     string
	secretKey  string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the instrumented default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func NewClient(cfg config.PaymentConfig, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("gateway api url %q is not absolute", cfg.APIURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		baseURL:   base,
		shopID:    cfg.ShopID,
		secretKey: cfg.SecretKey,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// CreatePayment opens a payment intent. The same idempotence key always
// returns the same intent on the gateway side.
func (c *Client) CreatePayment(
	ctx context.Context,
	req CreatePaymentRequest,
	idempotenceKey string,
) (*Payment, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode payment request: %w", err)
	}

	var out Payment
	if err := c.do(ctx, http.MethodPost, "/payments", body, idempotenceKey, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (c *Client) GetPayment(ctx context.Context, id string) (*Payment, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("gateway: empty payment id")
	}

	var out Payment
	path := "/payments/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodGet, path, nil, "", &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (c *Client) do(
	ctx context.Context,
	method, path string,
	body []byte,
	idempotenceKey string,
	dst any,
) (err error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build gateway request %s %s: %w", method, path, err)
	}

	req.SetBasicAuth(c.shopID, c.secretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotenceKey != "" {
		req.Header.Set(idempotenceHeader, idempotenceKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway %s %s: %w", method, path, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close gateway response body: %w", closeErr)
		}
	}()

	limited := io.LimitReader(resp.Body, maxResponseBodyBytes)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
		}
		raw, _ := io.ReadAll(io.LimitReader(limited, 4096)) //nolint:errcheck // best-effort error body
		if jsonErr := json.Unmarshal(raw, apiErr); jsonErr != nil || apiErr.Description == "" {
			apiErr.Description = strings.TrimSpace(string(raw))
		}
		if apiErr.Description == "" {
			apiErr.Description = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if err := json.NewDecoder(limited).Decode(dst); err != nil {
		return fmt.Errorf("decode gateway response %s %s: %w", method, path, err)
	}

	return nil
}

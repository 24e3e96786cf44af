// Package sales wraps the sales API: checkout submission plus the tender
// and status reference data loaded at session start.
package sales

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wpranata/kasirpos/pkg/config"
	pkgerrors "github.com/wpranata/kasirpos/pkg/errors"
	"github.com/wpranata/kasirpos/pkg/logger"
	"github.com/wpranata/kasirpos/pkg/metrics"
)

var errLoggerRequired = errors.New("sales logger is required")

// Client exposes sales API calls with centralized auth, logging, and error
// mapping.
type Client struct {
	httpClient *http.Client
	baseURL    string
	authToken  string
	logger     *logger.Logger
	metrics    *metrics.EngineMetrics
}

// NewClient initializes the sales API wrapper.
func NewClient(cfg config.APIConfig, logg *logger.Logger, engineMetrics *metrics.EngineMetrics) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("sales base URL is required")
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		authToken:  strings.TrimSpace(cfg.AuthToken),
		logger:     logg,
		metrics:    engineMetrics,
	}, nil
}

// SubmitOrder posts the checkout payload and returns the server's order
// summary. Callers own the single-flight guard; this method issues exactly
// one request per call.
func (c *Client) SubmitOrder(ctx context.Context, payload CheckoutPayload) (*OrderSummary, error) {
	c.log(ctx, "request", "submit_order", map[string]any{
		"items":          len(payload.Items),
		"payment_amount": payload.PaymentAmount,
	})
	started := time.Now()

	var summary OrderSummary
	err := c.do(ctx, http.MethodPost, "/api/v1/sales/checkout", payload, &summary)
	c.metrics.ObserveRequestDuration("submit_order", time.Since(started))
	if err != nil {
		c.log(ctx, "error", "submit_order", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "submit_order", map[string]any{
		"order_id": summary.OrderID,
		"invoice":  summary.InvoiceNumber,
	})
	return &summary, nil
}

// PaymentMethods lists the selectable tender options.
func (c *Client) PaymentMethods(ctx context.Context) ([]PaymentMethod, error) {
	var methods []PaymentMethod
	started := time.Now()
	err := c.do(ctx, http.MethodGet, "/api/v1/sales/payment-methods", nil, &methods)
	c.metrics.ObserveRequestDuration("payment_methods", time.Since(started))
	if err != nil {
		c.log(ctx, "error", "payment_methods", map[string]any{"error": err.Error()})
		return nil, err
	}
	return methods, nil
}

// TransactionStatuses lists the selectable order statuses.
func (c *Client) TransactionStatuses(ctx context.Context) ([]TransactionStatus, error) {
	var statuses []TransactionStatus
	started := time.Now()
	err := c.do(ctx, http.MethodGet, "/api/v1/sales/transaction-statuses", nil, &statuses)
	c.metrics.ObserveRequestDuration("transaction_statuses", time.Since(started))
	if err != nil {
		c.log(ctx, "error", "transaction_statuses", map[string]any{"error": err.Error()})
		return nil, err
	}
	return statuses, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode sales request")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build sales request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNetwork, err, "sales request failed")
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNetwork, err, "decode sales response")
	}
	return nil
}

// statusError maps HTTP failures to domain codes, surfacing the server's
// message verbatim when it sends one.
func (c *Client) statusError(resp *http.Response) error {
	message := serverMessage(resp.Body)

	var code pkgerrors.Code
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		code = pkgerrors.CodeSessionExpired
	case http.StatusConflict, http.StatusUnprocessableEntity:
		code = pkgerrors.CodeConflict
	default:
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			code = pkgerrors.CodeValidation
		} else {
			code = pkgerrors.CodeNetwork
		}
	}

	if message == "" {
		message = fmt.Sprintf("sales API returned %d", resp.StatusCode)
	}
	return pkgerrors.New(code, message)
}

func serverMessage(body io.Reader) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = v
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Warn(ctx, fmt.Sprintf("sales %s", op))
	default:
		c.logger.Info(ctx, fmt.Sprintf("sales %s", phase))
	}
}

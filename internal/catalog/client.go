package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wpranata/kasirpos/pkg/config"
	pkgerrors "github.com/wpranata/kasirpos/pkg/errors"
	"github.com/wpranata/kasirpos/pkg/logger"
	"github.com/wpranata/kasirpos/pkg/metrics"
)

var errLoggerRequired = errors.New("catalog logger is required")

// Client exposes catalog lookups with centralized auth, logging, and error
// mapping.
type Client struct {
	httpClient *http.Client
	baseURL    string
	authToken  string
	logger     *logger.Logger
	metrics    *metrics.EngineMetrics
}

// NewClient initializes the catalog API wrapper.
func NewClient(cfg config.APIConfig, logg *logger.Logger, engineMetrics *metrics.EngineMetrics) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("catalog base URL is required")
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

// SearchByText resolves a free-text query to matching products, most
// relevant first, with live stock and price.
func (c *Client) SearchByText(ctx context.Context, query string, limit int) ([]Product, error) {
	params := url.Values{}
	params.Set("q", query)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	c.log(ctx, "request", "search_products", map[string]any{"query": query, "limit": limit})
	started := time.Now()

	var products []Product
	err := c.get(ctx, "/api/v1/products/search?"+params.Encode(), &products)
	c.metrics.ObserveRequestDuration("search_products", time.Since(started))
	if err != nil {
		c.log(ctx, "error", "search_products", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "search_products", map[string]any{"results": len(products)})
	return products, nil
}

// FindByBarcode resolves an exact barcode to a single product. A missing
// barcode maps to a not-found error and never touches search results.
func (c *Client) FindByBarcode(ctx context.Context, code string) (*Product, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "barcode is required")
	}

	c.log(ctx, "request", "find_by_barcode", map[string]any{"barcode": code})
	started := time.Now()

	var product Product
	err := c.get(ctx, "/api/v1/products/barcode/"+url.PathEscape(code), &product)
	c.metrics.ObserveRequestDuration("find_by_barcode", time.Since(started))
	if err != nil {
		c.log(ctx, "error", "find_by_barcode", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "find_by_barcode", map[string]any{"product_id": product.ID})
	return &product, nil
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build catalog request")
	}
	req.Header.Set("Accept", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNetwork, err, "catalog request failed")
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp.StatusCode, "catalog")
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNetwork, err, "decode catalog response")
	}
	return nil
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
		c.logger.Warn(ctx, fmt.Sprintf("catalog %s", op))
	default:
		c.logger.Debug(ctx, fmt.Sprintf("catalog %s", phase))
	}
}

func statusError(status int, api string) error {
	code := domainCodeForStatus(status)
	return pkgerrors.New(code, fmt.Sprintf("%s API returned %d", api, status))
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return pkgerrors.CodeSessionExpired
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return pkgerrors.CodeConflict
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodeNetwork
	}
}

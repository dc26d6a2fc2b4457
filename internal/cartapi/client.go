package cartapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/liabooks/cartsync/internal/catalog"
	pkgerrors "github.com/liabooks/cartsync/pkg/errors"
)

const (
	defaultBaseURL             = "http://localhost:3333/api"
	responseBodyReadLimit      = 1 << 20
	errorBodyReadLimit   int64 = 1024
)

// Credentials yields the bearer token for authenticated requests. Absent
// credentials keep the request anonymous; the caller decides whether that
// is acceptable for the operation.
type Credentials interface {
	BearerToken() (string, bool)
}

// Client wraps the storefront backend's cart and stock endpoints.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	credentials Credentials
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the backend API client.
func NewClient(credentials Credentials, opts ...Option) *Client {
	client := &Client{
		credentials: credentials,
		baseURL:     defaultBaseURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}

	return client
}

// addItemRequest is the wire shape the backend expects for cart additions.
type addItemRequest struct {
	StockID  int64 `json:"id_estoque"`
	Quantity int   `json:"quantidade"`
}

// FetchCart returns the raw server cart payload. The body is handed to the
// normalization layer untouched because the envelope varies by backend
// version.
func (c *Client) FetchCart(ctx context.Context) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, "cart", nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := c.checkStatus(resp, "fetch cart"); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeRemoteUnavailable, err, "read cart response")
	}
	return body, nil
}

// AddItem pushes one line addition to the server cart.
func (c *Client) AddItem(ctx context.Context, stockID int64, quantity int) error {
	if stockID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock id is required")
	}
	if quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	payload, err := json.Marshal(addItemRequest{StockID: stockID, Quantity: quantity})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal add item request")
	}

	resp, err := c.do(ctx, http.MethodPost, "cart/items", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusConflict {
		return stockConflictError(resp.Body)
	}
	return c.checkStatus(resp, "add cart item")
}

// ClearCart empties the server cart.
func (c *Client) ClearCart(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodDelete, "cart", nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	return c.checkStatus(resp, "clear cart")
}

// FetchStock returns the available quantity for a stock record.
func (c *Client) FetchStock(ctx context.Context, skuID int64) (int, error) {
	if skuID <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "stock id is required")
	}

	resp, err := c.do(ctx, http.MethodGet, "stock/"+strconv.FormatInt(skuID, 10), nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := c.checkStatus(resp, "fetch stock"); err != nil {
		return 0, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeRemoteUnavailable, err, "read stock response")
	}
	return catalog.ParseAvailability(body)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path), body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build "+method+" "+path+" request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.credentials != nil {
		if token, ok := c.credentials.BearerToken(); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeRemoteUnavailable, err, "execute "+method+" "+path+" request")
	}
	return resp, nil
}

func (c *Client) checkStatus(resp *http.Response, operation string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
	cause := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return pkgerrors.Wrap(pkgerrors.CodeAuthRequired, cause, operation+" rejected")
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return pkgerrors.Wrap(pkgerrors.CodeValidation, cause, operation+" rejected")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeRemoteUnavailable, cause, operation+" failed")
	}
}

// stockConflictError maps a 409 into the typed stock rejection, salvaging
// the available quantity from the body when the backend includes it.
func stockConflictError(body io.Reader) error {
	raw, _ := io.ReadAll(io.LimitReader(body, errorBodyReadLimit))
	available, err := catalog.ParseAvailability(raw)
	if err != nil {
		available = 0
	}
	return pkgerrors.StockInsufficient(available)
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}

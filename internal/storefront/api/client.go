package api

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

	"github.com/RaikyD/storefront-orders/internal/domain"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// APIError is a non-2xx answer from the order service.
type APIError struct {
	Status int
	Detail string
	Field  string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("order service returned %d", e.Status)
	}
	return fmt.Sprintf("order service returned %d: %s", e.Status, e.Detail)
}

// TransportError means the request never produced an HTTP answer.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "order service unreachable: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

type Client struct {
	base  string
	http  *http.Client
	token func() string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sets a bearer token source consulted on every request.
func WithToken(token func() string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, headers map[string]string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if t := c.token(); t != "" {
			req.Header.Set("Authorization", "Bearer "+t)
		}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &TransportError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// decodeError prefers the service's "error" text and falls back to "detail".
func decodeError(status int, raw []byte) error {
	var body struct {
		Error  string          `json:"error"`
		Detail json.RawMessage `json:"detail"`
		Field  string          `json:"field"`
	}
	e := &APIError{Status: status}
	if json.Unmarshal(raw, &body) != nil {
		return e
	}
	e.Field = body.Field
	e.Detail = body.Error
	if e.Detail == "" && len(body.Detail) > 0 {
		var s string
		if json.Unmarshal(body.Detail, &s) == nil {
			e.Detail = s
		}
	}
	return e
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == status
}

type CreateOrderRequest struct {
	Amount          int64                  `json:"amount"`
	Email           string                 `json:"email"`
	Items           []domain.Item          `json:"items"`
	ShippingAddress domain.ShippingAddress `json:"shipping_address"`
}

type CreateOrderResponse struct {
	OrderID   string `json:"order_id"`
	DBOrderID string `json:"db_order_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	KeyID     string `json:"key_id"`
}

func (c *Client) CreateOrder(ctx context.Context, idempotencyKey string, req CreateOrderRequest) (*CreateOrderResponse, error) {
	var headers map[string]string
	if idempotencyKey != "" {
		headers = map[string]string{"Idempotency-Key": idempotencyKey}
	}
	var out CreateOrderResponse
	if err := c.do(ctx, http.MethodPost, "/payment/create-order", headers, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type OrderMeta struct {
	DBOrderID string `json:"db_order_id"`
	Email     string `json:"email"`
	Amount    int64  `json:"amount"`
}

type VerifyRequest struct {
	GatewayOrderID   string    `json:"razorpay_order_id"`
	GatewayPaymentID string    `json:"razorpay_payment_id"`
	Signature        string    `json:"razorpay_signature"`
	Meta             OrderMeta `json:"order_meta"`
}

type VerifyResponse struct {
	Status  string `json:"status"`
	OrderID string `json:"order_id"`
}

func (c *Client) VerifyPayment(ctx context.Context, req VerifyRequest) (*VerifyResponse, error) {
	var out VerifyResponse
	if err := c.do(ctx, http.MethodPost, "/payment/verify", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListOrders(ctx context.Context) ([]domain.Order, error) {
	var out []domain.Order
	if err := c.do(ctx, http.MethodGet, "/admin/orders", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	var out domain.Order
	if err := c.do(ctx, http.MethodGet, "/admin/orders/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) TrackOrder(ctx context.Context, id string) (*domain.PublicStatus, error) {
	var out domain.PublicStatus
	if err := c.do(ctx, http.MethodGet, "/public/orders/track/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type StatusPatch struct {
	Status domain.Status `json:"status"`
	domain.TrackingPatch
}

func (c *Client) PatchOrderStatus(ctx context.Context, id string, patch StatusPatch) (*domain.Order, error) {
	var out domain.Order
	if err := c.do(ctx, http.MethodPatch, "/admin/orders/"+url.PathEscape(id)+"/status", nil, patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

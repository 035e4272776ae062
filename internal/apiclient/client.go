// Package apiclient talks to the back office API on behalf of the till.
package apiclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"bakery-pos/internal/logger"
	"bakery-pos/internal/models"
	"bakery-pos/internal/web"
)

// Error is a non-2xx API response
type Error struct {
	Status  int
	Message string
	Fields  map[string][]string
}

func (e *Error) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("api: %d %s %v", e.Status, e.Message, e.Fields)
	}
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// Unwrap maps the status to the matching models sentinel
func (e *Error) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return models.ErrNotFound
	case http.StatusUnauthorized:
		return models.ErrUnauthorized
	case http.StatusForbidden:
		return models.ErrForbidden
	case http.StatusConflict:
		return models.ErrConflict
	default:
		return nil
	}
}

// Client is a JSON client for the back office API
type Client struct {
	baseURL string
	http    *http.Client
	logger  *logger.Logger
}

// New returns a client for the API at baseURL, e.g. http://localhost:3000
func New(baseURL string, log *logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  log,
	}
}

// do sends body as JSON and decodes a 2xx response into out when out is
// not nil.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := logger.RequestIDFromContext(ctx); id != "" {
		req.Header.Set(web.RequestIDHeader, id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var body struct {
		Error  string              `json:"error"`
		Errors map[string][]string `json:"errors"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(raw))
	}
	if body.Error == "" {
		body.Error = http.StatusText(resp.StatusCode)
	}
	return &Error{Status: resp.StatusCode, Message: body.Error, Fields: body.Errors}
}

// Login exchanges an access code for the staff record
func (c *Client) Login(ctx context.Context, accessCode string) (*models.Staff, error) {
	var s models.Staff
	if err := c.do(ctx, http.MethodPost, "/login", models.LoginRequest{AccessCode: accessCode}, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Logout ends the staff member's session
func (c *Client) Logout(ctx context.Context, staffID int64) error {
	return c.do(ctx, http.MethodPost, "/logout", models.LogoutRequest{StaffID: staffID}, nil)
}

// MenuItems returns the whole catalog
func (c *Client) MenuItems(ctx context.Context) ([]models.MenuItem, error) {
	var items []models.MenuItem
	if err := c.do(ctx, http.MethodGet, "/menu-items", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// CreateOrder submits a paid order
func (c *Client) CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error) {
	var o models.Order
	if err := c.do(ctx, http.MethodPost, "/orders", req, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// Orders returns the order history of period
func (c *Client) Orders(ctx context.Context, period models.Period) ([]models.Order, error) {
	var orders []models.Order
	path := "/orders?" + url.Values{"period": {string(period)}}.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// Reconcile records the end of day cash count
func (c *Client) Reconcile(ctx context.Context, req *models.ReconciliationRequest) (*models.Reconciliation, error) {
	var rec models.Reconciliation
	if err := c.do(ctx, http.MethodPost, "/reconciliations", req, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// AppendAudit records a till side action. Failures are logged and never
// returned.
func (c *Client) AppendAudit(ctx context.Context, staffID int64, action, details string) {
	req := models.CreateAuditRequest{StaffID: staffID, Action: action, Details: details}
	err := c.do(ctx, http.MethodPost, "/audit-logs", req, nil)
	if err == nil {
		return
	}

	fields := map[string]interface{}{"staff_id": staffID, "audit_action": action, "error": err.Error()}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		fields["status"] = apiErr.Status
	}
	c.logger.Warn("audit_append_failed", "Audit log append failed", logger.RequestIDFromContext(ctx), fields)
}

// Package ntropy is a thin client for the Ntropy v3 REST API. Every
// operation maps one tool call onto exactly one HTTP request and normalizes
// the response: 2xx bodies are returned verbatim as decoded JSON, non-2xx
// responses become an Envelope value rather than a Go error. Only transport
// and encoding failures travel on the error channel.
package ntropy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultTimeout   = 15 * time.Second
	maxResponseBytes = 4 * 1024 * 1024
)

// Envelope is the uniform representation of a failed remote call. It is
// returned as data, not as an error: callers inspect Status to tell a
// success payload from a failure.
type Envelope struct {
	Status     string `json:"status"`
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Details    any    `json:"details"`
}

// Transaction carries the arguments for a single enrichment request.
// Identifier fields are already in canonical string form; see CoerceID.
type Transaction struct {
	ID              string
	Description     string
	Date            string
	Amount          float64
	EntryType       string
	Currency        string
	AccountHolderID string
	Country         string
}

// Config is the explicit configuration threaded into the client at
// construction time. The API key is never read from process-wide state.
type Config struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("ntropy API key is required")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("ntropy base URL is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid ntropy base URL: %w", err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}, nil
}

// CoerceID normalizes a scalar identifier to its canonical string form.
// JSON numbers arrive as float64; integral values format to their exact
// decimal representation ("42", not "42.000000").
func CoerceID(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}

// CheckConnection verifies that the configured API key is accepted by the
// remote service. The v3 API has no dedicated ping endpoint, so a minimal
// authenticated list request stands in for one.
func (c *Client) CheckConnection(ctx context.Context) (any, error) {
	q := url.Values{}
	q.Set("limit", "1")
	result, err := c.do(ctx, http.MethodGet, "/transactions", q, nil)
	if err != nil {
		return nil, err
	}
	if env, ok := result.(*Envelope); ok {
		return env, nil
	}
	return map[string]any{
		"status":  "ok",
		"message": "Successfully connected to the Ntropy API",
	}, nil
}

func (c *Client) CreateAccountHolder(ctx context.Context, id, holderType, name string) (any, error) {
	body := map[string]any{
		"id":   id,
		"type": holderType,
		"name": name,
	}
	return c.do(ctx, http.MethodPost, "/account_holders", nil, body)
}

func (c *Client) GetAccountHolder(ctx context.Context, accountHolderID string) (any, error) {
	return c.do(ctx, http.MethodGet, "/account_holders/"+url.PathEscape(accountHolderID), nil, nil)
}

func (c *Client) DeleteAccountHolder(ctx context.Context, accountHolderID string) (any, error) {
	return c.do(ctx, http.MethodDelete, "/account_holders/"+url.PathEscape(accountHolderID), nil, nil)
}

func (c *Client) EnrichTransaction(ctx context.Context, tx Transaction) (any, error) {
	body := map[string]any{
		"id":                tx.ID,
		"description":       tx.Description,
		"date":              tx.Date,
		"amount":            tx.Amount,
		"entry_type":        tx.EntryType,
		"currency":          tx.Currency,
		"account_holder_id": tx.AccountHolderID,
	}
	if tx.Country != "" {
		body["location"] = map[string]any{"country": tx.Country}
	}
	return c.do(ctx, http.MethodPost, "/transactions", nil, body)
}

// BulkEnrichTransactions submits a batch of raw transaction records. The
// records pass through untouched except that "id" and "account_holder_id",
// when present, are coerced to string form before the body is assembled.
// Per-item results inside the remote response are not inspected.
func (c *Client) BulkEnrichTransactions(ctx context.Context, transactions []map[string]any) (any, error) {
	records := make([]map[string]any, 0, len(transactions))
	for _, tx := range transactions {
		rec := make(map[string]any, len(tx))
		for k, v := range tx {
			rec[k] = v
		}
		if v, ok := rec["id"]; ok {
			rec["id"] = CoerceID(v)
		}
		if v, ok := rec["account_holder_id"]; ok {
			rec["account_holder_id"] = CoerceID(v)
		}
		records = append(records, rec)
	}
	body := map[string]any{"transactions": records}
	return c.do(ctx, http.MethodPost, "/transactions/bulk", nil, body)
}

func (c *Client) GetTransaction(ctx context.Context, transactionID string) (any, error) {
	return c.do(ctx, http.MethodGet, "/transactions/"+url.PathEscape(transactionID), nil, nil)
}

func (c *Client) DeleteTransaction(ctx context.Context, transactionID string) (any, error) {
	return c.do(ctx, http.MethodDelete, "/transactions/"+url.PathEscape(transactionID), nil, nil)
}

func (c *Client) ListTransactions(ctx context.Context, accountHolderID string, limit, offset int) (any, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	q := url.Values{}
	q.Set("account_holder_id", accountHolderID)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	return c.do(ctx, http.MethodGet, "/transactions", q, nil)
}

// do issues a single request and normalizes the response. Non-2xx statuses
// are recovered into an *Envelope and returned with a nil error; the error
// return is reserved for transport and encoding failures.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (any, error) {
	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal ntropy request: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("build ntropy request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ntropy request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read ntropy response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return errorEnvelope(resp.StatusCode, raw), nil
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}
	var result any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode ntropy response: %w", err)
	}
	return result, nil
}

func errorEnvelope(statusCode int, raw []byte) *Envelope {
	message := fmt.Sprintf("API request failed: %d %s", statusCode, http.StatusText(statusCode))
	var details any
	if err := json.Unmarshal(raw, &details); err != nil {
		details = map[string]any{"error": message}
	}
	return &Envelope{
		Status:     "error",
		StatusCode: statusCode,
		Message:    message,
		Details:    details,
	}
}

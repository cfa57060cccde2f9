package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/finbridge/ntropy-mcp-go/pkg/ntropy"
)

func newBackendClient(t *testing.T, handler http.HandlerFunc) (*ntropy.Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := ntropy.NewClient(ntropy.Config{
		BaseURL:    srv.URL,
		APIKey:     "test-key",
		HTTPClient: srv.Client(),
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c, srv
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("expected result content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %#v", result.Content[0])
	}
	return text.Text
}

func TestCreateAccountHolderHandler_CoercesIntegerID(t *testing.T) {
	t.Parallel()

	var body map[string]any
	c, _ := newBackendClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "12345"})
	})

	handler := makeCreateAccountHolderHandler(c)
	result, err := handler(context.Background(), callRequest("create_account_holder", map[string]any{
		"id":   float64(12345),
		"type": "individual",
		"name": "Test User",
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}
	if body["id"] != "12345" {
		t.Fatalf("expected id coerced to string, got %#v", body["id"])
	}
}

func TestCreateAccountHolderHandler_MissingArgIsToolError(t *testing.T) {
	t.Parallel()

	c, _ := newBackendClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for invalid arguments")
	})

	handler := makeCreateAccountHolderHandler(c)
	result, err := handler(context.Background(), callRequest("create_account_holder", map[string]any{
		"id": "42",
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for missing arguments")
	}
}

func TestEnrichTransactionHandler_CoercesIDsAndCountry(t *testing.T) {
	t.Parallel()

	var body map[string]any
	c, _ := newBackendClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "77"})
	})

	handler := makeEnrichTransactionHandler(c)
	result, err := handler(context.Background(), callRequest("enrich_transaction", map[string]any{
		"id":                float64(77),
		"description":       "AMAZON.COM*MK1AB6TE1",
		"date":              "2023-05-15",
		"amount":            -29.99,
		"entry_type":        "debit",
		"currency":          "USD",
		"account_holder_id": float64(42),
		"country":           "US",
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}
	if body["id"] != "77" || body["account_holder_id"] != "42" {
		t.Fatalf("ids not coerced: %#v", body)
	}
	location, ok := body["location"].(map[string]any)
	if !ok || location["country"] != "US" {
		t.Fatalf("expected nested location.country, got %#v", body["location"])
	}
}

func TestGetAccountHolderHandler_CoercesPathID(t *testing.T) {
	t.Parallel()

	var path string
	c, _ := newBackendClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "314"})
	})

	handler := makeGetAccountHolderHandler(c)
	result, err := handler(context.Background(), callRequest("get_account_holder", map[string]any{
		"account_holder_id": float64(314),
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}
	if path != "/account_holders/314" {
		t.Fatalf("expected coerced id in path, got %q", path)
	}
}

func TestBulkEnrichHandler_RejectsNonObjectRecords(t *testing.T) {
	t.Parallel()

	c, _ := newBackendClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for invalid arguments")
	})

	handler := makeBulkEnrichTransactionsHandler(c)
	result, err := handler(context.Background(), callRequest("bulk_enrich_transactions", map[string]any{
		"transactions": []any{"not-an-object"},
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for malformed records")
	}
}

func TestRemoteFailureIsSuccessfulToolResult(t *testing.T) {
	t.Parallel()

	c, _ := newBackendClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]any{"detail": "invalid date"})
	})

	handler := makeEnrichTransactionHandler(c)
	result, err := handler(context.Background(), callRequest("enrich_transaction", map[string]any{
		"id":                "tx_001",
		"description":       "AMAZON.COM",
		"date":              "not-a-date",
		"amount":            -1.0,
		"entry_type":        "debit",
		"currency":          "USD",
		"account_holder_id": "42",
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if result.IsError {
		t.Fatal("remote API failures must be data, not tool errors")
	}

	var envelope map[string]any
	if err := json.Unmarshal([]byte(resultText(t, result)), &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if envelope["status"] != "error" || envelope["status_code"] != float64(http.StatusUnprocessableEntity) {
		t.Fatalf("unexpected envelope: %#v", envelope)
	}
}

func TestListTransactionsHandler_AppliesDefaults(t *testing.T) {
	t.Parallel()

	var query string
	c, _ := newBackendClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	})

	handler := makeListTransactionsHandler(c)
	result, err := handler(context.Background(), callRequest("list_transactions", map[string]any{
		"account_holder_id": "42",
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}
	if !strings.Contains(query, "limit=10") || !strings.Contains(query, "offset=0") {
		t.Fatalf("expected default pagination, got %q", query)
	}
}

func TestRegisterNtropyTools_EndToEnd(t *testing.T) {
	c, _ := newBackendClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "42", "name": "Test User"})
	})

	s := server.NewMCPServer("ntropy-mcp-test", "0.0.1", server.WithToolCapabilities(false))
	if err := RegisterNtropyTools(s, c); err != nil {
		t.Fatalf("RegisterNtropyTools failed: %v", err)
	}

	ctx := context.Background()
	mcpClient, err := client.NewInProcessClient(s)
	if err != nil {
		t.Fatalf("NewInProcessClient failed: %v", err)
	}
	defer mcpClient.Close()
	if err := mcpClient.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "registry-test", Version: "0.0.1"}
	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	tools, err := mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		t.Fatalf("ListTools failed: %v", err)
	}
	if len(tools.Tools) != ToolCount {
		t.Fatalf("expected %d tools, got %d", ToolCount, len(tools.Tools))
	}

	result, err := mcpClient.CallTool(ctx, callRequest("get_account_holder", map[string]any{
		"account_holder_id": 42,
	}))
	if err != nil {
		t.Fatalf("CallTool failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}
	if !strings.Contains(resultText(t, result), `"name": "Test User"`) {
		t.Fatalf("unexpected payload: %s", resultText(t, result))
	}
}

func TestRegisterNtropyTools_NilClient(t *testing.T) {
	t.Parallel()

	s := server.NewMCPServer("ntropy-mcp-test", "0.0.1")
	if err := RegisterNtropyTools(s, nil); err == nil {
		t.Fatal("expected error for nil client")
	}
}

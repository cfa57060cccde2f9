// Package registry binds the Ntropy translation layer to the MCP tool
// surface. Each tool is a one-to-one mapping from a name and argument set to
// a single pkg/ntropy operation; dispatch by name belongs to the protocol
// library, not to this package.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/finbridge/ntropy-mcp-go/pkg/config"
	"github.com/finbridge/ntropy-mcp-go/pkg/ntropy"
)

// RegisterNtropyTools installs the full tool set on the server. The table is
// the closed list of operations this bridge exposes; nothing is resolved
// dynamically inside the handlers.
func RegisterNtropyTools(s *server.MCPServer, client *ntropy.Client) error {
	if client == nil {
		return fmt.Errorf("ntropy client is nil")
	}

	tools := []struct {
		tool    mcp.Tool
		handler server.ToolHandlerFunc
	}{
		{
			tool: mcp.NewTool("check_connection",
				mcp.WithDescription("Check connectivity and API key validity against the Ntropy API."),
			),
			handler: makeCheckConnectionHandler(client),
		},
		{
			tool: mcp.NewTool("create_account_holder",
				mcp.WithDescription("Create an account holder in the Ntropy API. An account holder represents an individual or business with a financial account."),
				mcp.WithString("id", mcp.Required(),
					mcp.Description("Unique identifier for the account holder (string or integer, coerced to string)."),
				),
				mcp.WithString("type", mcp.Required(),
					mcp.Description("Type of account holder."),
					mcp.Enum("individual", "business"),
				),
				mcp.WithString("name", mcp.Required(),
					mcp.Description("Display name for the account holder."),
				),
			),
			handler: makeCreateAccountHolderHandler(client),
		},
		{
			tool: mcp.NewTool("enrich_transaction",
				mcp.WithDescription("Enrich a single bank transaction: categorization, merchant details, and confidence scores."),
				mcp.WithString("id", mcp.Required(),
					mcp.Description("Unique identifier for the transaction (string or integer, coerced to string)."),
				),
				mcp.WithString("description", mcp.Required(),
					mcp.Description("Transaction description as it appears on the bank statement."),
				),
				mcp.WithString("date", mcp.Required(),
					mcp.Description("Transaction date in ISO 8601 format (YYYY-MM-DD)."),
				),
				mcp.WithNumber("amount", mcp.Required(),
					mcp.Description("Transaction amount."),
				),
				mcp.WithString("entry_type", mcp.Required(),
					mcp.Description("Transaction entry type."),
					mcp.Enum("credit", "debit"),
				),
				mcp.WithString("currency", mcp.Required(),
					mcp.Description("Three-letter currency code (e.g. USD, EUR, GBP)."),
				),
				mcp.WithString("account_holder_id", mcp.Required(),
					mcp.Description("ID of the account holder who made the transaction (string or integer, coerced to string)."),
				),
				mcp.WithString("country",
					mcp.Description("Optional two-letter country code (e.g. US, GB)."),
				),
			),
			handler: makeEnrichTransactionHandler(client),
		},
		{
			tool: mcp.NewTool("get_account_holder",
				mcp.WithDescription("Get details of an existing account holder by ID."),
				mcp.WithString("account_holder_id", mcp.Required(),
					mcp.Description("ID of the account holder to retrieve (string or integer, coerced to string)."),
				),
			),
			handler: makeGetAccountHolderHandler(client),
		},
		{
			tool: mcp.NewTool("list_transactions",
				mcp.WithDescription("List transactions for an account holder, paginated with limit and offset."),
				mcp.WithString("account_holder_id", mcp.Required(),
					mcp.Description("ID of the account holder whose transactions to retrieve."),
				),
				mcp.WithNumber("limit",
					mcp.Description("Maximum number of transactions to return."),
					mcp.DefaultNumber(config.DefaultListLimit),
				),
				mcp.WithNumber("offset",
					mcp.Description("Number of transactions to skip."),
					mcp.DefaultNumber(config.DefaultListOffset),
				),
			),
			handler: makeListTransactionsHandler(client),
		},
		{
			tool: mcp.NewTool("get_transaction",
				mcp.WithDescription("Get details of a specific transaction by ID, including enrichment data."),
				mcp.WithString("transaction_id", mcp.Required(),
					mcp.Description("ID of the transaction to retrieve (string or integer, coerced to string)."),
				),
			),
			handler: makeGetTransactionHandler(client),
		},
		{
			tool: mcp.NewTool("bulk_enrich_transactions",
				mcp.WithDescription("Enrich multiple transactions in a single API call. Each record takes the same fields as enrich_transaction."),
				mcp.WithArray("transactions", mcp.Required(),
					mcp.Description("Transaction records to enrich."),
					mcp.Items(map[string]any{"type": "object"}),
				),
			),
			handler: makeBulkEnrichTransactionsHandler(client),
		},
		{
			tool: mcp.NewTool("delete_account_holder",
				mcp.WithDescription("Permanently delete an account holder and all associated data. Cannot be undone."),
				mcp.WithString("account_holder_id", mcp.Required(),
					mcp.Description("ID of the account holder to delete (string or integer, coerced to string)."),
				),
			),
			handler: makeDeleteAccountHolderHandler(client),
		},
		{
			tool: mcp.NewTool("delete_transaction",
				mcp.WithDescription("Permanently delete a transaction. Cannot be undone."),
				mcp.WithString("transaction_id", mcp.Required(),
					mcp.Description("ID of the transaction to delete (string or integer, coerced to string)."),
				),
			),
			handler: makeDeleteTransactionHandler(client),
		},
	}

	for _, t := range tools {
		s.AddTool(t.tool, t.handler)
	}
	return nil
}

// ToolCount is the size of the closed tool set; exposed for the server
// startup log and tests.
const ToolCount = 9

func makeCheckConnectionHandler(client *ntropy.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := client.CheckConnection(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toolJSON(result)
	}
}

func makeCreateAccountHolderHandler(client *ntropy.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		id := ntropy.CoerceID(args["id"])
		holderType := argString(args, "type")
		name := argString(args, "name")
		if strings.TrimSpace(id) == "" {
			return mcp.NewToolResultError("id is required"), nil
		}
		if strings.TrimSpace(holderType) == "" {
			return mcp.NewToolResultError("type is required"), nil
		}
		if strings.TrimSpace(name) == "" {
			return mcp.NewToolResultError("name is required"), nil
		}

		result, err := client.CreateAccountHolder(ctx, id, holderType, name)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toolJSON(result)
	}
}

func makeEnrichTransactionHandler(client *ntropy.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		tx := ntropy.Transaction{
			ID:              ntropy.CoerceID(args["id"]),
			Description:     argString(args, "description"),
			Date:            argString(args, "date"),
			EntryType:       argString(args, "entry_type"),
			Currency:        argString(args, "currency"),
			AccountHolderID: ntropy.CoerceID(args["account_holder_id"]),
			Country:         argString(args, "country"),
		}
		if strings.TrimSpace(tx.ID) == "" {
			return mcp.NewToolResultError("id is required"), nil
		}
		if strings.TrimSpace(tx.Description) == "" {
			return mcp.NewToolResultError("description is required"), nil
		}
		if strings.TrimSpace(tx.Date) == "" {
			return mcp.NewToolResultError("date is required"), nil
		}
		if strings.TrimSpace(tx.EntryType) == "" {
			return mcp.NewToolResultError("entry_type is required"), nil
		}
		if strings.TrimSpace(tx.Currency) == "" {
			return mcp.NewToolResultError("currency is required"), nil
		}
		if strings.TrimSpace(tx.AccountHolderID) == "" {
			return mcp.NewToolResultError("account_holder_id is required"), nil
		}
		amount, ok := argNumber(args, "amount")
		if !ok {
			return mcp.NewToolResultError("amount is required"), nil
		}
		tx.Amount = amount

		result, err := client.EnrichTransaction(ctx, tx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toolJSON(result)
	}
}

func makeGetAccountHolderHandler(client *ntropy.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := ntropy.CoerceID(req.GetArguments()["account_holder_id"])
		if strings.TrimSpace(id) == "" {
			return mcp.NewToolResultError("account_holder_id is required"), nil
		}
		result, err := client.GetAccountHolder(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toolJSON(result)
	}
}

func makeListTransactionsHandler(client *ntropy.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		id := ntropy.CoerceID(args["account_holder_id"])
		if strings.TrimSpace(id) == "" {
			return mcp.NewToolResultError("account_holder_id is required"), nil
		}
		limit := argInt(args, "limit", config.DefaultListLimit)
		offset := argInt(args, "offset", config.DefaultListOffset)

		result, err := client.ListTransactions(ctx, id, limit, offset)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toolJSON(result)
	}
}

func makeGetTransactionHandler(client *ntropy.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := ntropy.CoerceID(req.GetArguments()["transaction_id"])
		if strings.TrimSpace(id) == "" {
			return mcp.NewToolResultError("transaction_id is required"), nil
		}
		result, err := client.GetTransaction(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toolJSON(result)
	}
}

func makeBulkEnrichTransactionsHandler(client *ntropy.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, ok := req.GetArguments()["transactions"].([]any)
		if !ok {
			return mcp.NewToolResultError("transactions must be an array of objects"), nil
		}
		transactions := make([]map[string]any, 0, len(raw))
		for _, item := range raw {
			record, ok := item.(map[string]any)
			if !ok {
				return mcp.NewToolResultError("transactions must be an array of objects"), nil
			}
			transactions = append(transactions, record)
		}

		result, err := client.BulkEnrichTransactions(ctx, transactions)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toolJSON(result)
	}
}

func makeDeleteAccountHolderHandler(client *ntropy.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := ntropy.CoerceID(req.GetArguments()["account_holder_id"])
		if strings.TrimSpace(id) == "" {
			return mcp.NewToolResultError("account_holder_id is required"), nil
		}
		result, err := client.DeleteAccountHolder(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toolJSON(result)
	}
}

func makeDeleteTransactionHandler(client *ntropy.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := ntropy.CoerceID(req.GetArguments()["transaction_id"])
		if strings.TrimSpace(id) == "" {
			return mcp.NewToolResultError("transaction_id is required"), nil
		}
		result, err := client.DeleteTransaction(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toolJSON(result)
	}
}

func argString(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func argNumber(args map[string]any, key string) (float64, bool) {
	switch t := args[key].(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func argInt(args map[string]any, key string, fallback int) int {
	f, ok := argNumber(args, key)
	if !ok {
		return fallback
	}
	return int(f)
}

// toolJSON renders an operation result, success payload or error envelope
// alike, as an indented JSON text result. Remote failures are deliberately
// NOT tool-level errors: callers detect them by the payload's status field.
func toolJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal tool response: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

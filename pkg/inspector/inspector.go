// Package inspector drives a session against an MCP server subprocess: it
// spawns the configured command, performs the initialize handshake, fetches
// the advertised tools, and offers a scripted demo and an interactive
// command loop. Framing and process lifecycle belong to the protocol
// library; this package only sequences calls and renders results.
package inspector

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/shopspring/decimal"

	"github.com/finbridge/ntropy-mcp-go/pkg/config"
)

// ToolClient is the slice of the protocol client the session depends on.
// Tests substitute a fake; production code passes the stdio client.
type ToolClient interface {
	Initialize(ctx context.Context, req mcp.InitializeRequest) (*mcp.InitializeResult, error)
	ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

// Session is a live connection to a server subprocess. Close releases the
// transport and the child process; callers defer it on every exit path.
type Session struct {
	rpc   ToolClient
	tools []mcp.Tool
	out   io.Writer
}

// Connect spawns the server command, performs the handshake, and lists the
// advertised tools. Any failure here is a transport error and terminates
// the session before it starts.
func Connect(ctx context.Context, out io.Writer, command string, args ...string) (*Session, error) {
	fmt.Fprintf(out, "Connecting to server: %s %s\n", command, strings.Join(args, " "))

	rpc, err := client.NewStdioMCPClient(command, nil, args...)
	if err != nil {
		return nil, fmt.Errorf("spawn server: %w", err)
	}

	session, err := NewSession(ctx, rpc, out)
	if err != nil {
		rpc.Close()
		return nil, err
	}
	return session, nil
}

// NewSession runs the handshake over an already-constructed transport.
func NewSession(ctx context.Context, rpc ToolClient, out io.Writer) (*Session, error) {
	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    config.ServerName + "-client",
		Version: config.ServerVersion,
	}
	if _, err := rpc.Initialize(ctx, initReq); err != nil {
		return nil, fmt.Errorf("initialize session: %w", err)
	}

	listed, err := rpc.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}

	s := &Session{rpc: rpc, tools: listed.Tools, out: out}
	fmt.Fprintln(out, "\nAvailable tools:")
	for _, tool := range s.tools {
		fmt.Fprintf(out, "- %s: %s\n", tool.Name, tool.Description)
	}
	return s, nil
}

func (s *Session) Tools() []mcp.Tool {
	return s.tools
}

func (s *Session) hasTool(name string) bool {
	for _, tool := range s.tools {
		if tool.Name == name {
			return true
		}
	}
	return false
}

func (s *Session) Close() error {
	return s.rpc.Close()
}

// CallTool invokes a tool and returns the flattened text of its result.
// A non-nil error is a transport failure; remote API failures arrive inside
// the text payload as an error envelope.
func (s *Session) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := s.rpc.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("call %s: %w", name, err)
	}

	var parts []string
	for _, content := range result.Content {
		if text, ok := content.(mcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	return strings.Join(parts, "\n"), nil
}

func (s *Session) printCall(ctx context.Context, name string, args map[string]any) error {
	fmt.Fprintf(s.out, "\nCalling tool: %s\n", name)
	text, err := s.CallTool(ctx, name, args)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, text)
	return nil
}

// RunDemo executes the fixed smoke-test sequence: connection check, account
// holder creation, one enrichment, a two-record bulk enrichment, and a
// transaction listing.
func (s *Session) RunDemo(ctx context.Context) error {
	const accountHolderID = "test_user_123"

	fmt.Fprintln(s.out, "\n1. Checking connection to Ntropy API...")
	if err := s.printCall(ctx, "check_connection", nil); err != nil {
		return err
	}

	fmt.Fprintln(s.out, "\n2. Creating account holder...")
	if err := s.printCall(ctx, "create_account_holder", map[string]any{
		"id":   accountHolderID,
		"type": "individual",
		"name": "Test User",
	}); err != nil {
		return err
	}

	fmt.Fprintln(s.out, "\n3. Enriching a single transaction...")
	if err := s.printCall(ctx, "enrich_transaction", map[string]any{
		"id":                "tx_001",
		"description":       "AMAZON.COM*MK1AB6TE1",
		"date":              "2023-05-15",
		"amount":            demoAmount("-29.99"),
		"entry_type":        "debit",
		"currency":          "USD",
		"account_holder_id": accountHolderID,
		"country":           "US",
	}); err != nil {
		return err
	}

	fmt.Fprintln(s.out, "\n4. Bulk enriching multiple transactions...")
	if err := s.printCall(ctx, "bulk_enrich_transactions", map[string]any{
		"transactions": []any{
			map[string]any{
				"id":                "tx_002",
				"description":       "NETFLIX.COM",
				"date":              "2023-05-16",
				"amount":            demoAmount("-13.99"),
				"entry_type":        "debit",
				"currency":          "USD",
				"account_holder_id": accountHolderID,
			},
			map[string]any{
				"id":                "tx_003",
				"description":       "Starbucks Coffee",
				"date":              "2023-05-17",
				"amount":            demoAmount("-5.65"),
				"entry_type":        "debit",
				"currency":          "USD",
				"account_holder_id": accountHolderID,
			},
		},
	}); err != nil {
		return err
	}

	fmt.Fprintln(s.out, "\n5. Listing transactions for account holder...")
	if err := s.printCall(ctx, "list_transactions", map[string]any{
		"account_holder_id": accountHolderID,
	}); err != nil {
		return err
	}

	fmt.Fprintln(s.out, "\nDemo completed successfully!")
	return nil
}

// demoAmount keeps the scripted money literals exact until the JSON
// boundary, where the API takes a plain number.
func demoAmount(value string) float64 {
	return decimal.RequireFromString(value).InexactFloat64()
}

// RunInteractive reads commands line by line until exit/quit or EOF.
// Malformed input is reported and the loop continues; only transport
// failures terminate it.
func (s *Session) RunInteractive(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(s.out, "\nInteractive mode. Type 'help' for commands, 'exit' to quit.")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, " ", 2)
		command := parts[0]
		rest := ""
		if len(parts) == 2 {
			rest = parts[1]
		}

		switch command {
		case "exit", "quit":
			return nil
		case "help":
			s.printHelp()
		case "list_tools":
			for _, tool := range s.tools {
				fmt.Fprintf(s.out, "- %s\n", tool.Name)
			}
		case "check":
			if err := s.printCall(ctx, "check_connection", nil); err != nil {
				return err
			}
		case "create_account":
			fields := strings.SplitN(rest, " ", 3)
			if rest == "" || len(fields) != 3 {
				fmt.Fprintln(s.out, "Usage: create_account <id> <type> <name>")
				continue
			}
			if err := s.printCall(ctx, "create_account_holder", map[string]any{
				"id":   fields[0],
				"type": fields[1],
				"name": fields[2],
			}); err != nil {
				return err
			}
		case "tool":
			if rest == "" {
				fmt.Fprintln(s.out, "Usage: tool <name> [json-args]")
				continue
			}
			fields := strings.SplitN(rest, " ", 2)
			name := fields[0]
			rawArgs := "{}"
			if len(fields) == 2 && strings.TrimSpace(fields[1]) != "" {
				rawArgs = fields[1]
			}
			if !s.hasTool(name) {
				fmt.Fprintf(s.out, "Unknown tool: %s\n", name)
				continue
			}
			var args map[string]any
			if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
				fmt.Fprintf(s.out, "Invalid JSON arguments: %v\n", err)
				continue
			}
			if err := s.printCall(ctx, name, args); err != nil {
				return err
			}
		default:
			fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for a list)\n", command)
		}
	}
}

func (s *Session) printHelp() {
	fmt.Fprintln(s.out, "Commands:")
	fmt.Fprintln(s.out, "  help                               Show this message")
	fmt.Fprintln(s.out, "  list_tools                         List available tools")
	fmt.Fprintln(s.out, "  check                              Check the Ntropy API connection")
	fmt.Fprintln(s.out, "  create_account <id> <type> <name>  Create an account holder")
	fmt.Fprintln(s.out, "  tool <name> [json-args]            Call any tool with JSON arguments")
	fmt.Fprintln(s.out, "  exit | quit                        Leave interactive mode")
}

package main

import (
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/finbridge/ntropy-mcp-go/pkg/config"
	"github.com/finbridge/ntropy-mcp-go/pkg/ntropy"
	"github.com/finbridge/ntropy-mcp-go/pkg/registry"
)

func main() {
	// stdout carries the protocol; all logging goes to stderr.
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "ntropy-mcp"})

	var (
		apiKey  string
		baseURL string
	)

	rootCmd := &cobra.Command{
		Use:          "ntropy-mcp",
		Short:        "MCP server for enriching banking data using the Ntropy API",
		Version:      config.ServerVersion,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			config.LoadDotenv()

			key, err := config.ResolveAPIKey(apiKey)
			if err != nil {
				return err
			}

			client, err := ntropy.NewClient(ntropy.Config{
				BaseURL:    config.ResolveBaseURL(baseURL),
				APIKey:     key,
				HTTPClient: &http.Client{Timeout: config.DefaultHTTPTimeout},
			})
			if err != nil {
				return err
			}

			s := server.NewMCPServer(
				config.ServerName,
				config.ServerVersion,
				server.WithToolCapabilities(false),
				server.WithRecovery(),
			)
			if err := registry.RegisterNtropyTools(s, client); err != nil {
				return err
			}

			logger.Info("starting Ntropy MCP server on stdio", "tools", registry.ToolCount)
			return server.ServeStdio(s)
		},
	}

	rootCmd.Flags().StringVar(&apiKey, "api-key", "", "Ntropy API key (falls back to "+config.APIKeyEnv+")")
	rootCmd.Flags().StringVar(&baseURL, "base-url", "", "Ntropy API base URL (falls back to "+config.BaseURLEnv+")")

	if err := rootCmd.Execute(); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

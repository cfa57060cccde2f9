package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/finbridge/ntropy-mcp-go/pkg/config"
	"github.com/finbridge/ntropy-mcp-go/pkg/inspector"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "ntropy-client"})

	var (
		serverCommand string
		serverArgs    []string
		interactive   bool
	)

	rootCmd := &cobra.Command{
		Use:          "ntropy-client",
		Short:        "Companion client for the Ntropy MCP server",
		Long:         "Spawns the Ntropy MCP server over stdio and either runs a scripted demo sequence or drops into an interactive command loop.",
		Version:      config.ServerVersion,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			config.LoadDotenv()
			ctx := cmd.Context()

			resolvedArgs := serverArgs
			if len(resolvedArgs) == 0 {
				if key := os.Getenv(config.APIKeyEnv); key != "" {
					resolvedArgs = []string{"--api-key", key}
				} else {
					logger.Warn("no API key in environment; the server will refuse to start", "env", config.APIKeyEnv)
				}
			}

			session, err := inspector.Connect(ctx, os.Stdout, serverCommand, resolvedArgs...)
			if err != nil {
				return err
			}
			defer session.Close()

			if interactive {
				return session.RunInteractive(ctx, os.Stdin)
			}
			return session.RunDemo(ctx)
		},
	}

	rootCmd.Flags().StringVar(&serverCommand, "server-command", "ntropy-mcp", "command used to launch the MCP server")
	rootCmd.Flags().StringArrayVar(&serverArgs, "server-arg", nil, "argument passed to the server command (repeatable)")
	rootCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "run the interactive command loop instead of the demo")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Error("client exited", "err", err)
		os.Exit(1)
	}
}

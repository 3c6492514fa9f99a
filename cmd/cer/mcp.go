package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sensiblebit/certfields/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve certificate field extraction as an MCP tool over stdio",
	Long: "Run a Model Context Protocol server on stdin/stdout exposing the \"cer\" tool. " +
		"Logs are written to stderr.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return mcpserver.Run(ctx, cmd.Root().Version, os.Stdin, os.Stdout)
	},
}

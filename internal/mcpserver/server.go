// Package mcpserver exposes certificate field extraction as a Model Context
// Protocol tool served over stdio.
package mcpserver

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"
)

const serverName = "certfields"

// New returns an MCP server with the cer tool registered.
func New(version string) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(true),
	)
	s.AddTool(cerTool(), handleCer)
	return s
}

// Run serves the MCP protocol on in and out until ctx is cancelled or in is
// closed. Diagnostics go to the default slog logger, never to out.
func Run(ctx context.Context, version string, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(New(version))
	stdio.SetErrorLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelError))

	slog.Info("MCP server listening on stdio", "name", serverName, "version", version)
	err := stdio.Listen(ctx, in, out)
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, io.EOF)) {
		return nil
	}
	return err
}

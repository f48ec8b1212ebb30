package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/permsync/internal/adapters/driving/mcp"
)

var mcpAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Model Context Protocol server",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve permission tools to an MCP client",
	Long: `Let an assistant browse permission trees and change what connectors sync.

Without --addr the server speaks JSON-RPC over stdio, which is what desktop
clients expect when they launch permsync themselves. With --addr it serves
the streamable HTTP transport on its own listener. "permsync serve" also
mounts the same transport at /mcp.

Examples:
  permsync mcp serve
  permsync mcp serve --addr :8090`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().StringVar(&mcpAddr, "addr", "", "HTTP listen address (empty = stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	server, err := mcp.NewServer(&mcp.Ports{
		Permissions: permissionService,
		Connectors:  connectorService,
	})
	if err != nil {
		return err
	}

	if mcpAddr == "" {
		return server.Run(cmd.Context())
	}
	cmd.PrintErrf("MCP server listening on %s\n", mcpAddr)
	return server.RunHTTP(cmd.Context(), mcpAddr)
}

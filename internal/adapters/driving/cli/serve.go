package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/permsync/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/permsync/internal/adapters/driving/mcp"
)

var (
	serveAddr        string
	serveNoScheduler bool
	serveNoMCP       bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the background scheduler",
	Long: `Serve the permission and connector API over HTTP, expose Prometheus metrics
on /metrics and the MCP streamable transport on /mcp, and run scheduled tasks
such as Drive webhook renewal.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from server.addr)")
	serveCmd.Flags().BoolVar(&serveNoScheduler, "no-scheduler", false, "do not run scheduled tasks")
	serveCmd.Flags().BoolVar(&serveNoMCP, "no-mcp", false, "do not mount the MCP endpoint")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if permissionService == nil || connectorService == nil {
		return errors.New("services not configured")
	}

	addr := serveAddr
	if addr == "" && settingsService != nil {
		settings, err := settingsService.Get()
		if err != nil {
			return fmt.Errorf("failed to get settings: %w", err)
		}
		addr = settings.Server.Addr
	}
	if addr == "" {
		addr = ":8080"
	}

	ports := &httpapi.Ports{
		Permissions: permissionService,
		Connectors:  connectorService,
	}
	if !serveNoMCP {
		mcpServer, err := mcp.NewServer(&mcp.Ports{
			Permissions: permissionService,
			Connectors:  connectorService,
		})
		if err != nil {
			return err
		}
		ports.MCP = mcpServer.Handler()
	}

	api, err := httpapi.NewServer(ports)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		return api.Run(ctx, addr)
	})
	if scheduler != nil && !serveNoScheduler {
		g.Go(func() error {
			if err := scheduler.Start(ctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

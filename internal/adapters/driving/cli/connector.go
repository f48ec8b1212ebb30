package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/permsync/internal/core/domain"
	"github.com/custodia-labs/permsync/internal/core/ports/driving"
)

var (
	createProvider     string
	createConnectionID string
	createWorkspaceID  string
	createDataSource   string
	createAPIKey       string
	updateConnectionID string
)

var connectorCmd = &cobra.Command{
	Use:   "connector",
	Short: "Manage connectors",
}

var connectorCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a connector from an OAuth connection",
	Long: `Create a connector bound to an OAuth connection held by the connection broker.
The remote workspace is looked up first and a sync workflow is launched.`,
	Args: cobra.NoArgs,
	RunE: runConnectorCreate,
}

var connectorUpdateCmd = &cobra.Command{
	Use:   "update <connector-id>",
	Short: "Rebind a connector to a new OAuth connection",
	Long: `Rebind a connector to a new OAuth connection. The new connection must point
at the same remote workspace; otherwise it is deleted and the update is rejected.`,
	Args: cobra.ExactArgs(1),
	RunE: runConnectorUpdate,
}

var connectorCleanupCmd = &cobra.Command{
	Use:   "cleanup <connector-id>",
	Short: "Delete a connector, its objects and its OAuth connection",
	Args:  cobra.ExactArgs(1),
	RunE: connectorAction("Cleaned up", func(cmd *cobra.Command, id int64) error {
		return connectorService.Cleanup(cmd.Context(), id)
	}),
}

var connectorStopCmd = &cobra.Command{
	Use:   "stop <connector-id>",
	Short: "Stop the connector's sync workflow",
	Args:  cobra.ExactArgs(1),
	RunE: connectorAction("Stopped", func(cmd *cobra.Command, id int64) error {
		return connectorService.Stop(cmd.Context(), id)
	}),
}

var connectorResumeCmd = &cobra.Command{
	Use:   "resume <connector-id>",
	Short: "Relaunch the connector's sync workflow",
	Args:  cobra.ExactArgs(1),
	RunE: connectorAction("Resumed", func(cmd *cobra.Command, id int64) error {
		return connectorService.Resume(cmd.Context(), id)
	}),
}

var connectorListCmd = &cobra.Command{
	Use:   "list",
	Short: "List connectors",
	Args:  cobra.NoArgs,
	RunE:  runConnectorList,
}

func init() {
	connectorCreateCmd.Flags().StringVar(&createProvider, "provider", "", "provider: intercom or google_drive")
	connectorCreateCmd.Flags().StringVar(&createConnectionID, "connection-id", "", "OAuth connection id on the broker")
	connectorCreateCmd.Flags().StringVar(&createWorkspaceID, "workspace-id", "", "workspace the data source belongs to")
	connectorCreateCmd.Flags().StringVar(&createDataSource, "data-source", "", "name of the data source fed by the connector")
	connectorCreateCmd.Flags().StringVar(&createAPIKey, "api-key", "", "workspace API key used by the sync workflow")
	_ = connectorCreateCmd.MarkFlagRequired("provider")
	_ = connectorCreateCmd.MarkFlagRequired("connection-id")

	connectorUpdateCmd.Flags().StringVar(&updateConnectionID, "connection-id", "", "new OAuth connection id")
	_ = connectorUpdateCmd.MarkFlagRequired("connection-id")

	connectorCmd.AddCommand(connectorCreateCmd)
	connectorCmd.AddCommand(connectorUpdateCmd)
	connectorCmd.AddCommand(connectorCleanupCmd)
	connectorCmd.AddCommand(connectorStopCmd)
	connectorCmd.AddCommand(connectorResumeCmd)
	connectorCmd.AddCommand(connectorListCmd)
	rootCmd.AddCommand(connectorCmd)
}

func runConnectorCreate(cmd *cobra.Command, _ []string) error {
	if connectorService == nil {
		return errors.New("connector service not configured")
	}

	connector, err := connectorService.Create(cmd.Context(), driving.CreateConnectorRequest{
		Provider:        domain.ProviderType(createProvider),
		ConnectionID:    createConnectionID,
		WorkspaceID:     createWorkspaceID,
		DataSourceName:  createDataSource,
		WorkspaceAPIKey: createAPIKey,
	})
	if err != nil {
		return fmt.Errorf("create connector: %w", err)
	}
	cmd.Printf("Created %s connector %d (remote workspace %s)\n",
		connector.Provider, connector.ID, connector.RemoteWorkspaceID)
	return nil
}

func runConnectorUpdate(cmd *cobra.Command, args []string) error {
	if connectorService == nil {
		return errors.New("connector service not configured")
	}
	id, err := parseConnectorID(args[0])
	if err != nil {
		return err
	}
	if err := connectorService.Update(cmd.Context(), id, updateConnectionID); err != nil {
		return fmt.Errorf("update connector: %w", err)
	}
	cmd.Printf("Updated connector %d\n", id)
	return nil
}

func connectorAction(done string, fn func(*cobra.Command, int64) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if connectorService == nil {
			return errors.New("connector service not configured")
		}
		id, err := parseConnectorID(args[0])
		if err != nil {
			return err
		}
		if err := fn(cmd, id); err != nil {
			return fmt.Errorf("%s: %w", cmd.Name(), err)
		}
		cmd.Printf("%s connector %d\n", done, id)
		return nil
	}
}

func runConnectorList(cmd *cobra.Command, _ []string) error {
	if connectorService == nil {
		return errors.New("connector service not configured")
	}
	connectors, err := connectorService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("list connectors: %w", err)
	}
	if len(connectors) == 0 {
		cmd.Println("No connectors configured.")
		return nil
	}
	for i := range connectors {
		c := &connectors[i]
		cmd.Printf("  [%d] %s  workspace=%s  data_source=%s\n",
			c.ID, c.Provider, c.RemoteWorkspaceID, c.DataSourceName)
	}
	return nil
}

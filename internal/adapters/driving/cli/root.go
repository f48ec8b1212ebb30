// Package cli is the permsync command line.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/permsync/internal/core/ports/driving"
	"github.com/custodia-labs/permsync/internal/logger"
)

var version = "dev"

var (
	permissionService driving.PermissionManager
	connectorService  driving.ConnectorManager
	settingsService   driving.SettingsService
	scheduler         driving.Scheduler
)

// Services are the driving ports the commands run against.
type Services struct {
	Permissions driving.PermissionManager
	Connectors  driving.ConnectorManager
	Settings    driving.SettingsService
	Scheduler   driving.Scheduler
}

// SetServices installs the services used by every command.
func SetServices(s Services) {
	permissionService = s.Permissions
	connectorService = s.Connectors
	settingsService = s.Settings
	scheduler = s.Scheduler
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "permsync",
	Short: "Manage which remote objects connectors synchronise",
	Long: `permsync keeps the permission tree of SaaS connectors (Intercom, Google Drive)
and tells the sync workflow which containers to synchronise.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logger.SetVerbose(true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the command line with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

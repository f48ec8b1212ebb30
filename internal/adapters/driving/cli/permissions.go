package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/permsync/internal/core/domain"
)

var (
	permissionsReadOnly bool
	permissionsJSON     bool
)

var permissionsCmd = &cobra.Command{
	Use:   "permissions",
	Short: "Inspect and change connector permissions",
	Long: `Permissions decide which remote objects a connector synchronises.
A node set to "read" is synced together with everything below it.`,
}

var permissionsSetCmd = &cobra.Command{
	Use:   "set <connector-id> <node-id>=<read|none>...",
	Short: "Set permissions on nodes",
	Long: `Apply a batch of permission changes. Values other than read or none reject
the whole batch before anything is changed.

Example:
  permsync permissions set 12 intercom-collection-12-7781=read intercom-team-12-5=none`,
	Args: cobra.MinimumNArgs(2),
	RunE: runPermissionsSet,
}

var permissionsAncestorsCmd = &cobra.Command{
	Use:   "ancestors <connector-id> <node-id>",
	Short: "List the ancestors of a node, nearest first",
	Args:  cobra.ExactArgs(2),
	RunE:  runPermissionsAncestors,
}

var permissionsTitlesCmd = &cobra.Command{
	Use:   "titles <connector-id> <node-id>...",
	Short: "Resolve node ids to titles",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runPermissionsTitles,
}

var permissionsListCmd = &cobra.Command{
	Use:   "list <connector-id> [parent-node-id]",
	Short: "List one level of the permission tree",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runPermissionsList,
}

func init() {
	permissionsListCmd.Flags().BoolVar(&permissionsReadOnly, "read-only", false, "only list nodes with permission read")
	permissionsListCmd.Flags().BoolVar(&permissionsJSON, "json", false, "output nodes as JSON")

	permissionsCmd.AddCommand(permissionsSetCmd)
	permissionsCmd.AddCommand(permissionsAncestorsCmd)
	permissionsCmd.AddCommand(permissionsTitlesCmd)
	permissionsCmd.AddCommand(permissionsListCmd)
	rootCmd.AddCommand(permissionsCmd)
}

func parseConnectorID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid connector id %q", arg)
	}
	return id, nil
}

// parseAssignments turns node=value arguments into a raw permission map.
// Values are validated by the service.
func parseAssignments(args []string) (map[string]string, error) {
	raw := make(map[string]string, len(args))
	for _, arg := range args {
		nodeID, value, ok := strings.Cut(arg, "=")
		if !ok || nodeID == "" {
			return nil, fmt.Errorf("expected <node-id>=<read|none>, got %q", arg)
		}
		raw[nodeID] = value
	}
	return raw, nil
}

func runPermissionsSet(cmd *cobra.Command, args []string) error {
	if permissionService == nil {
		return errors.New("permission service not configured")
	}
	connectorID, err := parseConnectorID(args[0])
	if err != nil {
		return err
	}
	raw, err := parseAssignments(args[1:])
	if err != nil {
		return err
	}

	if err := permissionService.SetPermissions(cmd.Context(), connectorID, raw); err != nil {
		return fmt.Errorf("set permissions: %w", err)
	}
	cmd.Printf("Applied %d permission change(s) to connector %d\n", len(raw), connectorID)
	return nil
}

func runPermissionsAncestors(cmd *cobra.Command, args []string) error {
	if permissionService == nil {
		return errors.New("permission service not configured")
	}
	connectorID, err := parseConnectorID(args[0])
	if err != nil {
		return err
	}

	ancestors, err := permissionService.Ancestors(cmd.Context(), connectorID, args[1])
	if err != nil {
		return fmt.Errorf("ancestors: %w", err)
	}
	if len(ancestors) == 0 {
		cmd.Println("No ancestors.")
		return nil
	}
	for _, id := range ancestors {
		cmd.Println(id)
	}
	return nil
}

func runPermissionsTitles(cmd *cobra.Command, args []string) error {
	if permissionService == nil {
		return errors.New("permission service not configured")
	}
	connectorID, err := parseConnectorID(args[0])
	if err != nil {
		return err
	}

	nodeIDs := args[1:]
	titles, err := permissionService.Titles(cmd.Context(), connectorID, nodeIDs)
	if err != nil {
		return fmt.Errorf("titles: %w", err)
	}
	for _, id := range nodeIDs {
		title := "(unknown)"
		if t := titles[id]; t != nil {
			title = *t
		}
		cmd.Printf("%s\t%s\n", id, title)
	}
	return nil
}

func runPermissionsList(cmd *cobra.Command, args []string) error {
	if permissionService == nil {
		return errors.New("permission service not configured")
	}
	connectorID, err := parseConnectorID(args[0])
	if err != nil {
		return err
	}
	parentID := ""
	if len(args) == 2 {
		parentID = args[1]
	}

	nodes, err := permissionService.Retrieve(cmd.Context(), connectorID, parentID, permissionsReadOnly)
	if err != nil {
		return fmt.Errorf("list nodes: %w", err)
	}

	if permissionsJSON {
		if nodes == nil {
			nodes = []domain.ConnectorNode{}
		}
		data, err := json.MarshalIndent(nodes, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal nodes: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(nodes) == 0 {
		cmd.Println("No nodes found.")
		return nil
	}
	for i := range nodes {
		n := &nodes[i]
		marker := " "
		if n.Expandable {
			marker = "+"
		}
		cmd.Printf("%s [%-4s] %-7s %s\n", marker, n.Permission, n.Type, n.Title)
		cmd.Printf("      %s\n", n.InternalID)
	}
	return nil
}

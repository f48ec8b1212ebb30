package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and change configuration",
	Long: `Configuration is read from ~/.permsync/config.toml. Every key can be
overridden by an environment variable: store.backend becomes PERMSYNC_STORE_BACKEND.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Persist a configuration key",
	Long: `Persist a configuration key to the config file.

Examples:
  permsync config set store.backend postgres
  permsync config set cache.redis_db 2
  permsync config set workflow.brokers kafka-1:9092,kafka-2:9092`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("[Store]")
	cmd.Printf("  Backend: %s\n", settings.Store.Backend.Description())
	if settings.Store.DataDir != "" {
		cmd.Printf("  Data dir: %s\n", settings.Store.DataDir)
	}
	if settings.Store.PostgresDSN != "" {
		cmd.Printf("  Postgres DSN: %s\n", maskSecret(settings.Store.PostgresDSN))
	}
	cmd.Println()

	cmd.Println("[Cache]")
	cmd.Printf("  Backend: %s\n", settings.Cache.Backend.Description())
	if settings.Cache.RedisAddr != "" {
		cmd.Printf("  Redis: %s (db %d)\n", settings.Cache.RedisAddr, settings.Cache.RedisDB)
	}
	cmd.Println()

	cmd.Println("[Workflow]")
	cmd.Printf("  Brokers: %s\n", strings.Join(settings.Workflow.Brokers, ", "))
	cmd.Printf("  Topic: %s\n", settings.Workflow.Topic)
	cmd.Println()

	cmd.Println("[Connection broker]")
	cmd.Printf("  URL: %s\n", orNotSet(settings.Broker.URL))
	cmd.Printf("  Secret key: %s\n", maskOrNotSet(settings.Broker.SecretKey))
	cmd.Println()

	cmd.Println("[Webhooks]")
	cmd.Printf("  Public URL: %s\n", orNotSet(settings.Webhooks.PublicURL))
	cmd.Printf("  Secret: %s\n", maskOrNotSet(settings.Webhooks.Secret))
	cmd.Println()

	cmd.Println("[Server]")
	cmd.Printf("  Address: %s\n", settings.Server.Addr)
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("Configuration is valid.")
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	key, value := args[0], parseConfigValue(args[1])
	if err := settingsService.Set(key, value); err != nil {
		return err
	}
	cmd.Printf("Set %s\n", key)
	return nil
}

// parseConfigValue stores booleans, integers and comma lists with their
// TOML types so typed getters read them back.
func parseConfigValue(s string) any {
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if strings.Contains(s, ",") {
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return s
}

func maskSecret(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

func maskOrNotSet(s string) string {
	if s == "" {
		return "(not set)"
	}
	return maskSecret(s)
}

func orNotSet(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

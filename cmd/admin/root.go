// Package admin implements offline provider-config management commands:
// adding and removing database entries from the JSON file cmd/serve loads
// at startup (§6.1). These are the admin lifecycle calls named by the
// provider (CreateDatabase/DestroyDatabase) exposed at the config-file
// level rather than over the wire protocol, which has no verb for
// registering a brand-new database remotely.
package admin

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/batchkv/batchkv/cmd/util"
	"github.com/batchkv/batchkv/lib/provider"
)

var (
	// AdminCommands represents the admin command group
	AdminCommands = &cobra.Command{
		Use:   "admin",
		Short: "Manage a provider's JSON configuration file offline",
	}

	addDatabaseCmd = &cobra.Command{
		Use:   "add-database [name] [type]",
		Short: "Appends a database entry to a provider config file",
		Args:  cobra.ExactArgs(2),
		RunE:  runAddDatabase,
	}

	removeDatabaseCmd = &cobra.Command{
		Use:   "remove-database [name]",
		Short: "Removes a database entry from a provider config file by name",
		Args:  cobra.ExactArgs(1),
		RunE:  runRemoveDatabase,
	}
)

func init() {
	AdminCommands.PersistentFlags().String("config", "provider.json", util.WrapString("Path to the provider config file to modify"))
	addDatabaseCmd.Flags().String("backend-config", "{}", util.WrapString("Raw JSON backend configuration for the new database"))

	AdminCommands.AddCommand(addDatabaseCmd)
	AdminCommands.AddCommand(removeDatabaseCmd)
}

func loadConfig(path string) (provider.Config, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return provider.Config{}, nil
	}
	if err != nil {
		return provider.Config{}, err
	}
	return provider.ParseConfig(raw)
}

func saveConfig(path string, cfg provider.Config) error {
	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0644)
}

func runAddDatabase(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	backendConfig, _ := cmd.Flags().GetString("backend-config")

	cfg, err := loadConfig(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	name, typ := args[0], args[1]
	for _, db := range cfg.Databases {
		if db.Name == name {
			return fmt.Errorf("database %q already exists in %s", name, path)
		}
	}

	if !json.Valid([]byte(backendConfig)) {
		return fmt.Errorf("--backend-config is not valid JSON")
	}

	// The provider fills in __id__ on registration (§6.1); since this is
	// the offline path that never starts a provider, assign it here so the
	// id a client learns from this file is stable across restarts.
	id := uuid.New()
	cfg.Databases = append(cfg.Databases, provider.DatabaseConfig{
		Name:   name,
		Type:   typ,
		Config: json.RawMessage(backendConfig),
		ID:     id,
	})

	if err := saveConfig(path, cfg); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Printf("added database %q (type=%s, id=%s) to %s\n", name, typ, id, path)
	return nil
}

func runRemoveDatabase(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	name := args[0]

	cfg, err := loadConfig(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	idx := -1
	for i, db := range cfg.Databases {
		if db.Name == name {
			idx = i
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("database %q not found in %s", name, path)
	}
	cfg.Databases = append(cfg.Databases[:idx], cfg.Databases[idx+1:]...)

	if err := saveConfig(path, cfg); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Printf("removed database %q from %s\n", name, path)
	return nil
}

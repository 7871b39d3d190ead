package cmds

import (
	"budgie/internal/flow"
	"budgie/internal/types"
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/goccy/go-json"
	"github.com/goccy/go-yaml"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// LoadConfigs reads a YAML or JSON file mapping configuration ids to broker configurations.
func LoadConfigs(path string) (map[string]types.BrokerConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, types.Err(types.ErrInvalidConfig, err, "read %s", path)
	}
	js, err := yaml.YAMLToJSON(b)
	if err != nil {
		return nil, types.Err(types.ErrInvalidConfig, err, "parse %s", path)
	}
	configs := map[string]types.BrokerConfig{}
	if err := json.Unmarshal(js, &configs); err != nil {
		return nil, types.Err(types.ErrInvalidConfig, err, "decode %s", path)
	}
	return configs, nil
}

// ValidateConfigs checks every configuration against the catalog and reports the first invalid one.
func ValidateConfigs(catalog types.CatalogLookup, configs map[string]types.BrokerConfig) error {
	for _, id := range sortedIDs(configs) {
		if err := configs[id].Validate(catalog); err != nil {
			return fmt.Errorf("configuration %q: %w", id, err)
		}
	}
	return nil
}

// PutConfigs loads the configurations file and stores every entry. Nothing is stored unless all of them
// are valid.
func PutConfigs(ctx context.Context, behavior *flow.Behavior, path string) error {
	configs, err := LoadConfigs(path)
	if err != nil {
		return err
	}
	if err := ValidateConfigs(behavior.Catalog, configs); err != nil {
		return err
	}
	for _, id := range sortedIDs(configs) {
		if err := behavior.Configure(ctx, id, configs[id]); err != nil {
			return err
		}
		log.WithField("configId", id).Info("configuration loaded")
	}
	return nil
}

func sortedIDs(configs map[string]types.BrokerConfig) []string {
	ids := make([]string, 0, len(configs))
	for id := range configs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Work with broker configuration files",
	}
	var catalogFile string
	validate := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a configurations file against the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := LoadCatalog(catalogFile)
			if err != nil {
				return err
			}
			configs, err := LoadConfigs(args[0])
			if err != nil {
				return err
			}
			if err := ValidateConfigs(catalog, configs); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d configuration(s) valid\n", len(configs))
			return err
		},
	}
	validate.Flags().StringVar(&catalogFile, "catalog-file", "", "catalog file (defaults to $CATALOG / $CATALOG_FILE)")
	cmd.AddCommand(validate)
	return cmd
}

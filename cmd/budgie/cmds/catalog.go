package cmds

import (
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func newCatalogCmd() *cobra.Command {
	var catalogFile string
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the catalog the broker would serve",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := LoadCatalog(catalogFile)
			if err != nil {
				return err
			}
			b, err := json.MarshalIndent(catalog, "", "  ")
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(append(b, '\n'))
			return err
		},
	}
	cmd.Flags().StringVar(&catalogFile, "catalog-file", "", "catalog file (defaults to $CATALOG / $CATALOG_FILE)")
	return cmd
}

package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/monica-concierge/monica/internal/catalog"
	"github.com/monica-concierge/monica/internal/shared/cmdutils"
	"github.com/monica-concierge/monica/internal/tools"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the product catalog",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print every product, as load_products_details returns them",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		c, err := loadCatalog()
		if err != nil {
			return err
		}
		return cmdutils.PrintJSON(os.Stdout, tools.NewLoadProductsTool(c).Load())
	},
}

var catalogFormatCmd = &cobra.Command{
	Use:   "format <id>...",
	Short: "Print the product cards for the given ids, as format_product_response returns them",
	RunE: func(_ *cobra.Command, args []string) error {
		c, err := loadCatalog()
		if err != nil {
			return err
		}
		return cmdutils.PrintJSON(os.Stdout, tools.NewFormatProductsTool(c, nil).Format(args))
	},
}

func init() {
	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogFormatCmd)
}

func loadCatalog() (*catalog.Catalog, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return catalog.Load(cfg.CatalogPath())
}

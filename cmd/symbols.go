package cmd

import (
	"trading-dashboard/pkg/logger"

	"github.com/spf13/cobra"
)

var symbolsCmd = &cobra.Command{
	Use:   "symbols",
	Short: "Manage the symbol catalog",
}

var symbolsImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import instruments found in the time-series store",
	RunE: func(cmd *cobra.Command, args []string) error {
		appDep, err := NewAppDependency(cmd.Context())
		if err != nil {
			return err
		}
		defer appDep.Close()

		services := appDep.Services(appDep.Repository())
		result, err := services.SymbolService.ImportSymbols(cmd.Context())
		if err != nil {
			return err
		}
		appDep.log.Info("Symbol import finished",
			logger.IntField("imported", result.Imported),
			logger.IntField("updated", result.Updated),
			logger.IntField("skipped", result.Skipped),
			logger.IntField("total", result.Total),
		)
		return nil
	},
}

func init() {
	symbolsCmd.AddCommand(symbolsImportCmd)
}

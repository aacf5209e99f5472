package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prodex-cli/internal/job"
)

var (
	batchInput    string
	batchProps    string
	batchUser     string
	batchNoRender bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Extract property values for a product list (XLSX or CSV)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		products, err := job.ReadProducts(batchInput)
		if err != nil {
			return err
		}
		if len(products) == 0 {
			return eris.Errorf("no products found in %s", batchInput)
		}

		props, err := job.LoadProperties(batchProps)
		if err != nil {
			return err
		}

		env, err := initRunner(ctx, batchNoRender)
		if err != nil {
			return err
		}
		defer env.Close()

		zap.L().Info("batch: starting",
			zap.Int("products", len(products)),
			zap.Int("properties", len(props)),
			zap.Int("parallelism", cfg.Batch.MaxConcurrentProducts),
		)

		summary := env.Runner.RunBulk(ctx, products, props, batchUser)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchInput, "input", "", "product list file, .xlsx or .csv (required)")
	batchCmd.Flags().StringVar(&batchProps, "properties", "properties.yaml", "property definitions file")
	batchCmd.Flags().StringVar(&batchUser, "user", "", "user ID for usage attribution")
	batchCmd.Flags().BoolVar(&batchNoRender, "no-render", false, "disable Tier-3 headless rendering")
	_ = batchCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(batchCmd)
}

package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/prodex-cli/internal/monitoring"
	"github.com/sells-group/prodex-cli/internal/store"
)

var usageLookback int

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Summarize LLM token usage and cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		summary, err := monitoring.NewUsageCollector(st).Collect(ctx, usageLookback)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	usageCmd.Flags().IntVar(&usageLookback, "hours", 24, "lookback window in hours (0 for all time)")
	rootCmd.AddCommand(usageCmd)
}

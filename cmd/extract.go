package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/prodex-cli/internal/job"
)

var (
	extractName     string
	extractArticle  string
	extractProps    string
	extractPDFs     []string
	extractUser     string
	extractNoRender bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract property values for a single product",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		props, err := job.LoadProperties(extractProps)
		if err != nil {
			return err
		}

		env, err := initRunner(ctx, extractNoRender)
		if err != nil {
			return err
		}
		defer env.Close()

		result, runErr := env.Runner.Run(ctx, job.Request{
			ArticleNumber: extractArticle,
			ProductName:   extractName,
			Properties:    props,
			PDFUploads:    extractPDFs,
			UserID:        extractUser,
		})

		// The result is printed even when the batch failed; it carries the
		// explicit failure reason.
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return eris.Wrap(err, "encode result")
		}
		return runErr
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractName, "name", "", "product name (required)")
	extractCmd.Flags().StringVar(&extractArticle, "article", "", "article number")
	extractCmd.Flags().StringVar(&extractProps, "properties", "properties.yaml", "property definitions file")
	extractCmd.Flags().StringSliceVar(&extractPDFs, "pdf", nil, "PDF file to include as a source (repeatable)")
	extractCmd.Flags().StringVar(&extractUser, "user", "", "user ID for usage attribution")
	extractCmd.Flags().BoolVar(&extractNoRender, "no-render", false, "disable Tier-3 headless rendering")
	_ = extractCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(extractCmd)
}

package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/prodex-cli/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config.yaml scaffold",
	RunE: func(cmd *cobra.Command, args []string) error {
		const path = "config.yaml"
		if !initForce {
			if _, err := os.Stat(path); err == nil {
				return eris.Errorf("%s already exists, use --force to overwrite", path)
			}
		}

		scaffold := config.Config{
			Store: config.StoreConfig{
				Driver:      "sqlite",
				DatabaseURL: "prodex.db",
			},
			Search: config.SearchConfig{
				BaseURL:    "https://api.perplexity.ai",
				MaxResults: 20,
				RatePerSec: 1.0,
				Burst:      2,
			},
			Anthropic: config.AnthropicConfig{
				Model:      "claude-sonnet-4-5-20250929",
				MaxTokens:  8192,
				RatePerSec: 0.5,
				Burst:      1,
			},
			Fetch: config.FetchConfig{
				Tier1TimeoutSecs: 10,
				Tier2TimeoutSecs: 20,
				Tier3TimeoutSecs: 45,
				MinContentLength: 200,
				MaxBodyBytes:     1024 * 1024,
				UserAgent:        "Mozilla/5.0 (compatible; ProdexBot/1.0)",
				DomainRatePerSec: 2.0,
				DomainBurst:      4,
			},
			Render: config.RenderConfig{
				PoolSize:   3,
				Headless:   true,
				WaitMillis: 1500,
			},
			PDF: config.PDFConfig{
				Provider:      "purego",
				PdfToTextPath: "pdftotext",
			},
			Scorer: config.ScorerConfig{
				MaxResults:        10,
				ManufacturerBonus: 0.3,
			},
			Extract: config.ExtractConfig{
				ContextBudgetChars: 120000,
				MaxRetries:         3,
			},
			Batch:  config.BatchConfig{MaxConcurrentProducts: 3},
			Server: config.ServerConfig{Port: 8080},
			Log:    config.LogConfig{Level: "info", Format: "json"},
		}

		data, err := yaml.Marshal(&scaffold)
		if err != nil {
			return eris.Wrap(err, "marshal config scaffold")
		}

		header := []byte("# prodex-cli configuration. Every key can be overridden with a\n# PRODEX_SECTION_KEY environment variable, e.g. PRODEX_ANTHROPIC_KEY.\n")
		if err := os.WriteFile(path, append(header, data...), 0o644); err != nil {
			return eris.Wrap(err, "write config scaffold")
		}

		cmd.Printf("wrote %s\n", path)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config.yaml")
	rootCmd.AddCommand(initCmd)
}

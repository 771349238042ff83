package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/krspack/scrap-booking-for-Brno/internal/app"
)

func init() {
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--catalog <path/to/dataset.json>]",
	Short: "Runs one scrape and writes the result files.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, metrics, store, err := setup()
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
		}

		runner := app.NewRunner(cfg, metrics, store, nil, logger)
		report, err := runner.Run(cmd.Context())
		if report != nil {
			app.RenderSummary(os.Stderr, report)
		}
		return err
	},
}

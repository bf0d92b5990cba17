package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/filing-monitor/internal/model"
)

var importFile string

// importCmd registers filings produced by the scraper handoff file. Filings
// already known to the store keep their pipeline state; only metadata is
// refreshed.
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Register scraped filings from a JSON handoff file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		data, err := os.ReadFile(importFile)
		if err != nil {
			return eris.Wrap(err, "read handoff file")
		}

		var filings []model.Filing
		if err := json.Unmarshal(data, &filings); err != nil {
			return eris.Wrap(err, "parse handoff file")
		}
		if len(filings) == 0 {
			zap.L().Info("handoff file contains no filings")
			return nil
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		added, err := st.CreateFilings(ctx, filings)
		if err != nil {
			return eris.Wrap(err, "register filings")
		}

		zap.L().Info("import complete",
			zap.Int("in_file", len(filings)),
			zap.Int64("new", added),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "path to the scraper handoff JSON file (required)")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}

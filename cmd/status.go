package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show per-stage queue counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		counts, err := st.StageSummary(ctx, cfg.Pipeline.MaxRetries)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "STAGE\tREADY\tSUCCEEDED\tFAILED\tEXHAUSTED")
		for _, c := range counts {
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n", c.Stage, c.Ready, c.Succeeded, c.Failed, c.Exhausted)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

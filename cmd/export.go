package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/carelane/medcheck/internal/export"
	"github.com/carelane/medcheck/internal/store"
)

var (
	exportRunID  string
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a stored run's results to JSON or CSV",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		f, err := export.ParseFormat(exportFormat)
		if err != nil {
			return err
		}

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()

		results, err := st.ListResults(ctx, exportRunID)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			return eris.Errorf("export: no results stored for run %s", exportRunID)
		}

		path := exportOutput
		if path == "" {
			path = export.DefaultFileName(f, time.Now())
		}

		out, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "export: create %s", path)
		}
		defer out.Close()

		if err := export.Write(out, f, results); err != nil {
			return err
		}

		fmt.Printf("Exported %d results to %s\n", len(results), path)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportRunID, "run", "", "run ID to export (required)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "output format: json or csv")
	exportCmd.Flags().StringVar(&exportOutput, "output", "", "output path (default validation-results-<date>.<format>)")
	_ = exportCmd.MarkFlagRequired("run")
	rootCmd.AddCommand(exportCmd)
}

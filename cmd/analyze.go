package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/carelane/medcheck/internal/ingest"
	"github.com/carelane/medcheck/internal/pipeline"
)

var (
	analyzeFile    string
	analyzeCharset string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a file without validating it",
	Long: `Parses a file and prints its analysis as JSON: detected type, sample
rows, data quality scores, PII scan, and the recommended owning team. No
oracle calls are made.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		info, err := os.Stat(analyzeFile)
		if err != nil {
			return eris.Wrapf(err, "analyze: stat %s", analyzeFile)
		}

		pf, err := ingest.ParseFile(analyzeFile, ingest.CSVOptions{Charset: analyzeCharset})
		if err != nil {
			return eris.Wrapf(err, "analyze: parse %s", analyzeFile)
		}

		analysis := pipeline.AnalyzeFile(filepath.Base(analyzeFile), info.Size(), pf)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(analysis), "analyze: encode")
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFile, "file", "", "CSV or XLSX file to analyze (required)")
	analyzeCmd.Flags().StringVar(&analyzeCharset, "charset", "", "source charset for CSV files (default utf-8)")
	_ = analyzeCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(analyzeCmd)
}

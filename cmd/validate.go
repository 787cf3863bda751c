package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/carelane/medcheck/internal/export"
	"github.com/carelane/medcheck/internal/ingest"
	"github.com/carelane/medcheck/internal/model"
	"github.com/carelane/medcheck/internal/pipeline"
	"github.com/carelane/medcheck/internal/resilience"
)

var (
	validateFile    string
	validateCharset string
	validateOutput  string
	validateFormat  string
	validateOffline bool
	validateNotify  bool
	validateChannel string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a medical, drug, or policy file",
	Long: `Parses a CSV or XLSX file, infers its type from headers, and validates
every record in batches against the oracle. Duplicates within the file are
flagged, and each run is persisted for later inspection.

Examples:
  # Validate with the real API and print a report
  medcheck validate --file claims.csv

  # Offline smoke run, export results as CSV
  medcheck validate --file drugs.xlsx --offline --output results.csv --format csv

  # Validate and post the summary to the configured webhook
  medcheck validate --file policies.csv --notify --channel "#data-intake"`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx, validateOffline)
		if err != nil {
			return err
		}
		defer e.Close()

		run, results, analysis, err := runValidation(ctx, e, validateFile, validateCharset)
		if err != nil {
			return err
		}

		if validateOutput != "" {
			if err := exportResults(results, validateOutput, validateFormat); err != nil {
				return err
			}
			fmt.Printf("Results written to %s\n", validateOutput)
		} else {
			fmt.Print(pipeline.FormatReport(filepath.Base(validateFile), results, analysis))
		}
		fmt.Printf("\nRun ID: %s\n", run.ID)

		if validateNotify {
			if err := e.Notifier.SendValidationResults(ctx, results, validateChannel); err != nil {
				return eris.Wrap(err, "validate: notify")
			}
		}

		return nil
	},
}

// runValidation runs the full pipeline for one file: parse, analyze, validate
// in batches, persist the run and its per-record results. Failed batches land
// in the dead letter queue keyed to the run.
func runValidation(ctx context.Context, e *env, path, charset string) (*model.Run, []model.ValidationResult, *model.FileAnalysis, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, nil, eris.Wrapf(err, "validate: stat %s", path)
	}

	pf, err := ingest.ParseFile(path, ingest.CSVOptions{Charset: charset})
	if err != nil {
		return nil, nil, nil, eris.Wrapf(err, "validate: parse %s", path)
	}
	zap.L().Info("file parsed",
		zap.String("file", path),
		zap.String("type", string(pf.Type)),
		zap.Int("records", len(pf.Records)),
		zap.Int("skipped", pf.SkippedRows),
	)

	analysis := pipeline.AnalyzeFile(filepath.Base(path), info.Size(), pf)

	run, err := e.Store.CreateRun(ctx, filepath.Base(path), pf.Type)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := e.Store.UpdateRunStatus(ctx, run.ID, model.RunStatusValidating); err != nil {
		return nil, nil, nil, err
	}

	// The hook is passed per call so concurrent runs on the shared Validator
	// each enqueue under their own run ID.
	onFailure := func(batch []model.Record, batchErr error) {
		entry := resilience.NewDLQEntry(run.ID, batch, batchErr, cfg.Validator.MaxAttempts)
		if dlqErr := e.Store.EnqueueDLQ(ctx, entry); dlqErr != nil {
			zap.L().Error("dlq enqueue failed", zap.String("run_id", run.ID), zap.Error(dlqErr))
		}
	}

	results, err := e.Validator.ValidateAll(ctx, pf.Records, onFailure)
	if err != nil {
		if failErr := e.Store.FailRun(ctx, run.ID, err.Error()); failErr != nil {
			zap.L().Error("fail run", zap.String("run_id", run.ID), zap.Error(failErr))
		}
		return nil, nil, nil, err
	}

	if err := e.Store.SaveResults(ctx, run.ID, results); err != nil {
		return nil, nil, nil, err
	}
	if err := e.Store.UpdateRunResult(ctx, run.ID, &model.RunResult{
		Summary:  model.Summarize(results),
		Results:  results,
		Analysis: analysis,
	}); err != nil {
		return nil, nil, nil, err
	}

	return run, results, analysis, nil
}

func exportResults(results []model.ValidationResult, path, format string) error {
	f, err := export.ParseFormat(format)
	if err != nil {
		return err
	}

	out, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "validate: create %s", path)
	}
	defer out.Close()

	return export.Write(out, f, results)
}

func init() {
	validateCmd.Flags().StringVar(&validateFile, "file", "", "CSV or XLSX file to validate (required)")
	validateCmd.Flags().StringVar(&validateCharset, "charset", "", "source charset for CSV files (default utf-8)")
	validateCmd.Flags().StringVar(&validateOutput, "output", "", "write results to a file instead of printing a report")
	validateCmd.Flags().StringVar(&validateFormat, "format", "json", "output format: json or csv")
	validateCmd.Flags().BoolVar(&validateOffline, "offline", false, "use the stub oracle (no API key needed)")
	validateCmd.Flags().BoolVar(&validateNotify, "notify", false, "post the summary to the configured webhook")
	validateCmd.Flags().StringVar(&validateChannel, "channel", "", "webhook channel override")
	_ = validateCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(validateCmd)
}

package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/carelane/medcheck/internal/model"
	"github.com/carelane/medcheck/internal/resilience"
	"github.com/carelane/medcheck/internal/store"
)

var (
	dlqErrorType string
	dlqRunID     string
	dlqLimit     int
	dlqOffline   bool
)

var dlqCmd = &cobra.Command{
	Use:   "dlq",
	Short: "Inspect and retry failed validation batches",
}

var dlqListCmd = &cobra.Command{
	Use:   "list",
	Short: "List retryable failed batches",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()

		entries, err := st.DequeueDLQ(ctx, resilience.DLQFilter{
			ErrorType: dlqErrorType,
			RunID:     dlqRunID,
			Limit:     dlqLimit,
		})
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tRUN\tRECORDS\tKIND\tRETRIES\tNEXT RETRY")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%d/%d\t%s\n",
				e.ID, e.RunID, len(e.Records), e.ErrorKind,
				e.RetryCount, e.MaxRetries, e.NextRetryAt.Format(time.RFC3339))
		}
		return w.Flush()
	},
}

var dlqRetryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Re-validate failed batches that are due for retry",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx, dlqOffline)
		if err != nil {
			return err
		}
		defer e.Close()

		entries, err := e.Store.DequeueDLQ(ctx, resilience.DLQFilter{
			ErrorType: dlqErrorType,
			RunID:     dlqRunID,
			Limit:     dlqLimit,
		})
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No batches due for retry.")
			return nil
		}

		retried := 0
		for _, entry := range entries {
			// No failure hook here: a batch that fails again is handled by the
			// retry-count bookkeeping below, not re-enqueued as a new entry.
			results, err := e.Validator.ValidateAll(ctx, entry.Records, nil)
			if err != nil {
				return err
			}

			// A retry that still produces only invalid results counts as a
			// failure; push the retry clock instead of clearing the entry.
			succeeded := 0
			for _, r := range results {
				if r.Status != model.StatusInvalid {
					succeeded++
				}
			}
			if succeeded == 0 {
				next := time.Now().UTC().Add(15 * time.Minute)
				if err := e.Store.IncrementDLQRetry(ctx, entry.ID, next, "retry produced no valid results"); err != nil {
					return err
				}
				continue
			}

			// Results land in a fresh run: the entry carries its records but
			// not their positions in the original run, so writing back there
			// would collide with rows that already succeeded.
			run, err := e.Store.CreateRun(ctx, "dlq-retry-"+entry.ID, entry.Records[0].Type)
			if err != nil {
				return err
			}
			if err := e.Store.SaveResults(ctx, run.ID, results); err != nil {
				return err
			}
			if err := e.Store.UpdateRunResult(ctx, run.ID, &model.RunResult{
				Summary: model.Summarize(results),
				Results: results,
			}); err != nil {
				return err
			}
			if err := e.Store.RemoveDLQ(ctx, entry.ID); err != nil {
				return err
			}
			zap.L().Info("dlq batch retried",
				zap.String("entry_id", entry.ID),
				zap.String("source_run", entry.RunID),
				zap.String("retry_run", run.ID),
			)
			retried++
		}

		fmt.Printf("Retried %d of %d batches.\n", retried, len(entries))
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{dlqListCmd, dlqRetryCmd} {
		c.Flags().StringVar(&dlqErrorType, "error-type", "", "filter by error type (transient, permanent)")
		c.Flags().StringVar(&dlqRunID, "run", "", "filter by run ID")
		c.Flags().IntVar(&dlqLimit, "limit", 50, "maximum entries")
	}
	dlqRetryCmd.Flags().BoolVar(&dlqOffline, "offline", false, "use the stub oracle (no API key needed)")
	dlqCmd.AddCommand(dlqListCmd)
	dlqCmd.AddCommand(dlqRetryCmd)
	rootCmd.AddCommand(dlqCmd)
}

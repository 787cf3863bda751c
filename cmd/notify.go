package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/carelane/medcheck/internal/notify"
	"github.com/carelane/medcheck/internal/store"
)

var (
	notifyRunID   string
	notifyChannel string
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Post a stored run's summary to the configured webhook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()

		results, err := st.ListResults(ctx, notifyRunID)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			return eris.Errorf("notify: no results stored for run %s", notifyRunID)
		}

		n := notify.NewNotifier(cfg.Notify)
		return n.SendValidationResults(ctx, results, notifyChannel)
	},
}

func init() {
	notifyCmd.Flags().StringVar(&notifyRunID, "run", "", "run ID to notify about (required)")
	notifyCmd.Flags().StringVar(&notifyChannel, "channel", "", "webhook channel override")
	_ = notifyCmd.MarkFlagRequired("run")
	rootCmd.AddCommand(notifyCmd)
}

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"neuroflow/internal/batch"
	"neuroflow/internal/pipeline"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "batch <manifest.csv>",
		Short: "Process every subject listed in a manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			subjects, err := batch.ReadManifest(args[0])
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			orch, err := pipeline.New(cfg, st, logger)
			if err != nil {
				return err
			}
			if workers <= 0 {
				workers = cfg.Batch.Workers
			}
			coordinator, err := batch.NewCoordinator(orch, workers, logger)
			if err != nil {
				return err
			}

			report := coordinator.Run(cmd.Context(), subjects)
			printBatchReport(cmd.OutOrStdout(), report)
			if report.Failed > 0 {
				return fmt.Errorf("%d of %d subjects failed", report.Failed, len(report.Outcomes))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent subjects (defaults to the configured cap)")
	return cmd
}

func printBatchReport(out io.Writer, report batch.Report) {
	headers := []string{"Subject", "Status", "Failed Stage", "Classification", "Metrics", "Duration"}
	rows := make([][]string, 0, len(report.Outcomes))
	for _, outcome := range report.Outcomes {
		failedStage := "-"
		if outcome.FailedStage != "" {
			failedStage = stageLabel(outcome.FailedStage)
		}
		rows = append(rows, []string{
			outcome.SubjectID,
			statusLabel(outcome.Status),
			failedStage,
			dash(outcome.Classification),
			fmt.Sprintf("%d", outcome.MetricCount),
			formatDuration(outcome.Duration),
		})
	}

	if isTerminal(out) {
		fmt.Fprintln(out, renderTable(headers, rows, []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight}))
	} else {
		for _, row := range rows {
			fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%s\t%s\n", row[0], row[1], row[2], row[3], row[4], row[5])
		}
	}
	fmt.Fprintf(out, "Batch %s: %d completed, %d failed in %s\n",
		report.RunID, report.Completed, report.Failed, formatDuration(report.Duration()))
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"neuroflow/internal/pipeline"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "run <subject-id> <source-dir>",
		Short: "Process one subject through every pipeline stage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
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

			subject := pipeline.Subject{
				ID:        args[0],
				SourceDir: args[1],
				OutputDir: outputDir,
			}
			result := orch.Process(cmd.Context(), subject)
			printRunResult(cmd, result)
			if !result.Completed() {
				// Non-zero exit so schedulers can account for the failure.
				return fmt.Errorf("subject %s failed at %s (%s)", result.SubjectID, result.FailedStage, result.Classification)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Override the configured subjects directory for this run")
	return cmd
}

func printRunResult(cmd *cobra.Command, result pipeline.Result) {
	out := cmd.OutOrStdout()
	if result.Completed() {
		fmt.Fprintf(out, "Subject %s completed in %s\n", result.SubjectID, formatDuration(result.Duration))
		fmt.Fprintf(out, "  Stages run: %d, skipped: %d\n", len(result.StagesRun), len(result.StagesSkipped))
		fmt.Fprintf(out, "  Metrics extracted: %d\n", result.MetricCount)
		if result.Retries > 0 {
			fmt.Fprintf(out, "  Reconstruction retries: %d\n", result.Retries)
		}
		return
	}
	fmt.Fprintf(out, "Subject %s failed at %s after %s\n", result.SubjectID, stageLabel(result.FailedStage), formatDuration(result.Duration))
	fmt.Fprintf(out, "  Classification: %s\n", result.Classification)
	if result.Err != nil {
		fmt.Fprintf(out, "  Error: %v\n", result.Err)
	}
}

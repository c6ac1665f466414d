package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"neuroflow/internal/store"
)

func newSubjectsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "subjects",
		Short: "List registered subjects and their stage progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			subjects, err := st.ListSubjects(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(subjects) == 0 {
				fmt.Fprintln(out, "No subjects registered")
				return nil
			}

			headers := []string{"Subject", "Source", "Validate", "Convert", "Reconstruct", "Extract"}
			rows := make([][]string, 0, len(subjects))
			for _, subject := range subjects {
				states, err := st.StageStates(cmd.Context(), subject.SubjectID)
				if err != nil {
					return err
				}
				row := []string{subject.SubjectID, subject.SourceDir}
				for _, stage := range store.Stages() {
					row = append(row, stageCell(states[stage]))
				}
				rows = append(rows, row)
			}
			writeRows(out, headers, rows)
			return nil
		},
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <subject-id>",
		Short: "Show stage detail and extracted metrics for one subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			subjectID := args[0]
			subject, err := st.GetSubject(cmd.Context(), subjectID)
			if err != nil {
				return err
			}
			if subject == nil {
				return fmt.Errorf("subject %s is not registered", subjectID)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Subject %s (source %s)\n", subject.SubjectID, subject.SourceDir)

			states, err := st.StageStates(cmd.Context(), subjectID)
			if err != nil {
				return err
			}
			stageRows := make([][]string, 0, len(states))
			for _, stage := range store.Stages() {
				state := states[stage]
				if state == nil {
					stageRows = append(stageRows, []string{stageLabel(stage), "-", "0", "-", "-", ""})
					continue
				}
				stageRows = append(stageRows, []string{
					stageLabel(stage),
					statusLabel(state.Status),
					fmt.Sprintf("%d", state.Attempts),
					formatTimestamp(state.StartedAt),
					formatTimestamp(state.FinishedAt),
					state.ErrorMessage,
				})
			}
			writeRows(out, []string{"Stage", "Status", "Attempts", "Started", "Finished", "Error"}, stageRows)

			scan, err := st.ScanForSubject(cmd.Context(), subjectID)
			if err != nil {
				return err
			}
			if scan != nil && scan.ReconRuntimeSeconds > 0 {
				fmt.Fprintf(out, "Reconstruction runtime: %.0fs (retries %d)\n", scan.ReconRuntimeSeconds, scan.ReconRetries)
			}

			records, err := st.RecordsForSubject(cmd.Context(), subjectID)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(out, "No metrics extracted")
				return nil
			}
			metricRows := make([][]string, 0, len(records))
			for _, record := range records {
				metricRows = append(metricRows, []string{
					record.Metric,
					fmt.Sprintf("%.2f", record.Value),
					record.Unit,
				})
			}
			writeRows(out, []string{"Metric", "Value", "Unit"}, metricRows)
			return nil
		},
	}
}

func stageCell(state *store.StageRecord) string {
	if state == nil {
		return "-"
	}
	return string(state.Status)
}

func writeRows(out io.Writer, headers []string, rows [][]string) {
	if isTerminal(out) {
		aligns := make([]columnAlignment, len(headers))
		fmt.Fprintln(out, renderTable(headers, rows, aligns))
		return
	}
	for _, row := range rows {
		for i, cell := range row {
			if i > 0 {
				fmt.Fprint(out, "\t")
			}
			fmt.Fprint(out, cell)
		}
		fmt.Fprintln(out)
	}
}

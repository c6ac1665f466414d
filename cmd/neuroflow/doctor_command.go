package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"neuroflow/internal/deps"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external tool availability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			statuses := deps.CheckBinaries(deps.FromConfig(cfg))
			statuses = append(statuses, deps.CheckLicense(cfg))

			rows := make([][]string, 0, len(statuses))
			missing := 0
			for _, status := range statuses {
				state := "ok"
				if !status.Available {
					if status.Optional {
						state = "optional"
					} else {
						state = "missing"
						missing++
					}
				}
				rows = append(rows, []string{status.Name, status.Description, state, dash(status.Detail)})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Dependency", "Description", "Status", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			))

			if missing > 0 {
				return errors.New("required dependencies are missing")
			}
			return nil
		},
	}
}

package main

import (
	"fmt"
	"time"

	"github.com/haltia/matrix-ci/internal/workflow"
	"github.com/spf13/cobra"
)

func newNextCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "next <manifest>",
		Short: "Print the next fire times of a manifest's schedule triggers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := workflow.Load(args[0])
			if err != nil {
				return err
			}
			if len(wf.On.Schedule) == 0 {
				return fmt.Errorf("%s declares no schedule trigger", args[0])
			}

			now := time.Now().UTC()
			for _, entry := range wf.On.Schedule {
				times, err := workflow.NextRuns(entry.Cron, now, count)
				if err != nil {
					return err
				}
				for _, t := range times {
					fmt.Fprintf(
						cmd.OutOrStdout(),
						"%s\t%s\n",
						entry.Cron, t.Format(time.RFC3339),
					)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 5, "fire times per schedule entry")
	return cmd
}

package main

import (
	"encoding/json"
	"os"

	"github.com/haltia/matrix-ci/internal"
	"github.com/haltia/matrix-ci/internal/workflow"
	"github.com/spf13/cobra"
)

func newPlanCmd() *cobra.Command {
	var (
		kind    string
		branch  string
		message string
		markers []string
	)
	cmd := &cobra.Command{
		Use:   "plan <manifest>",
		Short: "Evaluate a manifest against a synthetic trigger event",
		Long: `Evaluate a manifest against a synthetic trigger event and print the
resulting plan as JSON: whether the workflow triggers at all and, per
expanded job instantiation, whether the check is eligible or skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			wf, err := workflow.ParseAndValidate(data)
			if err != nil {
				return err
			}
			k, err := workflow.ParseEventKind(kind)
			if err != nil {
				return err
			}

			plan, err := wf.Evaluate(
				workflow.Event{
					Kind:          k,
					Branch:        branch,
					CommitMessage: message,
				},
				workflow.PlanOptions{SkipMarkers: markers},
			)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(plan)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "push",
		"event kind: push, pull_request, schedule or workflow_dispatch")
	cmd.Flags().StringVar(&branch, "branch", "", "branch the event refers to")
	cmd.Flags().StringVar(&message, "message", "", "commit message the event carries")
	cmd.Flags().StringSliceVar(&markers, "skip-marker", internal.DefaultSkipMarkers,
		"commit message markers that skip every job")
	return cmd
}

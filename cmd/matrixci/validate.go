package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/haltia/matrix-ci/internal/workflow"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <manifest>",
		Short: "Parse and validate a workflow manifest file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			wf, err := workflow.ParseAndValidate(data)
			if err != nil {
				var verr *workflow.ValidationError
				if errors.As(err, &verr) {
					for _, issue := range verr.Issues {
						fmt.Fprintln(cmd.ErrOrStderr(), issue)
					}
					return fmt.Errorf(
						"%s: %d validation issue(s)",
						args[0], len(verr.Issues),
					)
				}
				return err
			}

			name := wf.Name
			if name == "" {
				name = args[0]
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d jobs)\n", name, len(wf.Jobs))
			if refs := wf.SecretRefs(); len(refs) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "referenced secrets: %v\n", refs)
			}
			return nil
		},
	}
}

// matrixci validates and plans workflow manifests without a running
// hub, so a repository can lint its own manifests from a shell or a
// pre-commit hook.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "matrixci",
		Short:         "Validate and plan CI workflow manifests",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newValidateCmd(),
		newPlanCmd(),
		newNextCmd(),
	)
	return root
}

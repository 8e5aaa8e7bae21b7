package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/54b3r/catalograg-go/internal/version"
)

// NewVersionCmd constructs the `catalograg version` subcommand.
// It prints the binary version, git commit, and build date injected at
// build time via -ldflags.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the catalograg version, git commit, and build date",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return err
		},
	}
}

package version

import (
	"fmt"

	"github.com/spf13/cobra"
)

// AttachCobraVersionCommand attaches a `version` subcommand to root and sets
// root.Version so that --version works as well.
func AttachCobraVersionCommand(root *cobra.Command) {
	root.Version = Short()
	root.SetVersionTemplate(Full() + "\n")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information.",
		Long:  "Print the buildpack version together with the commit hash and build timestamp injected at release time.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), Full())
		},
	})
}

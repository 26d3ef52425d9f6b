package cli

import (
	"fmt"

	"github.com/anoideaopen/proxymanager/version"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, err := version.BuildInfo()
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "proxymanager %s (%s)\n", info.Main.Version, info.GoVersion)
			return nil
		},
	}
}

package cli

import (
	"io"
	"os"

	"github.com/anoideaopen/proxymanager/core/proxy"
	"github.com/spf13/cobra"
)

type inspection struct {
	Format   string          `json:"format"`
	Envelope *proxy.Envelope `json:"envelope"`
}

func newInspectCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Decode a serialized proxy without restoring it",
		Long:  "Decode a serialized proxy in JSON or CBOR form. Use - to read from standard input.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}

			env, format, err := proxy.DecodeEnvelope(data)
			if err != nil {
				return err
			}

			return write(cmd.OutOrStdout(), opts.output, inspection{Format: format.String(), Envelope: env})
		},
	}
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

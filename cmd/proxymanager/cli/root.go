// Package cli implements the proxymanager command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/anoideaopen/proxymanager/core/config"
	"github.com/spf13/cobra"
)

// ErrUnknownOutput is returned for an unsupported --output value.
var ErrUnknownOutput = errors.New("unknown output format")

// Output formats.
const (
	OutputYAML = "yaml"
	OutputJSON = "json"
)

type rootOptions struct {
	configPath string
	output     string
}

// Execute runs the command tree against the process streams.
func Execute() error {
	cmd := NewRootCmd(context.Background(), os.Stdout, os.Stderr)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return err
	}
	return nil
}

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

// NewRootCmd builds the root command.
func NewRootCmd(ctx context.Context, outWriter, errWriter io.Writer) *cobra.Command {
	opts := &rootOptions{}
	if ctx == nil {
		ctx = context.Background()
	}

	cmd := &cobra.Command{
		Use:           "proxymanager",
		Short:         "Inspect and produce serialized access interceptor proxies",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetContext(ctx)
	cmd.SetOut(outWriter)
	cmd.SetErr(errWriter)

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a JSON, YAML or TOML config file; PROXYMANAGER_* variables are used when empty")
	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", OutputYAML, "Output format: yaml or json")

	cmd.AddCommand(
		newInspectCmd(opts),
		newConfigCmd(opts),
		newSampleCmd(opts),
		newVersionCmd(),
	)

	return cmd
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	if o.configPath == "" {
		return config.FromEnv()
	}
	return config.FromFile(o.configPath)
}

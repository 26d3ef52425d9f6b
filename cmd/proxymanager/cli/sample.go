package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/anoideaopen/proxymanager/core/interceptor"
	"github.com/anoideaopen/proxymanager/core/proxy"
	"github.com/anoideaopen/proxymanager/core/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// Ledger is the class proxied by the sample command.
type Ledger struct {
	Entries []int
	Total   int
}

// Record adds amount to the ledger and returns the new total.
func (l *Ledger) Record(amount int) int {
	l.Entries = append(l.Entries, amount)
	l.Total += amount
	return l.Total
}

func (l *Ledger) ParameterNames() map[string][]string {
	return map[string][]string{"Record": {"amount"}}
}

// sampleLimit is the largest amount the sample interceptor lets through.
const sampleLimit = 1000

func rejectLarge(_, instance any, _ string, params *interceptor.Params, returnEarly *bool) (any, error) {
	if amount, _ := params.Get("amount"); amount.(int) > sampleLimit { //nolint:forcetypeassert
		*returnEarly = true
		return instance.(*Ledger).Total, nil //nolint:forcetypeassert
	}
	return nil, nil
}

type sampleOptions struct {
	format  string
	out     string
	amounts []int
}

func newSampleCmd(opts *rootOptions) *cobra.Command {
	sample := &sampleOptions{}

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Record amounts through a proxied ledger and print the serialized proxy",
		Long: fmt.Sprintf("Record amounts through a proxied ledger whose Record method has a catalog "+
			"prefix interceptor rejecting amounts above %d, then serialize the proxy.", sampleLimit),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSample(cmd, opts, sample)
		},
	}
	cmd.Flags().StringVar(&sample.format, "format", proxy.FormatJSON.String(), "Serialization format: json or cbor")
	cmd.Flags().StringVar(&sample.out, "out", "", "Write the serialized proxy to this file instead of standard output")
	cmd.Flags().IntSliceVar(&sample.amounts, "amount", []int{10, 5000, 25}, "Amounts to record")

	return cmd
}

func runSample(cmd *cobra.Command, opts *rootOptions, sample *sampleOptions) (err error) {
	var format proxy.Format
	switch sample.format {
	case proxy.FormatJSON.String():
		format = proxy.FormatJSON
	case proxy.FormatCBOR.String():
		format = proxy.FormatCBOR
	default:
		return fmt.Errorf("%w: '%s'", proxy.ErrUnknownFormat, sample.format)
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	shutdown, err := telemetry.InstallTraceProvider(cfg.Tracing)
	if err != nil {
		return err
	}
	defer joinShutdown(cmd.Context(), shutdown, &err)

	f, err := proxy.NewFactoryFromConfig(cfg, prometheus.NewRegistry())
	if err != nil {
		return err
	}
	if err = f.Catalog().RegisterPrefix("reject-large", rejectLarge); err != nil {
		return err
	}

	p, err := f.CreateProxy(&Ledger{}, nil, nil)
	if err != nil {
		return err
	}
	if err = p.UsePrefixInterceptor("Record", "reject-large"); err != nil {
		return err
	}

	ctx, span := telemetry.Tracer().Start(cmd.Context(), "proxymanager.sample")
	defer span.End()

	for _, amount := range sample.amounts {
		if _, err = p.CallContext(ctx, "Record", amount); err != nil {
			return err
		}
	}

	data, err := p.Marshal(ctx, format)
	if err != nil {
		return err
	}

	if sample.out != "" {
		return os.WriteFile(sample.out, data, 0o600)
	}

	_, err = cmd.OutOrStdout().Write(append(data, '\n'))
	return err
}

// joinShutdown flushes the trace provider and adds a failure to *err.
func joinShutdown(ctx context.Context, shutdown func(context.Context) error, err *error) {
	if serr := shutdown(ctx); serr != nil {
		*err = errors.Join(*err, fmt.Errorf("flushing traces: %w", serr))
	}
}

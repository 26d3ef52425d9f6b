package dispatch_test

import (
	"context"
	"errors"
	"testing"

	"github.com/anoideaopen/proxymanager/core/dispatch"
	"github.com/anoideaopen/proxymanager/core/interceptor"
	"github.com/anoideaopen/proxymanager/core/metrics"
	"github.com/anoideaopen/proxymanager/core/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var errBoom = errors.New("boom")

type recorder struct {
	steps []string
}

func (r *recorder) prefix(value any, returnEarly bool, err error) interceptor.Prefix {
	return func(_, _ any, member string, _ *interceptor.Params, early *bool) (any, error) {
		r.steps = append(r.steps, "prefix:"+member)
		*early = returnEarly
		return value, err
	}
}

func (r *recorder) suffix(value any, returnEarly bool, err error) interceptor.Suffix {
	return func(_, _ any, member string, _ *interceptor.Params, result any, early *bool) (any, error) {
		r.steps = append(r.steps, "suffix:"+member)
		*early = returnEarly
		return value, err
	}
}

func (r *recorder) real(value any, err error) dispatch.Real {
	return func(context.Context) (any, error) {
		r.steps = append(r.steps, "real")
		return value, err
	}
}

func TestDispatch(t *testing.T) {
	for _, test := range []struct {
		name   string
		prefix func(r *recorder) interceptor.Prefix
		suffix func(r *recorder) interceptor.Suffix
		real   func(r *recorder) dispatch.Real
		result any
		err    error
		steps  []string
	}{
		{
			name:   "no interceptors",
			real:   func(r *recorder) dispatch.Real { return r.real("real", nil) },
			result: "real",
			steps:  []string{"real"},
		},
		{
			name:   "prefix without early return",
			prefix: func(r *recorder) interceptor.Prefix { return r.prefix("ignored", false, nil) },
			suffix: func(r *recorder) interceptor.Suffix { return r.suffix("ignored", false, nil) },
			real:   func(r *recorder) dispatch.Real { return r.real("real", nil) },
			result: "real",
			steps:  []string{"prefix:m", "real", "suffix:m"},
		},
		{
			name:   "prefix returns early",
			prefix: func(r *recorder) interceptor.Prefix { return r.prefix("early", true, nil) },
			suffix: func(r *recorder) interceptor.Suffix { return r.suffix("suffix", true, nil) },
			real:   func(r *recorder) dispatch.Real { return r.real("real", nil) },
			result: "early",
			steps:  []string{"prefix:m"},
		},
		{
			name:   "suffix overrides",
			suffix: func(r *recorder) interceptor.Suffix { return r.suffix("suffix", true, nil) },
			real:   func(r *recorder) dispatch.Real { return r.real("real", nil) },
			result: "suffix",
			steps:  []string{"real", "suffix:m"},
		},
		{
			name:   "prefix error",
			prefix: func(r *recorder) interceptor.Prefix { return r.prefix(nil, false, errBoom) },
			real:   func(r *recorder) dispatch.Real { return r.real("real", nil) },
			err:    errBoom,
			steps:  []string{"prefix:m"},
		},
		{
			name:   "real error skips suffix",
			suffix: func(r *recorder) interceptor.Suffix { return r.suffix("suffix", true, nil) },
			real:   func(r *recorder) dispatch.Real { return r.real(nil, errBoom) },
			err:    errBoom,
			steps:  []string{"real"},
		},
		{
			name:   "suffix error",
			suffix: func(r *recorder) interceptor.Suffix { return r.suffix(nil, false, errBoom) },
			real:   func(r *recorder) dispatch.Real { return r.real("real", nil) },
			err:    errBoom,
			steps:  []string{"real", "suffix:m"},
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			r := &recorder{}
			registry := interceptor.NewRegistry(nil, nil)
			if test.prefix != nil {
				registry.SetPrefix("m", test.prefix(r))
			}
			if test.suffix != nil {
				registry.SetSuffix("m", test.suffix(r))
			}

			d := dispatch.New(registry)
			result, err := d.Dispatch(context.Background(), dispatch.Call{Member: "m"}, test.real(r))
			if test.err != nil {
				require.ErrorIs(t, err, test.err)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, test.result, result)
			require.Equal(t, test.steps, r.steps)
		})
	}
}

func TestDispatchPassesCallToInterceptors(t *testing.T) {
	proxy, instance := new(int), new(string)
	params := interceptor.NewParams(interceptor.Param{Name: "amount", Value: 10})

	var seen []any
	registry := interceptor.NewRegistry(
		interceptor.Prefixes{"Increment": func(p, i any, member string, ps *interceptor.Params, _ *bool) (any, error) {
			seen = append(seen, p, i, member, ps)
			ps.Set("amount", 20)
			return nil, nil
		}},
		interceptor.Suffixes{"Increment": func(p, i any, member string, ps *interceptor.Params, result any, _ *bool) (any, error) {
			seen = append(seen, result)
			return nil, nil
		}},
	)

	d := dispatch.New(registry)
	_, err := d.Dispatch(context.Background(), dispatch.Call{
		Proxy:    proxy,
		Instance: instance,
		Member:   "Increment",
		Params:   params,
	}, func(context.Context) (any, error) {
		v, _ := params.Get("amount")
		return v, nil
	})
	require.NoError(t, err)

	require.Len(t, seen, 5)
	require.Same(t, proxy, seen[0])
	require.Same(t, instance, seen[1])
	require.Equal(t, "Increment", seen[2])
	require.Same(t, params, seen[3])
	require.Equal(t, 20, seen[4])
}

func TestDispatchIsolatesMembers(t *testing.T) {
	r := &recorder{}
	registry := interceptor.NewRegistry(
		interceptor.Prefixes{"A": r.prefix("a", true, nil)},
		nil,
	)

	d := dispatch.New(registry)
	result, err := d.Dispatch(context.Background(), dispatch.Call{Member: "B"}, r.real("b", nil))
	require.NoError(t, err)
	require.Equal(t, "b", result)
	require.Equal(t, []string{"real"}, r.steps)
}

func TestDispatchSnapshotsInterceptors(t *testing.T) {
	registry := interceptor.NewRegistry(nil, nil)
	d := dispatch.New(registry)

	var steps []string
	registry.SetPrefix("m", func(_, _ any, _ string, _ *interceptor.Params, _ *bool) (any, error) {
		steps = append(steps, "prefix")
		// Replacing interceptors from inside a call affects later calls only.
		registry.SetSuffix("m", func(_, _ any, _ string, _ *interceptor.Params, _ any, early *bool) (any, error) {
			steps = append(steps, "late suffix")
			*early = true
			return "late", nil
		})
		registry.SetPrefix("m", nil)
		return nil, nil
	})

	result, err := d.Dispatch(context.Background(), dispatch.Call{Member: "m"}, func(context.Context) (any, error) {
		steps = append(steps, "real")
		return "real", nil
	})
	require.NoError(t, err)
	require.Equal(t, "real", result)
	require.Equal(t, []string{"prefix", "real"}, steps)

	result, err = d.Dispatch(context.Background(), dispatch.Call{Member: "m"}, func(context.Context) (any, error) {
		return "real", nil
	})
	require.NoError(t, err)
	require.Equal(t, "late", result)
}

func TestDispatchReentrantCall(t *testing.T) {
	registry := interceptor.NewRegistry(nil, nil)
	d := dispatch.New(registry)

	var steps []string
	registry.SetPrefix("outer", func(_, _ any, _ string, _ *interceptor.Params, _ *bool) (any, error) {
		steps = append(steps, "outer prefix")
		v, err := d.Dispatch(context.Background(), dispatch.Call{Member: "inner"}, func(context.Context) (any, error) {
			steps = append(steps, "inner real")
			return "inner", nil
		})
		steps = append(steps, v.(string)) //nolint:forcetypeassert
		return nil, err
	})
	registry.SetSuffix("inner", func(_, _ any, _ string, _ *interceptor.Params, _ any, _ *bool) (any, error) {
		steps = append(steps, "inner suffix")
		return nil, nil
	})

	result, err := d.Dispatch(context.Background(), dispatch.Call{Member: "outer"}, func(context.Context) (any, error) {
		steps = append(steps, "outer real")
		return "outer", nil
	})
	require.NoError(t, err)
	require.Equal(t, "outer", result)
	require.Equal(t, []string{"outer prefix", "inner real", "inner suffix", "inner", "outer real"}, steps)
}

func TestDispatchTracesAndCounts(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg, "test")
	require.NoError(t, err)

	registry := interceptor.NewRegistry(
		interceptor.Prefixes{"Fail": func(_, _ any, _ string, _ *interceptor.Params, _ *bool) (any, error) {
			return nil, errBoom
		}},
		nil,
	)
	d := dispatch.New(registry,
		dispatch.WithTracer(tp.Tracer("test")),
		dispatch.WithMetrics(m),
		dispatch.WithClassName("Counter"),
	)

	_, err = d.Dispatch(context.Background(), dispatch.Call{Member: "Get"}, func(context.Context) (any, error) { return 1, nil })
	require.NoError(t, err)
	_, err = d.Dispatch(context.Background(), dispatch.Call{Member: "Fail"}, func(context.Context) (any, error) { return 1, nil })
	require.ErrorIs(t, err, errBoom)

	spans := sr.Ended()
	require.Len(t, spans, 2)

	require.Equal(t, "proxy.Get", spans[0].Name())
	require.Contains(t, spans[0].Attributes(), telemetry.Class("Counter"))
	require.Contains(t, spans[0].Attributes(), telemetry.ResolvedBy(telemetry.StageReal))

	require.Equal(t, "proxy.Fail", spans[1].Name())
	require.Equal(t, codes.Error, spans[1].Status().Code)
	require.Contains(t, spans[1].Attributes(), telemetry.ResolvedBy(telemetry.StagePrefix))

	count, err := testutil.GatherAndCount(reg, "test_dispatches_total")
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestNestedCallsAreChildSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	registry := interceptor.NewRegistry(nil, nil)
	d := dispatch.New(registry, dispatch.WithTracer(tp.Tracer("test")))

	registry.SetPrefix("outer", func(_, _ any, _ string, params *interceptor.Params, _ *bool) (any, error) {
		return d.Dispatch(params.Context(), dispatch.Call{Member: "fromPrefix"}, func(context.Context) (any, error) {
			return nil, nil
		})
	})

	_, err := d.Dispatch(context.Background(), dispatch.Call{Member: "outer"}, func(ctx context.Context) (any, error) {
		return d.Dispatch(ctx, dispatch.Call{Member: "fromReal"}, func(context.Context) (any, error) {
			return nil, nil
		})
	})
	require.NoError(t, err)

	spans := make(map[string]sdktrace.ReadOnlySpan)
	for _, span := range sr.Ended() {
		spans[span.Name()] = span
	}
	require.Len(t, spans, 3)

	outer := spans["proxy.outer"].SpanContext()
	require.False(t, spans["proxy.outer"].Parent().IsValid())
	require.Equal(t, outer.SpanID(), spans["proxy.fromPrefix"].Parent().SpanID())
	require.Equal(t, outer.SpanID(), spans["proxy.fromReal"].Parent().SpanID())
	require.Equal(t, outer.TraceID(), spans["proxy.fromReal"].SpanContext().TraceID())
}

func TestWithRegistry(t *testing.T) {
	r1 := interceptor.NewRegistry(nil, nil)
	r2 := interceptor.NewRegistry(nil, nil)

	d1 := dispatch.New(r1, dispatch.WithClassName("A"))
	d2 := d1.WithRegistry(r2)

	require.Same(t, r1, d1.Registry())
	require.Same(t, r2, d2.Registry())
}

// Package dispatch runs an intercepted call: prefix interceptor, real
// operation, suffix interceptor.
package dispatch

import (
	"context"
	"time"

	"github.com/anoideaopen/proxymanager/core/interceptor"
	"github.com/anoideaopen/proxymanager/core/metrics"
	"github.com/anoideaopen/proxymanager/core/telemetry"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Call identifies one intercepted operation.
type Call struct {
	Proxy    any
	Instance any
	Member   string
	Params   *interceptor.Params
}

// Real performs the operation being intercepted. ctx carries the span of the
// intercepted call.
type Real func(ctx context.Context) (any, error)

// Dispatcher runs calls against the interceptors of one registry.
type Dispatcher struct {
	registry *interceptor.Registry
	class    string
	tracer   trace.Tracer
	log      logrus.FieldLogger
	metrics  *metrics.Metrics
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTracer sets the tracer spans are started with.
func WithTracer(tracer trace.Tracer) Option {
	return func(d *Dispatcher) {
		d.tracer = tracer
	}
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(d *Dispatcher) {
		d.log = log
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithClassName labels spans, logs and metrics with the proxied class.
func WithClassName(name string) Option {
	return func(d *Dispatcher) {
		d.class = name
	}
}

// New creates a dispatcher over registry.
func New(registry *interceptor.Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		tracer:   telemetry.Tracer(),
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Registry returns the registry the dispatcher reads interceptors from.
func (d *Dispatcher) Registry() *interceptor.Registry {
	return d.registry
}

// WithRegistry returns a dispatcher with the same settings over another registry.
func (d *Dispatcher) WithRegistry(registry *interceptor.Registry) *Dispatcher {
	c := *d
	c.registry = registry
	return &c
}

// Dispatch runs call. Both interceptors are looked up before anything runs,
// so changes made to the registry during the call apply to later calls only.
//
// A prefix that sets returnEarly decides the result; the real operation and
// the suffix are skipped. Otherwise real runs, and on success the suffix may
// replace its result by setting returnEarly. Errors from interceptors and from
// real are returned unchanged and a failing real operation skips the suffix.
//
// Interceptors reach the context of the call through call.Params.Context, so
// calls they make are traced as children of this one.
func (d *Dispatcher) Dispatch(ctx context.Context, call Call, real Real) (any, error) {
	prefix, suffix := d.registry.Lookup(call.Member)

	start := time.Now()
	ctx, span := d.tracer.Start(ctx, "proxy."+call.Member,
		trace.WithAttributes(telemetry.Class(d.class), telemetry.Member(call.Member)))
	defer span.End()

	if call.Params == nil {
		call.Params = interceptor.NewParams()
	}
	call.Params.BindContext(ctx)

	log := d.log.WithFields(logrus.Fields{"class": d.class, "member": call.Member})

	result, stage, err := d.run(ctx, call, real, prefix, suffix)

	outcome := stage.String()
	if err != nil {
		outcome = metrics.OutcomeError
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.WithError(err).WithField("stage", stage.String()).Debug("intercepted call failed")
	} else {
		log.WithField("stage", stage.String()).Debug("intercepted call")
	}
	span.SetAttributes(telemetry.ResolvedBy(stage))
	d.metrics.ObserveDispatch(d.class, call.Member, outcome, time.Since(start))

	return result, err
}

func (d *Dispatcher) run(
	ctx context.Context,
	call Call,
	real Real,
	prefix interceptor.Prefix,
	suffix interceptor.Suffix,
) (any, telemetry.Stage, error) {
	if prefix != nil {
		returnEarly := false
		v, err := prefix(call.Proxy, call.Instance, call.Member, call.Params, &returnEarly)
		if err != nil {
			return nil, telemetry.StagePrefix, err
		}
		if returnEarly {
			return v, telemetry.StagePrefix, nil
		}
	}

	result, err := real(ctx)
	if err != nil {
		return nil, telemetry.StageReal, err
	}

	if suffix == nil {
		return result, telemetry.StageReal, nil
	}

	returnEarly := false
	v, err := suffix(call.Proxy, call.Instance, call.Member, call.Params, result, &returnEarly)
	if err != nil {
		return nil, telemetry.StageSuffix, err
	}
	if returnEarly {
		return v, telemetry.StageSuffix, nil
	}

	return result, telemetry.StageReal, nil
}

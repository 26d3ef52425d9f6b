package proxy

import (
	"errors"
	"fmt"
	"sync"

	"github.com/anoideaopen/proxymanager/core/config"
	"github.com/anoideaopen/proxymanager/core/dispatch"
	"github.com/anoideaopen/proxymanager/core/interceptor"
	"github.com/anoideaopen/proxymanager/core/logger"
	"github.com/anoideaopen/proxymanager/core/metrics"
	"github.com/anoideaopen/proxymanager/core/namer"
	"github.com/anoideaopen/proxymanager/core/reflectx"
	"github.com/anoideaopen/proxymanager/core/scope"
	"github.com/anoideaopen/proxymanager/core/telemetry"
	"github.com/anoideaopen/proxymanager/core/valueholder"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

// ErrUnknownClass is returned when serialized data names a class the factory
// has not seen.
var ErrUnknownClass = errors.New("unknown class")

// Factory creates proxies and restores serialized ones.
type Factory struct {
	namer   namer.Namer
	log     logrus.FieldLogger
	tracer  trace.Tracer
	metrics *metrics.Metrics
	catalog *interceptor.Catalog

	mu      sync.RWMutex
	classes map[string]*reflectx.Class
}

// Option configures a Factory.
type Option func(*Factory)

// WithNamer sets how proxy identifiers are generated.
func WithNamer(n namer.Namer) Option {
	return func(f *Factory) {
		f.namer = n
	}
}

// WithLogger sets the logger used by the factory and its proxies.
func WithLogger(log logrus.FieldLogger) Option {
	return func(f *Factory) {
		f.log = log
	}
}

// WithTracer sets the tracer used by the factory and its proxies.
func WithTracer(tracer trace.Tracer) Option {
	return func(f *Factory) {
		f.tracer = tracer
	}
}

// WithMetrics sets the metrics sink used by the factory and its proxies.
func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Factory) {
		f.metrics = m
	}
}

// WithCatalog sets the catalog named interceptors are resolved from.
func WithCatalog(c *interceptor.Catalog) Option {
	return func(f *Factory) {
		f.catalog = c
	}
}

// NewFactory creates a factory. Without options it logs through the process
// logger, traces through the global provider and issues UUID identifiers.
func NewFactory(opts ...Option) *Factory {
	f := &Factory{
		namer:   namer.UUIDNamer{},
		log:     logger.Logger(),
		tracer:  telemetry.Tracer(),
		catalog: interceptor.NewCatalog(),
		classes: make(map[string]*reflectx.Class),
	}
	for _, opt := range opts {
		opt(f)
	}

	return f
}

// NewFactoryFromConfig creates a factory from cfg. Metrics are registered
// with reg when enabled; a nil reg means the default prometheus registerer.
// Options are applied after the configuration.
func NewFactoryFromConfig(cfg *config.Config, reg prometheus.Registerer, opts ...Option) (*Factory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, err
	}

	n, err := namer.New(cfg.Naming)
	if err != nil {
		return nil, err
	}

	base := []Option{WithLogger(log), WithNamer(n)}
	if cfg.Metrics.Enabled {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		m, err := metrics.New(reg, cfg.Metrics.Namespace)
		if err != nil {
			return nil, fmt.Errorf("registering metrics: %w", err)
		}
		base = append(base, WithMetrics(m))
	}

	return NewFactory(append(base, opts...)...), nil
}

// Catalog returns the catalog of named interceptors.
func (f *Factory) Catalog() *interceptor.Catalog {
	return f.catalog
}

// Register makes the class of prototype known to Unmarshal. Classes of
// proxies created by the factory are registered automatically.
func (f *Factory) Register(prototype any) error {
	_, err := f.classOf(prototype)
	return err
}

// CreateProxy wraps instance with the given initial interceptors.
func (f *Factory) CreateProxy(instance any, prefix interceptor.Prefixes, suffix interceptor.Suffixes) (*Proxy, error) {
	class, err := f.classOf(instance)
	if err != nil {
		return nil, err
	}

	holder, err := valueholder.NewEager(instance)
	if err != nil {
		return nil, err
	}

	return f.newProxy(class, holder, interceptor.NewRegistry(prefix, suffix), ""), nil
}

// CreateLazyProxy returns a proxy whose real instance is built by init on the
// first intercepted access. prototype only identifies the class and may be a
// nil pointer of the class type.
func (f *Factory) CreateLazyProxy(
	prototype any,
	init valueholder.Initializer,
	prefix interceptor.Prefixes,
	suffix interceptor.Suffixes,
) (*Proxy, error) {
	class, err := f.classOf(prototype)
	if err != nil {
		return nil, err
	}

	return f.newProxy(class, f.lazyHolder(class, init), interceptor.NewRegistry(prefix, suffix), ""), nil
}

// Instantiate allocates a new instance of the class of prototype, runs its
// Construct method with args and wraps it without interceptors.
func (f *Factory) Instantiate(prototype any, args ...any) (*Proxy, error) {
	class, err := f.classOf(prototype)
	if err != nil {
		return nil, err
	}

	instance := class.New()
	if m, ok := class.Method(reflectx.ConstructorName); ok {
		in, err := m.Bind(args)
		if err != nil {
			return nil, err
		}
		if _, err = reflectx.Fold(m, reflectx.Invoke(instance, m, in)); err != nil {
			return nil, fmt.Errorf("constructing %s: %w", class.Name, err)
		}
	} else if len(args) > 0 {
		return nil, fmt.Errorf("%w: %s has no constructor", reflectx.ErrIncorrectArgumentCount, class.Name)
	}

	return f.CreateProxy(instance, nil, nil)
}

func (f *Factory) classOf(v any) (*reflectx.Class, error) {
	class, err := reflectx.ClassOf(v)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.classes[class.Name] = class
	return class, nil
}

func (f *Factory) lookupClass(name string) (*reflectx.Class, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	class, ok := f.classes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClass, name)
	}

	return class, nil
}

// lazyHolder wraps init so that it can only realize instances of class.
func (f *Factory) lazyHolder(class *reflectx.Class, init valueholder.Initializer) *valueholder.Lazy {
	holder := valueholder.NewLazy(func(trigger string) (any, error) {
		instance, err := init(trigger)
		if err != nil || instance == nil {
			return instance, err
		}
		if !class.Is(instance) {
			return nil, fmt.Errorf("%w: initializer returned %T, expected %s", scope.ErrTypeMismatch, instance, class.Type)
		}

		return instance, nil
	})
	holder.OnInitialize(func(err error) {
		f.metrics.ObserveInitialization(class.Name, err)
	})

	return holder
}

func (f *Factory) newProxy(class *reflectx.Class, holder valueholder.Holder, registry *interceptor.Registry, id string) *Proxy {
	if id == "" {
		id = f.namer.Identifier(class.Name)
	}

	p := &Proxy{
		id:      id,
		class:   class,
		sim:     scope.ForClass(class),
		holder:  holder,
		factory: f,
		log:     f.log.WithFields(logrus.Fields{"class": class.Name, "proxy": id}),
		dispatcher: dispatch.New(registry,
			dispatch.WithClassName(class.Name),
			dispatch.WithLogger(f.log.WithField("proxy", id)),
			dispatch.WithTracer(f.tracer),
			dispatch.WithMetrics(f.metrics),
		),
	}
	p.log.WithField("lazy", !holder.Realized()).Debug("proxy created")

	return p
}

// Package proxy wraps instances of ordinary Go types so that every method
// call and property access runs through per-member prefix and suffix
// interceptors.
//
//	f := proxy.NewFactory()
//	p, _ := f.CreateProxy(&Counter{}, interceptor.Prefixes{
//	    "Increment": func(proxy, instance any, member string, params *interceptor.Params, returnEarly *bool) (any, error) {
//	        if v, _ := params.Get("amount"); v == 150 {
//	            *returnEarly = true
//	        }
//	        return nil, nil
//	    },
//	}, nil)
//	_, _ = p.Call("Increment", 150) // skipped
//	_, _ = p.Call("Increment", 10)
package proxy

import (
	"context"
	"fmt"

	"github.com/anoideaopen/proxymanager/core/dispatch"
	"github.com/anoideaopen/proxymanager/core/interceptor"
	"github.com/anoideaopen/proxymanager/core/reflectx"
	"github.com/anoideaopen/proxymanager/core/scope"
	"github.com/anoideaopen/proxymanager/core/telemetry"
	"github.com/anoideaopen/proxymanager/core/valueholder"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ValueHolder exposes the real instance behind a proxy.
type ValueHolder interface {
	WrappedValue() any
}

// AccessInterceptor lets callers replace the interceptors of a proxy.
type AccessInterceptor interface {
	SetPrefixInterceptor(member string, fn interceptor.Prefix)
	SetSuffixInterceptor(member string, fn interceptor.Suffix)
}

// LazyLoading is implemented by proxies that may build their instance late.
type LazyLoading interface {
	IsInitialized() bool
	Initialize() error
}

var (
	_ ValueHolder       = (*Proxy)(nil)
	_ AccessInterceptor = (*Proxy)(nil)
	_ LazyLoading       = (*Proxy)(nil)
	_ scope.Accessor    = (*Proxy)(nil)
)

// Proxy intercepts access to one real instance.
type Proxy struct {
	id         string
	class      *reflectx.Class
	sim        *scope.Simulator
	holder     valueholder.Holder
	dispatcher *dispatch.Dispatcher
	factory    *Factory
	log        logrus.FieldLogger
}

// ID returns the identifier issued by the factory's namer.
func (p *Proxy) ID() string {
	return p.id
}

// Class returns the proxied class.
func (p *Proxy) Class() *reflectx.Class {
	return p.class
}

// ClassName returns the name of the proxied class.
func (p *Proxy) ClassName() string {
	return p.class.Name
}

// SetPrefixInterceptor replaces the prefix interceptor of member.
// A nil fn removes it.
func (p *Proxy) SetPrefixInterceptor(member string, fn interceptor.Prefix) {
	p.dispatcher.Registry().SetPrefix(member, fn)
}

// SetSuffixInterceptor replaces the suffix interceptor of member.
// A nil fn removes it.
func (p *Proxy) SetSuffixInterceptor(member string, fn interceptor.Suffix) {
	p.dispatcher.Registry().SetSuffix(member, fn)
}

// UsePrefixInterceptor installs the prefix interceptor registered in the
// factory catalog under name. Unlike anonymous interceptors, catalog
// interceptors survive serialization.
func (p *Proxy) UsePrefixInterceptor(member, name string) error {
	return p.dispatcher.Registry().BindPrefix(member, name, p.factory.catalog)
}

// UseSuffixInterceptor installs a catalog suffix interceptor. See UsePrefixInterceptor.
func (p *Proxy) UseSuffixInterceptor(member, name string) error {
	return p.dispatcher.Registry().BindSuffix(member, name, p.factory.catalog)
}

// WrappedValue returns the real instance, or nil while a lazy proxy is not
// initialized.
func (p *Proxy) WrappedValue() any {
	v, ok := p.holder.Current()
	if !ok {
		return nil
	}

	return v
}

// IsInitialized reports whether the real instance exists.
func (p *Proxy) IsInitialized() bool {
	return p.holder.Realized()
}

// Initialize realizes a lazy proxy. It does nothing once the instance exists.
func (p *Proxy) Initialize() error {
	_, err := p.instance(context.Background(), "Initialize")
	return err
}

// SetWrappedValue replaces the real instance. v must be of the proxied class.
func (p *Proxy) SetWrappedValue(v any) error {
	if !p.class.Is(v) {
		return fmt.Errorf("%w: expected %s, got %T", scope.ErrTypeMismatch, p.class.Type, v)
	}

	return p.holder.Replace(v)
}

// Clone returns a proxy over a deep copy of the real instance. The copy's
// PostClone hook runs when the class has one. A lazy proxy that is not
// initialized yet is cloned into another lazy proxy with the same
// initializer. The clone starts with a copy of the interceptors and its own
// identifier; later changes to either proxy do not affect the other.
func (p *Proxy) Clone() (*Proxy, error) {
	var holder valueholder.Holder

	if current, ok := p.holder.Current(); ok {
		eager, err := valueholder.NewEager(scope.DeepCopy(current))
		if err != nil {
			return nil, err
		}
		holder = eager
	} else {
		lazy, ok := p.holder.(*valueholder.Lazy)
		if !ok {
			return nil, fmt.Errorf("cloning %s: unexpected holder %T", p.class.Name, p.holder)
		}
		holder = p.factory.lazyHolder(p.class, lazy.Initializer())
	}

	c := p.factory.newProxy(p.class, holder, p.dispatcher.Registry().Clone(), "")
	p.log.WithField("clone", c.id).Debug("proxy cloned")

	return c, nil
}

// instance returns the real instance, realizing it on behalf of member.
func (p *Proxy) instance(ctx context.Context, member string) (any, error) {
	if v, ok := p.holder.Current(); ok {
		return v, nil
	}

	_, span := p.factory.tracer.Start(ctx, "proxy.initialize", trace.WithAttributes(
		telemetry.Class(p.class.Name),
		telemetry.Lazy(true),
		telemetry.Trigger(member),
	))
	defer span.End()

	v, err := p.holder.Value(member)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.log.WithError(err).WithField("trigger", member).Warn("proxy initialization failed")
		return nil, err
	}
	p.log.WithField("trigger", member).Debug("proxy initialized")

	return v, nil
}

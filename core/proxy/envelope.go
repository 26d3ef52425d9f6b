package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anoideaopen/proxymanager/core/interceptor"
	"github.com/anoideaopen/proxymanager/core/scope"
	"github.com/anoideaopen/proxymanager/core/telemetry"
	"github.com/anoideaopen/proxymanager/core/valueholder"
	"github.com/anoideaopen/proxymanager/version"
	"github.com/fxamacker/cbor/v2"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// EnvelopeVersion is the current serialization format version.
const EnvelopeVersion = 1

// Serialization errors.
var (
	ErrUnsupportedVersion = errors.New("unsupported envelope version")
	ErrUnknownFormat      = errors.New("unknown serialization format")
)

// Format selects the envelope encoding.
type Format int

const (
	FormatJSON Format = iota
	FormatCBOR
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatCBOR:
		return "cbor"
	default:
		return "unknown"
	}
}

// Envelope is the serialized form of a proxy: the state of its real instance
// and the catalog names of its interceptors.
type Envelope struct {
	Version  int               `json:"version" cbor:"version"`
	Build    string            `json:"build,omitempty" cbor:"build,omitempty"`
	ID       string            `json:"id" cbor:"id"`
	Class    string            `json:"class" cbor:"class"`
	Instance *scope.Snapshot   `json:"instance" cbor:"instance"`
	Prefix   map[string]string `json:"prefix,omitempty" cbor:"prefix,omitempty"`
	Suffix   map[string]string `json:"suffix,omitempty" cbor:"suffix,omitempty"`
	Trace    map[string]string `json:"trace,omitempty" cbor:"trace,omitempty"`
}

// DecodeEnvelope decodes an envelope without restoring it. The format is
// detected from the data.
func DecodeEnvelope(data []byte) (*Envelope, Format, error) {
	env := new(Envelope)

	format := FormatCBOR
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		format = FormatJSON
	}

	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, env)
	default:
		err = cbor.Unmarshal(data, env)
	}
	if err != nil {
		return nil, format, fmt.Errorf("decoding %s envelope: %w", format, err)
	}

	if env.Version != EnvelopeVersion {
		return nil, format, fmt.Errorf("%w: %d", ErrUnsupportedVersion, env.Version)
	}

	return env, format, nil
}

// Envelope captures the proxy. A lazy proxy is initialized first. Proxies
// holding interceptors that were not installed from the factory catalog
// cannot be captured and fail with interceptor.ErrNotSerializable.
func (p *Proxy) Envelope(ctx context.Context) (*Envelope, error) {
	prefix, suffix, err := p.dispatcher.Registry().Names()
	if err != nil {
		return nil, fmt.Errorf("serializing %s: %w", p.class.Name, err)
	}

	instance, err := p.instance(ctx, "Envelope")
	if err != nil {
		return nil, err
	}

	snap, err := p.sim.Snapshot(instance)
	if err != nil {
		return nil, err
	}

	env := &Envelope{
		Version:  EnvelopeVersion,
		ID:       p.id,
		Class:    p.class.Name,
		Instance: snap,
		Build:    version.Module(),
		Trace:    telemetry.Inject(ctx),
	}
	if len(prefix) > 0 {
		env.Prefix = prefix
	}
	if len(suffix) > 0 {
		env.Suffix = suffix
	}

	return env, nil
}

// Marshal encodes the proxy in the given format.
func (p *Proxy) Marshal(ctx context.Context, format Format) ([]byte, error) {
	ctx, span := p.factory.tracer.Start(ctx, "proxy.marshal", trace.WithAttributes(telemetry.Class(p.class.Name)))
	defer span.End()

	data, err := p.marshal(ctx, format)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return data, err
}

func (p *Proxy) marshal(ctx context.Context, format Format) ([]byte, error) {
	env, err := p.Envelope(ctx)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatJSON:
		return json.Marshal(env)
	case FormatCBOR:
		return cbor.Marshal(env)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownFormat, format)
	}
}

// MarshalJSON implements json.Marshaler.
func (p *Proxy) MarshalJSON() ([]byte, error) {
	return p.Marshal(context.Background(), FormatJSON)
}

// MarshalBinary implements encoding.BinaryMarshaler with the CBOR encoding.
func (p *Proxy) MarshalBinary() ([]byte, error) {
	return p.Marshal(context.Background(), FormatCBOR)
}

// Unmarshal restores a proxy serialized in either format. The class must be
// known to the factory and named interceptors must be in its catalog. The
// restored proxy keeps the identifier of the original.
func (f *Factory) Unmarshal(data []byte) (*Proxy, error) {
	env, _, err := DecodeEnvelope(data)
	if err != nil {
		return nil, err
	}

	return f.Restore(context.Background(), env)
}

// Restore builds a proxy from a decoded envelope.
func (f *Factory) Restore(ctx context.Context, env *Envelope) (*Proxy, error) {
	_, span := f.tracer.Start(telemetry.Extract(ctx, env.Trace), "proxy.unmarshal",
		trace.WithAttributes(telemetry.Class(env.Class)))
	defer span.End()

	p, err := f.restore(env)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return p, nil
}

func (f *Factory) restore(env *Envelope) (*Proxy, error) {
	class, err := f.lookupClass(env.Class)
	if err != nil {
		return nil, err
	}

	instance := class.New()
	if env.Instance != nil {
		if err = scope.ForClass(class).Restore(instance, env.Instance); err != nil {
			return nil, err
		}
	}

	registry := interceptor.NewRegistry(nil, nil)
	for member, name := range env.Prefix {
		if err = registry.BindPrefix(member, name, f.catalog); err != nil {
			return nil, err
		}
	}
	for member, name := range env.Suffix {
		if err = registry.BindSuffix(member, name, f.catalog); err != nil {
			return nil, err
		}
	}

	holder, err := valueholder.NewEager(instance)
	if err != nil {
		return nil, err
	}

	return f.newProxy(class, holder, registry, env.ID), nil
}

package proxy

import (
	"context"
	"fmt"
	"reflect"

	"github.com/anoideaopen/proxymanager/core/dispatch"
	"github.com/anoideaopen/proxymanager/core/interceptor"
	"github.com/anoideaopen/proxymanager/core/reflectx"
	"github.com/anoideaopen/proxymanager/core/types"
)

// Parameter names of the property and __call members.
const (
	ParamName      = "name"
	ParamValue     = "value"
	ParamArguments = "arguments"
)

// Call invokes method on the real instance through its interceptors.
// Arguments are converted to the parameter types the way reflectx.Call does.
// Pointer arguments to non-struct values are passed through unchanged, so
// writes made through them by interceptors or by the method reach the caller.
// A trailing variadic tail is collected into one slice parameter.
//
// Methods the class does not declare go through the __call member when the
// class implements types.MethodCaller.
func (p *Proxy) Call(method string, args ...any) (any, error) {
	return p.CallContext(context.Background(), method, args...)
}

// CallContext is Call with a context carrying the parent span.
func (p *Proxy) CallContext(ctx context.Context, method string, args ...any) (any, error) {
	m, ok := p.class.Method(method)
	if !ok {
		if p.class.Capabilities.Call {
			return p.callUndeclared(ctx, method, args)
		}
		return nil, fmt.Errorf("%w: %s::%s", reflectx.ErrMethodNotFound, p.class.Name, method)
	}

	in, err := m.Bind(args)
	if err != nil {
		return nil, err
	}

	instance, err := p.instance(ctx, method)
	if err != nil {
		return nil, err
	}

	return p.dispatcher.Dispatch(ctx, dispatch.Call{
		Proxy:    p,
		Instance: instance,
		Member:   method,
		Params:   paramsOf(m, in),
	}, p.real(method, func(current any) (any, error) {
		return reflectx.Fold(m, reflectx.Invoke(current, m, in))
	}))
}

func (p *Proxy) callUndeclared(ctx context.Context, method string, args []any) (any, error) {
	instance, err := p.instance(ctx, interceptor.MemberCall)
	if err != nil {
		return nil, err
	}

	return p.dispatcher.Dispatch(ctx, dispatch.Call{
		Proxy:    p,
		Instance: instance,
		Member:   interceptor.MemberCall,
		Params: interceptor.NewParams(
			interceptor.Param{Name: ParamName, Value: method},
			interceptor.Param{Name: ParamArguments, Value: args},
		),
	}, p.real(interceptor.MemberCall, func(current any) (any, error) {
		return current.(types.MethodCaller).CallMethod(method, args) //nolint:forcetypeassert
	}))
}

// Get reads a property through the __get member.
func (p *Proxy) Get(name string) (any, error) {
	return p.GetContext(context.Background(), name)
}

// GetContext is Get with a context carrying the parent span.
func (p *Proxy) GetContext(ctx context.Context, name string) (any, error) {
	instance, err := p.instance(ctx, interceptor.MemberGet)
	if err != nil {
		return nil, err
	}

	return p.dispatcher.Dispatch(ctx, p.propertyCall(instance, interceptor.MemberGet, name), p.real(interceptor.MemberGet, func(current any) (any, error) {
		return p.sim.Read(current, name)
	}))
}

// GetRef returns a reference aliasing the property's storage, through the
// __get member. When an interceptor supplies the result instead, the
// reference holds that value and is detached from the instance.
func (p *Proxy) GetRef(name string) (*reflectx.Ref, error) {
	instance, err := p.instance(context.Background(), interceptor.MemberGet)
	if err != nil {
		return nil, err
	}

	result, err := p.dispatcher.Dispatch(context.Background(), p.propertyCall(instance, interceptor.MemberGet, name), p.real(interceptor.MemberGet, func(current any) (any, error) {
		return p.sim.ReadRef(current, name)
	}))
	if err != nil {
		return nil, err
	}

	if ref, ok := result.(*reflectx.Ref); ok {
		return ref, nil
	}

	return reflectx.Detached(result), nil
}

// Set writes a property through the __set member.
func (p *Proxy) Set(name string, value any) error {
	return p.SetContext(context.Background(), name, value)
}

// SetContext is Set with a context carrying the parent span.
func (p *Proxy) SetContext(ctx context.Context, name string, value any) error {
	instance, err := p.instance(ctx, interceptor.MemberSet)
	if err != nil {
		return err
	}

	call := p.propertyCall(instance, interceptor.MemberSet, name)
	call.Params.Set(ParamValue, value)

	_, err = p.dispatcher.Dispatch(ctx, call, p.real(interceptor.MemberSet, func(current any) (any, error) {
		return value, p.sim.Write(current, name, value)
	}))

	return err
}

// Isset reports, through the __isset member, whether a property is set and not nil.
func (p *Proxy) Isset(name string) (bool, error) {
	instance, err := p.instance(context.Background(), interceptor.MemberIsset)
	if err != nil {
		return false, err
	}

	result, err := p.dispatcher.Dispatch(context.Background(), p.propertyCall(instance, interceptor.MemberIsset, name), p.real(interceptor.MemberIsset, func(current any) (any, error) {
		return p.sim.Exists(current, name)
	}))
	if err != nil {
		return false, err
	}

	return truthy(result), nil
}

// Unset removes a property through the __unset member.
func (p *Proxy) Unset(name string) error {
	instance, err := p.instance(context.Background(), interceptor.MemberUnset)
	if err != nil {
		return err
	}

	_, err = p.dispatcher.Dispatch(context.Background(), p.propertyCall(instance, interceptor.MemberUnset, name), p.real(interceptor.MemberUnset, func(current any) (any, error) {
		return nil, p.sim.Unset(current, name)
	}))

	return err
}

// ReadProperty implements scope.Accessor.
func (p *Proxy) ReadProperty(name string) (any, error) { return p.Get(name) }

// ReadPropertyRef implements scope.Accessor.
func (p *Proxy) ReadPropertyRef(name string) (*reflectx.Ref, error) { return p.GetRef(name) }

// WriteProperty implements scope.Accessor.
func (p *Proxy) WriteProperty(name string, value any) error { return p.Set(name, value) }

// PropertyExists implements scope.Accessor.
func (p *Proxy) PropertyExists(name string) (bool, error) { return p.Isset(name) }

// RemoveProperty implements scope.Accessor.
func (p *Proxy) RemoveProperty(name string) error { return p.Unset(name) }

// real runs op on the instance wrapped when the real operation starts, so a
// prefix interceptor that replaces the wrapped value redirects the call.
func (p *Proxy) real(member string, op func(instance any) (any, error)) dispatch.Real {
	return func(ctx context.Context) (any, error) {
		instance, err := p.instance(ctx, member)
		if err != nil {
			return nil, err
		}

		return op(instance)
	}
}

func (p *Proxy) propertyCall(instance any, member, name string) dispatch.Call {
	return dispatch.Call{
		Proxy:    p,
		Instance: instance,
		Member:   member,
		Params:   interceptor.NewParams(interceptor.Param{Name: ParamName, Value: name}),
	}
}

// paramsOf builds the parameter bag of a bound call in declaration order.
func paramsOf(m *reflectx.Method, in []reflect.Value) *interceptor.Params {
	params := make([]interceptor.Param, len(m.Params))
	for i, param := range m.Params {
		params[i] = interceptor.Param{Name: param.Name, Value: in[i].Interface()}
	}

	return interceptor.NewParams(params...)
}

// truthy interprets an interceptor supplied existence result.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	default:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
			return !rv.IsNil()
		default:
			return !rv.IsZero()
		}
	}
}

package scope

import (
	"errors"
	"fmt"
	"reflect"
	"unsafe"

	"github.com/anoideaopen/proxymanager/core/reflectx"
	"github.com/anoideaopen/proxymanager/core/types"
)

// Simulator errors.
var (
	ErrUndefinedProperty = errors.New("undefined property")
	ErrTypeMismatch      = errors.New("target type mismatch")
	ErrUnsupportedValue  = errors.New("value cannot be captured")
)

// Simulator performs property operations on instances of one class with the
// visibility the class has into its own instances: unexported fields are
// reachable. When the class defines a property hook for an operation, the hook
// is called instead; the choice is made once, when the simulator is built.
type Simulator struct {
	class *reflectx.Class

	read    func(target any, name string) (any, error)
	readRef func(target any, name string) (*reflectx.Ref, error)
	write   func(target any, name string, value any) error
	exists  func(target any, name string) (bool, error)
	unset   func(target any, name string) error
}

// NewSimulator binds a simulator to class.
func NewSimulator(class *reflectx.Class) *Simulator {
	s := &Simulator{class: class}

	s.read = s.privilegedRead
	if class.Capabilities.Get {
		s.read = hookRead
	}

	s.readRef = s.privilegedReadRef
	if class.Capabilities.Get {
		s.readRef = s.hookReadRef
	}

	s.write = s.privilegedWrite
	if class.Capabilities.Set {
		s.write = hookWrite
	}

	s.exists = s.privilegedExists
	if class.Capabilities.Isset {
		s.exists = hookExists
	}

	s.unset = s.privilegedUnset
	if class.Capabilities.Unset {
		s.unset = hookUnset
	}

	return s
}

// Class returns the class the simulator is bound to.
func (s *Simulator) Class() *reflectx.Class {
	return s.class
}

// Read returns the current value of the named property.
func (s *Simulator) Read(target any, name string) (any, error) {
	if err := s.check(target); err != nil {
		return nil, err
	}

	return s.read(target, name)
}

// ReadRef returns a reference aliasing the named property's storage.
func (s *Simulator) ReadRef(target any, name string) (*reflectx.Ref, error) {
	if err := s.check(target); err != nil {
		return nil, err
	}

	return s.readRef(target, name)
}

// Write sets the named property, creating a dynamic property when the class
// accepts them and the name is not declared.
func (s *Simulator) Write(target any, name string, value any) error {
	if err := s.check(target); err != nil {
		return err
	}

	return s.write(target, name, value)
}

// Exists reports whether the named property is present and not nil.
func (s *Simulator) Exists(target any, name string) (bool, error) {
	if err := s.check(target); err != nil {
		return false, err
	}

	return s.exists(target, name)
}

// Unset removes a dynamic property, or zeroes a declared one and marks it unset.
func (s *Simulator) Unset(target any, name string) error {
	if err := s.check(target); err != nil {
		return err
	}

	return s.unset(target, name)
}

func (s *Simulator) check(target any) error {
	if !s.class.Is(target) || reflect.ValueOf(target).IsNil() {
		return fmt.Errorf("%w: expected %s, got %T", ErrTypeMismatch, s.class.Type, target)
	}

	return nil
}

func (s *Simulator) undefined(name string) error {
	return fmt.Errorf("%w: %s::$%s", ErrUndefinedProperty, s.class.Name, name)
}

// field returns a settable value for the declared property, exported or not.
func field(target any, p *reflectx.Property) reflect.Value {
	return reach(reflect.ValueOf(target).Elem().FieldByIndex(p.Index))
}

// reach makes the addressable value v settable even when it was reached
// through an unexported field.
func reach(v reflect.Value) reflect.Value {
	if v.CanSet() {
		return v
	}

	return reflect.NewAt(v.Type(), unsafe.Pointer(v.UnsafeAddr())).Elem()
}

// declared returns the declared property unless it is currently unset.
func (s *Simulator) declared(target any, name string) (*reflectx.Property, bool) {
	p, ok := s.class.Property(name)
	if !ok {
		return nil, false
	}
	if bag, ok := types.BagOf(target); ok && bag.IsUnset(name) {
		return nil, false
	}

	return p, true
}

func (s *Simulator) privilegedRead(target any, name string) (any, error) {
	if p, ok := s.declared(target, name); ok {
		return field(target, p).Interface(), nil
	}

	if bag, ok := types.BagOf(target); ok {
		if v, ok := bag.Get(name); ok {
			return v, nil
		}
	}

	if s.class.Capabilities.Get {
		return hookRead(target, name)
	}

	return nil, s.undefined(name)
}

func (s *Simulator) privilegedReadRef(target any, name string) (*reflectx.Ref, error) {
	if p, ok := s.class.Property(name); ok {
		if bag, ok := types.BagOf(target); ok {
			bag.ClearUnset(name)
		}
		return reflectx.ValueRef(field(target, p)), nil
	}

	bag, ok := types.BagOf(target)
	if !ok {
		if s.class.Capabilities.Get {
			return s.hookReadRef(target, name)
		}
		return nil, s.undefined(name)
	}

	if _, ok = bag.Get(name); !ok {
		bag.Set(name, nil)
	}

	return reflectx.FuncRef(
		func() (any, error) {
			v, _ := bag.Get(name)
			return v, nil
		},
		func(v any) error {
			bag.Set(name, v)
			return nil
		},
	), nil
}

func (s *Simulator) privilegedWrite(target any, name string, value any) error {
	if p, ok := s.class.Property(name); ok {
		if err := reflectx.Assign(field(target, p), value); err != nil {
			return fmt.Errorf("%w: %s::$%s", err, s.class.Name, name)
		}
		if bag, ok := types.BagOf(target); ok {
			bag.ClearUnset(name)
		}
		return nil
	}

	if bag, ok := types.BagOf(target); ok {
		bag.Set(name, value)
		return nil
	}

	if s.class.Capabilities.Set {
		return hookWrite(target, name, value)
	}

	return s.undefined(name)
}

func (s *Simulator) privilegedExists(target any, name string) (bool, error) {
	if p, ok := s.declared(target, name); ok {
		return !isNil(field(target, p)), nil
	}

	if bag, ok := types.BagOf(target); ok {
		if v, ok := bag.Get(name); ok {
			return v != nil && !isNil(reflect.ValueOf(v)), nil
		}
	}

	if s.class.Capabilities.Isset {
		return hookExists(target, name)
	}

	return false, nil
}

func (s *Simulator) privilegedUnset(target any, name string) error {
	if p, ok := s.class.Property(name); ok {
		v := field(target, p)
		v.Set(reflect.Zero(v.Type()))
		if bag, ok := types.BagOf(target); ok {
			bag.MarkUnset(name)
		}
		return nil
	}

	if bag, ok := types.BagOf(target); ok && bag.Delete(name) {
		return nil
	}

	if s.class.Capabilities.Unset {
		return hookUnset(target, name)
	}

	return nil
}

func hookRead(target any, name string) (any, error) {
	return target.(types.PropertyGetter).GetProperty(name) //nolint:forcetypeassert
}

func (s *Simulator) hookReadRef(target any, name string) (*reflectx.Ref, error) {
	// Hooked values have no storage to alias; the reference reads and writes through the hooks.
	var set func(any) error
	if s.class.Capabilities.Set {
		set = func(v any) error {
			return hookWrite(target, name, v)
		}
	}

	return reflectx.FuncRef(
		func() (any, error) {
			return hookRead(target, name)
		},
		set,
	), nil
}

func hookWrite(target any, name string, value any) error {
	return target.(types.PropertySetter).SetProperty(name, value) //nolint:forcetypeassert
}

func hookExists(target any, name string) (bool, error) {
	return target.(types.PropertyIssetter).IssetProperty(name) //nolint:forcetypeassert
}

func hookUnset(target any, name string) error {
	return target.(types.PropertyUnsetter).UnsetProperty(name) //nolint:forcetypeassert
}

func isNil(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}

	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}

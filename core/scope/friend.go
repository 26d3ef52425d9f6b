package scope

import (
	"sync"

	"github.com/anoideaopen/proxymanager/core/reflectx"
)

// Accessor is implemented by values that route property access through their
// own machinery, such as proxies. The package level functions defer to it.
type Accessor interface {
	ReadProperty(name string) (any, error)
	ReadPropertyRef(name string) (*reflectx.Ref, error)
	WriteProperty(name string, value any) error
	PropertyExists(name string) (bool, error)
	RemoveProperty(name string) error
}

var simulators sync.Map // map[reflect.Type]*Simulator

// For returns the cached simulator for the class of target.
func For(target any) (*Simulator, error) {
	class, err := reflectx.ClassOf(target)
	if err != nil {
		return nil, err
	}

	return ForClass(class), nil
}

// ForClass returns the cached simulator for class.
func ForClass(class *reflectx.Class) *Simulator {
	if s, ok := simulators.Load(class.Type); ok {
		return s.(*Simulator) //nolint:forcetypeassert
	}

	s, _ := simulators.LoadOrStore(class.Type, NewSimulator(class))
	return s.(*Simulator) //nolint:forcetypeassert
}

// Read reads a property of target the way code of target's own type would:
// unexported fields are visible and hooks only serve undeclared names.
// When target is an Accessor the access is routed through it, so reading a
// property of a proxy fires its interceptors.
func Read(target any, name string) (any, error) {
	if a, ok := target.(Accessor); ok {
		return a.ReadProperty(name)
	}

	s, err := For(target)
	if err != nil {
		return nil, err
	}
	if err = s.check(target); err != nil {
		return nil, err
	}

	return s.privilegedRead(target, name)
}

// ReadRef returns a reference to a property of target. See Read.
func ReadRef(target any, name string) (*reflectx.Ref, error) {
	if a, ok := target.(Accessor); ok {
		return a.ReadPropertyRef(name)
	}

	s, err := For(target)
	if err != nil {
		return nil, err
	}
	if err = s.check(target); err != nil {
		return nil, err
	}

	return s.privilegedReadRef(target, name)
}

// Write sets a property of target. See Read.
func Write(target any, name string, value any) error {
	if a, ok := target.(Accessor); ok {
		return a.WriteProperty(name, value)
	}

	s, err := For(target)
	if err != nil {
		return err
	}
	if err = s.check(target); err != nil {
		return err
	}

	return s.privilegedWrite(target, name, value)
}

// Exists reports whether a property of target is set. See Read.
func Exists(target any, name string) (bool, error) {
	if a, ok := target.(Accessor); ok {
		return a.PropertyExists(name)
	}

	s, err := For(target)
	if err != nil {
		return false, err
	}
	if err = s.check(target); err != nil {
		return false, err
	}

	return s.privilegedExists(target, name)
}

// Unset unsets a property of target. See Read.
func Unset(target any, name string) error {
	if a, ok := target.(Accessor); ok {
		return a.RemoveProperty(name)
	}

	s, err := For(target)
	if err != nil {
		return err
	}
	if err = s.check(target); err != nil {
		return err
	}

	return s.privilegedUnset(target, name)
}

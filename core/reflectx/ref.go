package reflectx

import (
	"errors"
	"fmt"
	"reflect"
)

// Ref errors.
var (
	ErrNotPointer  = errors.New("not a non-nil pointer")
	ErrReadOnlyRef = errors.New("reference is read-only")
)

// Ref is an explicit mutable binding onto a storage location: a variable the
// caller passed by pointer, a struct field, or a slot served by accessor hooks.
// Writes through a Ref are visible to every other holder of the same storage.
type Ref struct {
	get func() (any, error)
	set func(any) error
}

// NewRef binds to the value ptr points to.
func NewRef(ptr any) (*Ref, error) {
	v := reflect.ValueOf(ptr)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return nil, fmt.Errorf("%w: %T", ErrNotPointer, ptr)
	}

	return ValueRef(v.Elem()), nil
}

// ValueRef binds to a settable reflect value.
func ValueRef(v reflect.Value) *Ref {
	return &Ref{
		get: func() (any, error) {
			return v.Interface(), nil
		},
		set: func(x any) error {
			return Assign(v, x)
		},
	}
}

// FuncRef binds to accessor functions. A nil set makes the reference read-only.
func FuncRef(get func() (any, error), set func(any) error) *Ref {
	return &Ref{get: get, set: set}
}

// Detached returns a reference to a fresh cell holding v. It is used when an
// interceptor replaces a by-reference result with a plain value.
func Detached(v any) *Ref {
	cell := v
	return &Ref{
		get: func() (any, error) {
			return cell, nil
		},
		set: func(x any) error {
			cell = x
			return nil
		},
	}
}

// Get reads the current value of the storage location.
func (r *Ref) Get() (any, error) {
	return r.get()
}

// Set writes to the storage location.
func (r *Ref) Set(v any) error {
	if r.set == nil {
		return ErrReadOnlyRef
	}

	return r.set(v)
}

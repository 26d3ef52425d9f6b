package reflectx

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/anoideaopen/proxymanager/core/types"
)

// Error types.
var (
	ErrIncorrectArgumentCount = errors.New("incorrect number of arguments")
	ErrInvalidArgumentValue   = errors.New("invalid argument value")
	ErrMethodNotFound         = errors.New("method not found")
)

// Call invokes a specified method on a given value using reflection. The method to be invoked is identified by its name.
// It checks whether the specified method exists on the value 'v' and if the number of provided arguments matches the
// method's expected input parameters. If the method is found and the arguments match, each argument is converted
// to the expected parameter type (see Method.Bind), the method is called and its outputs are returned as they are,
// including a trailing error value if the method declares one.
//
// Example:
//
//	type MyType struct {
//	    Data string
//	}
//
//	func (m *MyType) Update(data string) string {
//	    m.Data = data
//	    return fmt.Sprintf("Updated data to: %s", m.Data)
//	}
//
//	func main() {
//	    myInstance := &MyType{}
//	    output, err := Call(myInstance, "Update", "New data")
//	    if err != nil {
//	        log.Fatalf("Error invoking method: %v", err)
//	    }
//	    fmt.Println(output[0]) // Output: Updated data to: New data
//	}
func Call(v any, method string, args ...any) ([]any, error) {
	class, err := ClassOf(v)
	if err != nil {
		return nil, err
	}

	m, ok := class.Method(method)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMethodNotFound, method)
	}

	in, err := m.Bind(args)
	if err != nil {
		return nil, err
	}

	return Invoke(v, m, in), nil
}

// Bind converts call arguments into reflect values ready for Invoke.
// The variadic tail, if any, is packed into a single slice value so that the
// same slice is seen by interceptors and by the real call.
func (m *Method) Bind(args []any) ([]reflect.Value, error) {
	var (
		n     = len(m.Params)
		fixed = n
	)
	if m.Variadic() {
		fixed = n - 1
	}

	if (!m.Variadic() && len(args) != n) || len(args) < fixed {
		return nil, fmt.Errorf(
			"%w: found %d but expected %d: call %s",
			ErrIncorrectArgumentCount,
			len(args),
			fixed,
			m.Name,
		)
	}

	in := make([]reflect.Value, n)
	for i := 0; i < fixed; i++ {
		v, err := valueOf(args[i], m.Params[i].Type)
		if err != nil {
			return nil, fmt.Errorf("%w: call %s, argument %d", err, m.Name, i)
		}
		if err = check(v); err != nil {
			return nil, fmt.Errorf("%w: call %s, argument %d", err, m.Name, i)
		}
		in[i] = v
	}

	if !m.Variadic() {
		return in, nil
	}

	var (
		tail  = args[fixed:]
		st    = m.Params[n-1].Type
		slice = reflect.MakeSlice(st, len(tail), len(tail))
	)
	for j, arg := range tail {
		v, err := valueOf(arg, st.Elem())
		if err != nil {
			return nil, fmt.Errorf("%w: call %s, argument %d", err, m.Name, fixed+j)
		}
		if err = check(v); err != nil {
			return nil, fmt.Errorf("%w: call %s, argument %d", err, m.Name, fixed+j)
		}
		slice.Index(j).Set(v)
	}
	in[n-1] = slice

	return in, nil
}

// Invoke calls m on receiver with arguments prepared by Bind and returns the raw outputs.
func Invoke(receiver any, m *Method, in []reflect.Value) []any {
	fn := reflect.ValueOf(receiver).Method(m.index)

	var out []reflect.Value
	if m.Variadic() {
		out = fn.CallSlice(in)
	} else {
		out = fn.Call(in)
	}

	output := make([]any, len(out))
	for i, res := range out {
		output[i] = res.Interface()
	}

	return output
}

// Fold reduces raw outputs to a single result. A trailing error is returned
// separately; no outputs yield nil, one output is returned as is and several
// outputs are returned as []any.
func Fold(m *Method, output []any) (any, error) {
	if m.ReturnsError {
		if errorValue := output[len(output)-1]; errorValue != nil {
			return nil, errorValue.(error) //nolint:forcetypeassert
		}

		output = output[:len(output)-1]
	}

	switch len(output) {
	case 0:
		return nil, nil
	case 1:
		return output[0], nil
	default:
		return output, nil
	}
}

func check(v reflect.Value) error {
	if !v.IsValid() || !v.CanInterface() {
		return nil
	}
	if (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) && v.IsNil() {
		return nil
	}

	if checker, ok := v.Interface().(types.Checker); ok {
		if err := checker.Check(); err != nil {
			return fmt.Errorf("%w: validation failed: '%v'", ErrInvalidArgumentValue, err.Error())
		}
	}

	return nil
}

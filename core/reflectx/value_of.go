package reflectx

import (
	"encoding"
	"encoding/json"
	"fmt"
	"math"
	"reflect"

	"github.com/anoideaopen/proxymanager/core/types"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// Assign stores v into the settable value dst, converting it the same way
// method arguments are converted.
func Assign(dst reflect.Value, v any) error {
	value, err := valueOf(v, dst.Type())
	if err != nil {
		return err
	}

	dst.Set(value)
	return nil
}

// valueOf converts an argument to a reflect.Value of the specified type.
//
// The function follows these steps:
//  1. nil becomes the zero value of the type.
//  2. Values assignable to the type are used as they are.
//  3. Numeric values are converted between numeric kinds when the value is
//     representable in the target kind, strings between string kinds.
//  4. Textual values (string or []byte) are decoded with parseValue.
//  5. Returns an error if none of the above succeed.
func valueOf(arg any, t reflect.Type) (reflect.Value, error) {
	if arg == nil {
		return reflect.Zero(t), nil
	}

	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(t) {
		if t.Kind() == reflect.Interface {
			out := reflect.New(t).Elem()
			out.Set(v)
			return out, nil
		}
		return v, nil
	}

	switch {
	case isNumeric(v.Kind()) && isNumeric(t.Kind()):
		if !fits(v, t) {
			return reflect.Value{}, fmt.Errorf("%w: '%v': out of range for type '%s'", ErrInvalidArgumentValue, arg, t.String())
		}
		return v.Convert(t), nil
	case v.Kind() == reflect.String && t.Kind() == reflect.String:
		return v.Convert(t), nil
	case v.Kind() == reflect.Bool && t.Kind() == reflect.Bool:
		return v.Convert(t), nil
	}

	switch raw := arg.(type) {
	case string:
		return parseValue([]byte(raw), t)
	case []byte:
		return parseValue(raw, t)
	}

	return reflect.Value{}, fmt.Errorf("%w: '%v': for type '%s'", ErrInvalidArgumentValue, arg, t.String())
}

// parseValue converts a textual representation of an argument to a reflect.Value of the specified type.
// It attempts to unmarshal the bytes into the appropriate type using various methods such as
// types.BytesDecoder, JSON, proto.Message, encoding.TextUnmarshaler and encoding.BinaryUnmarshaler.
//
// The function follows these steps:
//  1. Checks if the target type is a pointer to a string and handles this case directly.
//  2. Attempts to decode the bytes using the types.BytesDecoder interface if implemented.
//  3. Attempts to unmarshal the bytes as JSON if they are valid JSON. Note that simple values such as numbers,
//     booleans, and null are also valid JSON if they are represented as strings.
//  4. Attempts to unmarshal the bytes using the encoding.TextUnmarshaler interface if implemented.
//  5. Attempts to unmarshal the bytes using the proto.Message interface if implemented.
//  6. Attempts to unmarshal the bytes using the encoding.BinaryUnmarshaler interface if implemented.
//  7. Returns an error if none of the above methods succeed.
func parseValue(argRaw []byte, t reflect.Type) (reflect.Value, error) {
	argPointer := t.Kind() == reflect.Pointer

	var (
		argValue reflect.Value
		outValue reflect.Value
	)
	if argPointer {
		argValue = reflect.New(t.Elem())
		outValue = argValue
	} else {
		argValue = reflect.New(t)
		outValue = argValue.Elem()
	}

	if argPointer && t.Elem().Kind() == reflect.String {
		argValue.Elem().SetString(string(argRaw))
		return outValue, nil
	}

	argInterface := argValue.Interface()

	if decoder, ok := argInterface.(types.BytesDecoder); ok {
		if err := decoder.DecodeFromBytes(argRaw); err == nil {
			return outValue, nil
		}
	}

	if json.Valid(argRaw) {
		var err error
		if protoMessage, ok := argInterface.(proto.Message); ok {
			err = protojson.Unmarshal(argRaw, protoMessage)
		} else {
			err = json.Unmarshal(argRaw, argInterface)
		}
		if err == nil {
			return outValue, nil
		}
	}

	if unmarshaler, ok := argInterface.(encoding.TextUnmarshaler); ok {
		if err := unmarshaler.UnmarshalText(argRaw); err == nil {
			return outValue, nil
		}
	}

	if protoMessage, ok := argInterface.(proto.Message); ok {
		if err := proto.Unmarshal(argRaw, protoMessage); err == nil {
			return outValue, nil
		}
	}

	if unmarshaler, ok := argInterface.(encoding.BinaryUnmarshaler); ok {
		if err := unmarshaler.UnmarshalBinary(argRaw); err == nil {
			return outValue, nil
		}
	}

	return reflect.Value{}, fmt.Errorf("%w: '%s': for type '%s'", ErrInvalidArgumentValue, argRaw, t.String())
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// fits reports whether the numeric value v converts to the numeric type t
// without truncation or overflow.
func fits(v reflect.Value, t reflect.Type) bool {
	dst := reflect.Zero(t)

	switch {
	case isInt(v.Kind()):
		n := v.Int()
		switch {
		case isInt(t.Kind()):
			return !dst.OverflowInt(n)
		case isUint(t.Kind()):
			return n >= 0 && !dst.OverflowUint(uint64(n))
		}
	case isUint(v.Kind()):
		n := v.Uint()
		switch {
		case isInt(t.Kind()):
			return n <= math.MaxInt64 && !dst.OverflowInt(int64(n))
		case isUint(t.Kind()):
			return !dst.OverflowUint(n)
		}
	default:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return !isInt(t.Kind()) && !isUint(t.Kind())
		}
		switch {
		case isInt(t.Kind()):
			return f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 && !dst.OverflowInt(int64(f))
		case isUint(t.Kind()):
			return f == math.Trunc(f) && f >= 0 && f < math.MaxUint64 && !dst.OverflowUint(uint64(f))
		default:
			return !dst.OverflowFloat(f)
		}
	}

	return true
}

func isInt(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	default:
		return false
	}
}

func isUint(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}

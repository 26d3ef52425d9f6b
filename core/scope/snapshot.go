package scope

import (
	"bytes"
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"

	"github.com/anoideaopen/proxymanager/core/types"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// Snapshot is the serialized state of an instance: every declared field,
// exported or not, the dynamic properties and the names of unset fields.
type Snapshot struct {
	Fields  map[string]json.RawMessage `json:"fields,omitempty"`
	Dynamic map[string]json.RawMessage `json:"dynamic,omitempty"`
	Unset   []string                   `json:"unset,omitempty"`
}

var null = json.RawMessage("null")

// Snapshot captures the state of target. Fields of function, channel and
// unsafe pointer kinds hold no state that survives a round trip and are skipped.
func (s *Simulator) Snapshot(target any) (*Snapshot, error) {
	if err := s.check(target); err != nil {
		return nil, err
	}

	snap := &Snapshot{Fields: make(map[string]json.RawMessage, len(s.class.Properties))}
	for _, name := range s.class.PropertyNames() {
		p, _ := s.class.Property(name)
		if !serializable(p.Type) {
			continue
		}

		raw, err := encodeValue(field(target, p))
		if err != nil {
			return nil, fmt.Errorf("snapshot %s::$%s: %w", s.class.Name, name, err)
		}
		snap.Fields[name] = raw
	}

	bag, ok := types.BagOf(target)
	if !ok {
		return snap, nil
	}

	snap.Unset = bag.UnsetNames()
	for _, name := range bag.Names() {
		v, _ := bag.Get(name)
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s::$%s: %w", s.class.Name, name, err)
		}
		if snap.Dynamic == nil {
			snap.Dynamic = make(map[string]json.RawMessage)
		}
		snap.Dynamic[name] = raw
	}

	return snap, nil
}

// Restore writes the state captured by Snapshot into target. Dynamic values
// come back as generic JSON values.
func (s *Simulator) Restore(target any, snap *Snapshot) error {
	if err := s.check(target); err != nil {
		return err
	}

	for name, raw := range snap.Fields {
		p, ok := s.class.Property(name)
		if !ok {
			return fmt.Errorf("restore: %w", s.undefined(name))
		}

		if err := decodeValue(field(target, p), raw); err != nil {
			return fmt.Errorf("restore %s::$%s: %w", s.class.Name, name, err)
		}
	}

	if len(snap.Dynamic) == 0 && len(snap.Unset) == 0 {
		return nil
	}

	bag, ok := types.BagOf(target)
	if !ok {
		return fmt.Errorf("restore %s: %w: dynamic properties are not accepted", s.class.Name, ErrUndefinedProperty)
	}

	for name, raw := range snap.Dynamic {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("restore %s::$%s: %w", s.class.Name, name, err)
		}
		bag.Set(name, v)
	}

	for _, name := range snap.Unset {
		if p, ok := s.class.Property(name); ok {
			v := field(target, p)
			v.Set(reflect.Zero(v.Type()))
		}
		bag.MarkUnset(name)
	}

	return nil
}

func serializable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return false
	default:
		return true
	}
}

// encodeValue captures v the way Snapshot stores a field. Proto messages,
// bytes encoders and types with their own JSON or text codec keep their
// encoding. Structs are walked field by field, unexported ones included, so
// nested private state survives the round trip.
func encodeValue(v reflect.Value) (json.RawMessage, error) {
	return (&encoder{seen: make(map[uintptr]struct{})}).encode(v)
}

type encoder struct {
	seen map[uintptr]struct{}
}

func (e *encoder) encode(v reflect.Value) (json.RawMessage, error) {
	if isNil(v) {
		return null, nil
	}
	if v.Kind() == reflect.Interface {
		return e.encode(v.Elem())
	}

	t := v.Type()
	switch {
	case t.Implements(protoMessageType):
		return protojson.Marshal(v.Interface().(proto.Message)) //nolint:forcetypeassert
	case t.Kind() == reflect.Struct && reflect.PointerTo(t).Implements(protoMessageType):
		return protojson.Marshal(addressable(v).Addr().Interface().(proto.Message)) //nolint:forcetypeassert
	case t.Implements(bytesEncoderType):
		return encodeBytes(v.Interface().(types.BytesEncoder)) //nolint:forcetypeassert
	case t.Kind() != reflect.Pointer && reflect.PointerTo(t).Implements(bytesEncoderType):
		return encodeBytes(addressable(v).Addr().Interface().(types.BytesEncoder)) //nolint:forcetypeassert
	case ownCodec(t):
		return json.Marshal(addressable(v).Addr().Interface())
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Map:
		ptr := v.Pointer()
		if _, ok := e.seen[ptr]; ok {
			return nil, fmt.Errorf("%w: cycle through %s", ErrUnsupportedValue, t)
		}
		e.seen[ptr] = struct{}{}
		defer delete(e.seen, ptr)

		if v.Kind() == reflect.Pointer {
			return e.encode(v.Elem())
		}
		return e.encodeMap(v)
	case reflect.Struct:
		return e.encodeStruct(addressable(v))
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return json.Marshal(v.Bytes())
		}
		return e.encodeList(v)
	case reflect.Array:
		return e.encodeList(v)
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedValue, t)
	default:
		return json.Marshal(v.Interface())
	}
}

func (e *encoder) encodeStruct(v reflect.Value) (json.RawMessage, error) {
	t := v.Type()
	out := make(map[string]json.RawMessage, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !serializable(sf.Type) {
			continue
		}

		raw, err := e.encode(reach(v.Field(i)))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", sf.Name, err)
		}
		out[sf.Name] = raw
	}

	return json.Marshal(out)
}

func (e *encoder) encodeList(v reflect.Value) (json.RawMessage, error) {
	out := make([]json.RawMessage, v.Len())
	for i := range out {
		raw, err := e.encode(v.Index(i))
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = raw
	}

	return json.Marshal(out)
}

func (e *encoder) encodeMap(v reflect.Value) (json.RawMessage, error) {
	out := make(map[string]json.RawMessage, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		key, err := formatKey(iter.Key())
		if err != nil {
			return nil, err
		}

		raw, err := e.encode(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("[%s]: %w", key, err)
		}
		out[key] = raw
	}

	return json.Marshal(out)
}

func encodeBytes(e types.BytesEncoder) (json.RawMessage, error) {
	b, err := e.EncodeToBytes()
	if err != nil {
		return nil, err
	}

	return json.Marshal(b)
}

// decodeValue is the inverse of encodeValue. dst must be settable and
// addressable.
func decodeValue(dst reflect.Value, raw json.RawMessage) error {
	if bytes.Equal(bytes.TrimSpace(raw), null) {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	t := dst.Type()
	if t.Kind() == reflect.Pointer {
		elem := reflect.New(t.Elem())
		switch x := elem.Interface().(type) {
		case proto.Message:
			if err := protojson.Unmarshal(raw, x); err != nil {
				return err
			}
		case types.BytesDecoder:
			if err := decodeBytes(x, raw); err != nil {
				return err
			}
		default:
			if err := decodeValue(elem.Elem(), raw); err != nil {
				return err
			}
		}
		dst.Set(elem)
		return nil
	}

	ptr := dst.Addr().Interface()
	if m, ok := ptr.(proto.Message); ok && t.Kind() == reflect.Struct {
		return protojson.Unmarshal(raw, m)
	}
	if d, ok := ptr.(types.BytesDecoder); ok {
		return decodeBytes(d, raw)
	}
	if ownCodec(t) {
		return json.Unmarshal(raw, ptr)
	}

	switch t.Kind() {
	case reflect.Struct:
		return decodeStruct(dst, raw)
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return json.Unmarshal(raw, ptr)
		}
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return err
		}
		list := reflect.MakeSlice(t, len(items), len(items))
		if err := decodeList(list, items); err != nil {
			return err
		}
		dst.Set(list)
		return nil
	case reflect.Array:
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return err
		}
		if len(items) != t.Len() {
			return fmt.Errorf("%w: %d items for %s", ErrUnsupportedValue, len(items), t)
		}
		return decodeList(dst, items)
	case reflect.Map:
		return decodeMap(dst, raw)
	case reflect.Interface:
		var x any
		if err := json.Unmarshal(raw, &x); err != nil {
			return err
		}
		xv := reflect.ValueOf(x)
		if !xv.Type().AssignableTo(t) {
			return fmt.Errorf("%w: %s into %s", ErrUnsupportedValue, xv.Type(), t)
		}
		dst.Set(xv)
		return nil
	default:
		return json.Unmarshal(raw, ptr)
	}
}

func decodeStruct(dst reflect.Value, raw json.RawMessage) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return err
	}

	t := dst.Type()
	matched := 0
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		r, ok := fields[sf.Name]
		if !ok || !serializable(sf.Type) {
			continue
		}
		if err := decodeValue(reach(dst.Field(i)), r); err != nil {
			return fmt.Errorf("%s: %w", sf.Name, err)
		}
		matched++
	}

	if matched != len(fields) {
		return fmt.Errorf("%w: unknown fields of %s", ErrUndefinedProperty, t)
	}

	return nil
}

func decodeList(dst reflect.Value, items []json.RawMessage) error {
	for i, r := range items {
		if err := decodeValue(dst.Index(i), r); err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
	}

	return nil
}

func decodeMap(dst reflect.Value, raw json.RawMessage) error {
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return err
	}

	t := dst.Type()
	m := reflect.MakeMapWithSize(t, len(entries))
	for k, r := range entries {
		key, err := parseKey(k, t.Key())
		if err != nil {
			return err
		}

		val := reflect.New(t.Elem()).Elem()
		if err := decodeValue(val, r); err != nil {
			return fmt.Errorf("[%s]: %w", k, err)
		}
		m.SetMapIndex(key, val)
	}
	dst.Set(m)

	return nil
}

func decodeBytes(d types.BytesDecoder, raw json.RawMessage) error {
	var b []byte
	if err := json.Unmarshal(raw, &b); err != nil {
		return err
	}

	return d.DecodeFromBytes(b)
}

var (
	protoMessageType    = reflect.TypeOf((*proto.Message)(nil)).Elem()
	bytesEncoderType    = reflect.TypeOf((*types.BytesEncoder)(nil)).Elem()
	jsonMarshalerType   = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	jsonUnmarshalerType = reflect.TypeOf((*json.Unmarshaler)(nil)).Elem()
	textMarshalerType   = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// ownCodec reports whether values of the non-pointer type t encode and decode
// themselves through JSON or text marshaling, as big.Int and time.Time do.
func ownCodec(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer || t.Kind() == reflect.Interface {
		return false
	}

	pt := reflect.PointerTo(t)
	switch {
	case pt.Implements(jsonMarshalerType) && pt.Implements(jsonUnmarshalerType):
		return true
	case pt.Implements(textMarshalerType) && pt.Implements(textUnmarshalerType):
		return true
	default:
		return false
	}
}

// addressable returns v itself when it is addressable and an addressable
// copy otherwise.
func addressable(v reflect.Value) reflect.Value {
	if v.CanAddr() {
		return v
	}

	c := reflect.New(v.Type()).Elem()
	c.Set(v)
	return c
}

func formatKey(k reflect.Value) (string, error) {
	switch k.Kind() {
	case reflect.String:
		return k.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(k.Uint(), 10), nil
	default:
		return "", fmt.Errorf("%w: map key %s", ErrUnsupportedValue, k.Type())
	}
}

func parseKey(s string, t reflect.Type) (reflect.Value, error) {
	key := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.String:
		key.SetString(s)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		key.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		key.SetUint(n)
	default:
		return reflect.Value{}, fmt.Errorf("%w: map key %s", ErrUnsupportedValue, t)
	}

	return key, nil
}

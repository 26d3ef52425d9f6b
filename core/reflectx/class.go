package reflectx

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/anoideaopen/proxymanager/core/stringsx"
	"github.com/anoideaopen/proxymanager/core/types"
)

// ErrNotStructPointer is returned when a value that is not a non-nil pointer to a struct is introspected.
var ErrNotStructPointer = errors.New("not a pointer to struct")

// hooks are capability methods, never proxied as ordinary calls.
var hooks = []string{
	types.HookGetProperty,
	types.HookSetProperty,
	types.HookIssetProperty,
	types.HookUnsetProperty,
	types.HookCallMethod,
	types.HookPostClone,
	types.HookParameterNames,
}

// ConstructorName is the method invoked to construct a freshly allocated instance.
const ConstructorName = "Construct"

var propertiesType = reflect.TypeOf(types.Properties{})

// Param describes a single method parameter.
type Param struct {
	Name     string       // Declared name, or argN when the type does not name it.
	Type     reflect.Type // Parameter type; for variadic parameters this is the slice type.
	ByRef    bool         // Pointer to a non-struct value: mutations are visible to the caller.
	Variadic bool         // Trailing variadic parameter.
}

// Method describes an exported method of a class.
type Method struct {
	Name         string
	Params       []Param
	NumOut       int
	ReturnsError bool

	index int
}

// Variadic reports whether the last parameter is variadic.
func (m *Method) Variadic() bool {
	return len(m.Params) > 0 && m.Params[len(m.Params)-1].Variadic
}

// Property describes a declared struct field.
type Property struct {
	Name     string
	Type     reflect.Type
	Index    []int
	Exported bool
}

// Capabilities records which hooks a class defines for itself.
type Capabilities struct {
	Get         bool
	Set         bool
	Isset       bool
	Unset       bool
	Call        bool
	PostClone   bool
	Construct   bool
	Dynamic     bool
	NamesParams bool
}

// Class is the introspected shape of a struct type, proxied through its pointer type.
type Class struct {
	Name         string
	Type         reflect.Type
	Methods      map[string]*Method
	Properties   map[string]*Property
	Capabilities Capabilities

	methodNames   []string
	propertyNames []string
}

// Method returns the method with the given name.
func (c *Class) Method(name string) (*Method, bool) {
	m, ok := c.Methods[name]
	return m, ok
}

// Property returns the declared property with the given name.
func (c *Class) Property(name string) (*Property, bool) {
	p, ok := c.Properties[name]
	return p, ok
}

// MethodNames returns the sorted method names.
func (c *Class) MethodNames() []string {
	return c.methodNames
}

// PropertyNames returns the sorted declared property names.
func (c *Class) PropertyNames() []string {
	return c.propertyNames
}

// Is reports whether v is an instance of the class.
func (c *Class) Is(v any) bool {
	return v != nil && reflect.TypeOf(v) == c.Type
}

// New allocates a zero instance of the class.
func (c *Class) New() any {
	return reflect.New(c.Type.Elem()).Interface()
}

var classes sync.Map // map[reflect.Type]*Class

// ClassOf returns the cached class of v, introspecting it on first use.
func ClassOf(v any) (*Class, error) {
	t := reflect.TypeOf(v)
	if c, ok := classes.Load(t); ok {
		return c.(*Class), nil //nolint:forcetypeassert
	}

	c, err := IntrospectType(t)
	if err != nil {
		return nil, err
	}

	actual, _ := classes.LoadOrStore(t, c)
	return actual.(*Class), nil //nolint:forcetypeassert
}

// Introspect builds the class of v. v must be a pointer to a struct.
func Introspect(v any) (*Class, error) {
	return IntrospectType(reflect.TypeOf(v))
}

// IntrospectType builds the class of the pointer-to-struct type t.
func IntrospectType(t reflect.Type) (*Class, error) {
	if t == nil || t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %v", ErrNotStructPointer, t)
	}

	c := &Class{
		Name:       typeName(t.Elem()),
		Type:       t,
		Methods:    make(map[string]*Method),
		Properties: make(map[string]*Property),
		Capabilities: Capabilities{
			Get:         t.Implements(reflect.TypeOf((*types.PropertyGetter)(nil)).Elem()),
			Set:         t.Implements(reflect.TypeOf((*types.PropertySetter)(nil)).Elem()),
			Isset:       t.Implements(reflect.TypeOf((*types.PropertyIssetter)(nil)).Elem()),
			Unset:       t.Implements(reflect.TypeOf((*types.PropertyUnsetter)(nil)).Elem()),
			Call:        t.Implements(reflect.TypeOf((*types.MethodCaller)(nil)).Elem()),
			PostClone:   t.Implements(reflect.TypeOf((*types.PostCloner)(nil)).Elem()),
			NamesParams: t.Implements(reflect.TypeOf((*types.ParameterNamer)(nil)).Elem()),
		},
	}

	var names map[string][]string
	if c.Capabilities.NamesParams {
		names = reflect.New(t.Elem()).Interface().(types.ParameterNamer).ParameterNames() //nolint:forcetypeassert
	}

	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if stringsx.OneOf(m.Name, hooks...) {
			continue
		}

		c.Methods[m.Name] = newMethod(m, names[m.Name])
		c.methodNames = append(c.methodNames, m.Name)
	}
	_, c.Capabilities.Construct = c.Methods[ConstructorName]

	for _, f := range reflect.VisibleFields(t.Elem()) {
		if f.Anonymous {
			if f.Type == propertiesType {
				c.Capabilities.Dynamic = true
			}
			continue
		}
		if !reachable(t.Elem(), f.Index) {
			continue
		}

		c.Properties[f.Name] = &Property{
			Name:     f.Name,
			Type:     f.Type,
			Index:    f.Index,
			Exported: f.IsExported(),
		}
		c.propertyNames = append(c.propertyNames, f.Name)
	}
	sort.Strings(c.propertyNames)

	return c, nil
}

func newMethod(m reflect.Method, names []string) *Method {
	mt := m.Type
	method := &Method{
		Name:   m.Name,
		NumOut: mt.NumOut(),
		index:  m.Index,
	}

	// In(0) is the receiver.
	for i := 1; i < mt.NumIn(); i++ {
		pt := mt.In(i)
		p := Param{
			Name: fmt.Sprintf("arg%d", i-1),
			Type: pt,
		}
		if i-1 < len(names) {
			p.Name = names[i-1]
		}
		if mt.IsVariadic() && i == mt.NumIn()-1 {
			p.Variadic = true
			p.ByRef = isByRef(pt.Elem())
		} else {
			p.ByRef = isByRef(pt)
		}
		method.Params = append(method.Params, p)
	}

	if method.NumOut > 0 && mt.Out(method.NumOut-1) == errorType {
		method.ReturnsError = true
	}

	return method
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// isByRef treats pointers to non-struct values as by-reference bindings.
// Pointers to structs are object handles.
func isByRef(t reflect.Type) bool {
	return t.Kind() == reflect.Pointer && t.Elem().Kind() != reflect.Struct
}

// reachable rejects fields promoted through embedded pointers or through the
// dynamic property bag.
func reachable(t reflect.Type, index []int) bool {
	for i := 1; i < len(index); i++ {
		f := t.FieldByIndex(index[:i])
		if f.Type.Kind() == reflect.Pointer || f.Type == propertiesType {
			return false
		}
	}

	return true
}

func typeName(t reflect.Type) string {
	if t.Name() == "" {
		return t.String()
	}
	if t.PkgPath() == "" {
		return t.Name()
	}

	return t.PkgPath() + "." + t.Name()
}

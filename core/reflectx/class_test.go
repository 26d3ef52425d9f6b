package reflectx

import (
	"reflect"
	"testing"

	"github.com/anoideaopen/proxymanager/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type embeddedForClass struct {
	Inner string
}

type classFixture struct {
	types.Properties
	embeddedForClass
	*PointerStructForMethods

	Public  string
	private int
}

func (c *classFixture) Construct(public string) { c.Public = public }

func (c *classFixture) Swap(a *int, b *int) { *a, *b = *b, *a }

func (c *classFixture) Join(sep string, parts ...*string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += sep
		}
		out += *p
	}
	return out
}

func (c *classFixture) Handle(other *classFixture) *classFixture { return other }

func (c *classFixture) GetProperty(name string) (any, error) { return name, nil }

func (c *classFixture) ParameterNames() map[string][]string {
	return map[string][]string{
		"Swap": {"left", "right"},
		"Join": {"separator", "parts"},
	}
}

func TestIntrospect(t *testing.T) {
	class, err := Introspect(&classFixture{})
	require.NoError(t, err)

	assert.Equal(t, "github.com/anoideaopen/proxymanager/core/reflectx.classFixture", class.Name)
	assert.Equal(t, reflect.TypeOf(&classFixture{}), class.Type)
	assert.Equal(t, []string{"Construct", "Handle", "Join", "PtrMethod", "Swap"}, class.MethodNames())
	assert.Equal(t, []string{"Inner", "Public", "private"}, class.PropertyNames())

	assert.True(t, class.Capabilities.Get)
	assert.False(t, class.Capabilities.Set)
	assert.True(t, class.Capabilities.Construct)
	assert.True(t, class.Capabilities.Dynamic)
	assert.True(t, class.Capabilities.NamesParams)

	swap, ok := class.Method("Swap")
	require.True(t, ok)
	assert.Equal(t, "left", swap.Params[0].Name)
	assert.Equal(t, "right", swap.Params[1].Name)
	assert.True(t, swap.Params[0].ByRef)
	assert.False(t, swap.Variadic())

	join, _ := class.Method("Join")
	assert.True(t, join.Variadic())
	assert.True(t, join.Params[1].ByRef)
	assert.True(t, join.Params[1].Variadic)
	assert.False(t, join.Params[0].ByRef)

	handle, _ := class.Method("Handle")
	assert.Equal(t, "arg0", handle.Params[0].Name)
	assert.False(t, handle.Params[0].ByRef, "struct pointers are object handles")

	private, ok := class.Property("private")
	require.True(t, ok)
	assert.False(t, private.Exported)

	assert.True(t, class.Is(&classFixture{}))
	assert.False(t, class.Is(classFixture{}))
	assert.IsType(t, &classFixture{}, class.New())
}

func TestIntrospectRejectsNonStructPointers(t *testing.T) {
	for _, v := range []any{nil, classFixture{}, new(int), "x"} {
		_, err := Introspect(v)
		require.ErrorIs(t, err, ErrNotStructPointer)
	}
}

func TestClassOfIsCached(t *testing.T) {
	a, err := ClassOf(&classFixture{})
	require.NoError(t, err)
	b, err := ClassOf(&classFixture{})
	require.NoError(t, err)
	require.Same(t, a, b)
}

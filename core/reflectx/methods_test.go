package reflectx

import (
	"reflect"
	"testing"
)

// Define a struct with methods
type TestStructForMethods struct{}

func (TestStructForMethods) MethodOne() {}
func (TestStructForMethods) MethodTwo() {}

// Define an empty struct
type EmptyStructForMethods struct{}

// Define a pointer receiver method
type PointerStructForMethods struct{}

func (*PointerStructForMethods) PtrMethod() {}

// Define a struct with capability hooks
type HookStructForMethods struct{}

func (*HookStructForMethods) Visible()                            {}
func (*HookStructForMethods) GetProperty(string) (any, error)     { return nil, nil }
func (*HookStructForMethods) PostClone()                          {}
func (*HookStructForMethods) ParameterNames() map[string][]string { return nil }

func TestMethods(t *testing.T) {
	testCases := []struct {
		name     string
		input    any
		expected []string
	}{
		{
			name:     "struct with methods",
			input:    TestStructForMethods{},
			expected: []string{"MethodOne", "MethodTwo"},
		},
		{
			name:     "empty struct",
			input:    EmptyStructForMethods{},
			expected: []string{},
		},
		{
			name:     "pointer to struct with method",
			input:    &PointerStructForMethods{},
			expected: []string{"PtrMethod"},
		},
		{
			name:     "hooks are not methods",
			input:    &HookStructForMethods{},
			expected: []string{"Visible"},
		},
		{
			name:     "nil",
			input:    nil,
			expected: []string{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := Methods(tc.input)
			if !reflect.DeepEqual(result, tc.expected) {
				t.Errorf("Test %s failed: expected %v, got %v", tc.name, tc.expected, result)
			}
		})
	}
}

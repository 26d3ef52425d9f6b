// Package mock provides classes and helpers for testing proxies.
package mock

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/anoideaopen/proxymanager/core/scope"
	"github.com/anoideaopen/proxymanager/core/types"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Empty has no state and no methods.
type Empty struct{}

// BaseClass has properties of both visibilities and a few plain methods.
type BaseClass struct {
	PublicProperty  string
	privateProperty string
}

// NewBaseClass returns a BaseClass holding its default values.
func NewBaseClass() *BaseClass {
	return &BaseClass{
		PublicProperty:  "publicPropertyDefault",
		privateProperty: "privatePropertyDefault",
	}
}

func (b *BaseClass) PublicMethod() string {
	return "publicMethodDefault"
}

func (b *BaseClass) PublicTypeHintedMethod(*Empty) string {
	return "publicTypeHintedMethodDefault"
}

func (b *BaseClass) PublicErrorMethod(fail bool) (string, error) {
	if fail {
		return "", ErrPublicErrorMethod
	}
	return "publicErrorMethodDefault", nil
}

func (b *BaseClass) ParameterNames() map[string][]string {
	return map[string][]string{
		"PublicTypeHintedMethod": {"param"},
		"PublicErrorMethod":      {"fail"},
	}
}

// ErrPublicErrorMethod is returned by BaseClass.PublicErrorMethod.
var ErrPublicErrorMethod = errors.New("public error method failed")

// SelfHint takes and returns its own type.
type SelfHint struct {
	Name string
}

func (s *SelfHint) SelfHintMethod(parameter *SelfHint) *SelfHint {
	return parameter
}

func (s *SelfHint) ParameterNames() map[string][]string {
	return map[string][]string{"SelfHintMethod": {"parameter"}}
}

// PublicArrayProperty holds a map in an exported field.
type PublicArrayProperty struct {
	ArrayProperty map[string]string
}

// PublicProperties holds three string fields preset to their own names.
type PublicProperties struct {
	Property0 string
	Property1 string
	Property2 string
}

func NewPublicProperties() *PublicProperties {
	return &PublicProperties{Property0: "property0", Property1: "property1", Property2: "property2"}
}

// CounterConstructor adds every constructor argument to Amount.
type CounterConstructor struct {
	Amount int
}

func (c *CounterConstructor) Construct(amount int) {
	c.Amount += amount
}

func (c *CounterConstructor) GetAmount() int {
	return c.Amount
}

// VariadicMethod stores the arguments of Foo.
type VariadicMethod struct {
	Bar string
	baz []string
}

func (v *VariadicMethod) Foo(bar string, baz ...string) {
	v.Bar = bar
	v.baz = baz
}

func (v *VariadicMethod) Buz(fooz ...string) []string {
	return fooz
}

func (v *VariadicMethod) ParameterNames() map[string][]string {
	return map[string][]string{
		"Foo": {"bar", "baz"},
		"Buz": {"fooz"},
	}
}

// ByRefVariadicMethod writes through the second of its pointer arguments.
type ByRefVariadicMethod struct{}

func (*ByRefVariadicMethod) Tuz(fooz ...*string) []string {
	if len(fooz) > 1 {
		*fooz[1] = "changed"
	}

	values := make([]string, len(fooz))
	for i, foo := range fooz {
		values[i] = *foo
	}

	return values
}

// ByRefMethod doubles the value it is given a pointer to.
type ByRefMethod struct{}

func (*ByRefMethod) Double(value *int) int {
	*value *= 2
	return *value
}

func (*ByRefMethod) ParameterNames() map[string][]string {
	return map[string][]string{"Double": {"value"}}
}

// OtherObjectAccess reads properties of other instances of its own class,
// which may be plain instances or proxies.
type OtherObjectAccess struct {
	PublicProperty  string
	privateProperty string
}

// NewOtherObjectAccess returns an OtherObjectAccess holding its default values.
func NewOtherObjectAccess() *OtherObjectAccess {
	return &OtherObjectAccess{
		PublicProperty:  "publicPropertyDefault",
		privateProperty: "privatePropertyDefault",
	}
}

func (o *OtherObjectAccess) GetPublicProperty(other any) (any, error) {
	return scope.Read(other, "PublicProperty")
}

func (o *OtherObjectAccess) GetPrivateProperty(other any) (any, error) {
	return scope.Read(other, "privateProperty")
}

func (o *OtherObjectAccess) SetPrivateProperty(other any, value string) error {
	return scope.Write(other, "privateProperty", value)
}

func (o *OtherObjectAccess) ParameterNames() map[string][]string {
	return map[string][]string{
		"GetPublicProperty":  {"other"},
		"GetPrivateProperty": {"other"},
		"SetPrivateProperty": {"other", "value"},
	}
}

// VoidCounter adds to Counter and returns nothing.
type VoidCounter struct {
	Counter int
}

func (v *VoidCounter) Increment(amount int) {
	v.Counter += amount
}

func (v *VoidCounter) ParameterNames() map[string][]string {
	return map[string][]string{"Increment": {"amount"}}
}

// Magic serves every property and undeclared method through its hooks.
type Magic struct {
	values map[string]any
	calls  []string
}

func (m *Magic) GetProperty(name string) (any, error) {
	return "magic " + name, nil
}

func (m *Magic) SetProperty(name string, value any) error {
	if m.values == nil {
		m.values = make(map[string]any)
	}
	m.values[name] = value
	return nil
}

func (m *Magic) IssetProperty(name string) (bool, error) {
	_, ok := m.values[name]
	return ok, nil
}

func (m *Magic) UnsetProperty(name string) error {
	delete(m.values, name)
	return nil
}

func (m *Magic) CallMethod(name string, args []any) (any, error) {
	m.calls = append(m.calls, name)
	return fmt.Sprintf("%s%v", name, args), nil
}

// Value returns a value stored by SetProperty.
func (m *Magic) Value(name string) any {
	return m.values[name]
}

// Calls returns the names of undeclared methods called so far.
func (m *Magic) Calls() []string {
	return m.calls
}

// Dynamic accepts properties it does not declare.
type Dynamic struct {
	types.Properties

	Name string
}

// Cloneable counts the copies made of it.
type Cloneable struct {
	Items  []string
	Copies int
}

func (c *Cloneable) PostClone() {
	c.Copies++
}

// Account carries state of several kinds for serialization tests.
type Account struct {
	types.Properties

	Owner   string
	Note    *wrapperspb.StringValue
	Balance *big.Int
	history []string
	frozen  bool
	audit   audit
}

type audit struct {
	Last     string
	deposits int
	largest  *big.Int
}

// NewAccount returns an account holding some state in every field.
func NewAccount(owner string) *Account {
	return &Account{
		Owner:   owner,
		Note:    wrapperspb.String("note of " + owner),
		Balance: big.NewInt(1000),
		history: []string{"opened"},
	}
}

func (a *Account) Deposit(amount *big.Int) *big.Int {
	a.Balance = new(big.Int).Add(a.Balance, amount)
	a.history = append(a.history, "deposit "+amount.String())
	a.audit.Last = amount.String()
	a.audit.deposits++
	if a.audit.largest == nil || amount.Cmp(a.audit.largest) > 0 {
		a.audit.largest = new(big.Int).Set(amount)
	}
	return a.Balance
}

// Deposits returns the number of deposits and the largest one.
func (a *Account) Deposits() (int, *big.Int) {
	return a.audit.deposits, a.audit.largest
}

func (a *Account) Freeze() {
	a.frozen = true
}

func (a *Account) Frozen() bool {
	return a.frozen
}

func (a *Account) History() []string {
	return a.history
}

func (a *Account) ParameterNames() map[string][]string {
	return map[string][]string{"Deposit": {"amount"}}
}

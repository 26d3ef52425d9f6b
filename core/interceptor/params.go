package interceptor

import "context"

// Param is a single named entry of a parameter bag.
type Param struct {
	Name  string
	Value any
}

// Params is the ordered parameter bag handed to interceptors. Entries keep
// declaration order. By-reference parameters hold the caller's pointer, so
// writes through it reach the caller's variable. A variadic tail is held as a
// single slice value.
type Params struct {
	list []Param
	ctx  context.Context
}

// NewParams builds a bag from name/value pairs in declaration order.
func NewParams(params ...Param) *Params {
	return &Params{list: params}
}

// Context returns the context of the call the bag belongs to. Interceptors
// pass it on to calls they make themselves.
func (p *Params) Context() context.Context {
	if p == nil || p.ctx == nil {
		return context.Background()
	}

	return p.ctx
}

// BindContext attaches the context of the running call.
func (p *Params) BindContext(ctx context.Context) {
	p.ctx = ctx
}

// Get returns the value of the named parameter.
func (p *Params) Get(name string) (any, bool) {
	if p == nil {
		return nil, false
	}

	for _, param := range p.list {
		if param.Name == name {
			return param.Value, true
		}
	}

	return nil, false
}

// Set replaces the value of the named parameter, appending it when absent.
// Replacing a by-reference entry rebinds the bag slot only; write through the
// pointer to reach the caller's variable.
func (p *Params) Set(name string, value any) {
	for i := range p.list {
		if p.list[i].Name == name {
			p.list[i].Value = value
			return
		}
	}

	p.list = append(p.list, Param{Name: name, Value: value})
}

// Len returns the number of parameters.
func (p *Params) Len() int {
	if p == nil {
		return 0
	}

	return len(p.list)
}

// Names returns parameter names in declaration order.
func (p *Params) Names() []string {
	names := make([]string, 0, p.Len())
	for _, param := range p.all() {
		names = append(names, param.Name)
	}

	return names
}

// Values returns parameter values in declaration order.
func (p *Params) Values() []any {
	values := make([]any, 0, p.Len())
	for _, param := range p.all() {
		values = append(values, param.Value)
	}

	return values
}

// Map returns the parameters keyed by name.
func (p *Params) Map() map[string]any {
	m := make(map[string]any, p.Len())
	for _, param := range p.all() {
		m[param.Name] = param.Value
	}

	return m
}

func (p *Params) all() []Param {
	if p == nil {
		return nil
	}

	return p.list
}

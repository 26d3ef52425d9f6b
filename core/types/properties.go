package types

import "sort"

// Properties is embedded by types that accept dynamic properties. Without it,
// writes to undeclared properties fail the same way reads do.
//
//	type Bag struct {
//	    types.Properties
//	    Name string
//	}
type Properties struct {
	bag *PropertyBag
}

func (p *Properties) properties() *Properties { return p }

type propertyHolder interface {
	properties() *Properties
}

// PropertyBag holds dynamic property values and the set of declared properties
// that were explicitly unset.
type PropertyBag struct {
	Dynamic map[string]any      `json:"dynamic,omitempty"`
	Unset   map[string]struct{} `json:"-"`
}

// BagOf returns the property bag of v if v embeds Properties.
// The bag is allocated on first use.
func BagOf(v any) (*PropertyBag, bool) {
	holder, ok := v.(propertyHolder)
	if !ok {
		return nil, false
	}

	p := holder.properties()
	if p.bag == nil {
		p.bag = &PropertyBag{}
	}

	return p.bag, true
}

// Get returns a dynamic property value.
func (b *PropertyBag) Get(name string) (any, bool) {
	v, ok := b.Dynamic[name]
	return v, ok
}

// Set stores a dynamic property value.
func (b *PropertyBag) Set(name string, value any) {
	if b.Dynamic == nil {
		b.Dynamic = make(map[string]any)
	}
	b.Dynamic[name] = value
}

// Delete removes a dynamic property. It reports whether the property existed.
func (b *PropertyBag) Delete(name string) bool {
	_, ok := b.Dynamic[name]
	delete(b.Dynamic, name)
	return ok
}

// Names returns the sorted dynamic property names.
func (b *PropertyBag) Names() []string {
	names := make([]string, 0, len(b.Dynamic))
	for name := range b.Dynamic {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// MarkUnset records that a declared property was unset.
func (b *PropertyBag) MarkUnset(name string) {
	if b.Unset == nil {
		b.Unset = make(map[string]struct{})
	}
	b.Unset[name] = struct{}{}
}

// ClearUnset forgets an unset mark, typically after a write.
func (b *PropertyBag) ClearUnset(name string) {
	delete(b.Unset, name)
}

// IsUnset reports whether a declared property is currently unset.
func (b *PropertyBag) IsUnset(name string) bool {
	_, ok := b.Unset[name]
	return ok
}

// UnsetNames returns the sorted names of unset declared properties.
func (b *PropertyBag) UnsetNames() []string {
	names := make([]string, 0, len(b.Unset))
	for name := range b.Unset {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

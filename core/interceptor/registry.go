package interceptor

import (
	"fmt"
	"sort"
	"sync"
)

type prefixEntry struct {
	fn   Prefix
	name string // catalog name, empty for anonymous interceptors
}

type suffixEntry struct {
	fn   Suffix
	name string
}

// Registry holds at most one prefix and one suffix interceptor per member.
type Registry struct {
	mu     sync.RWMutex
	prefix map[string]prefixEntry
	suffix map[string]suffixEntry
}

// NewRegistry creates a registry seeded with the given interceptors.
// Nil entries are ignored.
func NewRegistry(prefix Prefixes, suffix Suffixes) *Registry {
	r := &Registry{
		prefix: make(map[string]prefixEntry, len(prefix)),
		suffix: make(map[string]suffixEntry, len(suffix)),
	}

	for member, fn := range prefix {
		r.SetPrefix(member, fn)
	}
	for member, fn := range suffix {
		r.SetSuffix(member, fn)
	}

	return r
}

// SetPrefix replaces the prefix interceptor of member. A nil fn clears it.
func (r *Registry) SetPrefix(member string, fn Prefix) {
	r.setPrefix(member, prefixEntry{fn: fn})
}

// SetSuffix replaces the suffix interceptor of member. A nil fn clears it.
func (r *Registry) SetSuffix(member string, fn Suffix) {
	r.setSuffix(member, suffixEntry{fn: fn})
}

// BindPrefix installs the catalog prefix interceptor called name for member.
func (r *Registry) BindPrefix(member, name string, c *Catalog) error {
	fn, ok := c.Prefix(name)
	if !ok {
		return fmt.Errorf("%w: prefix '%s'", ErrUnknownInterceptor, name)
	}

	r.setPrefix(member, prefixEntry{fn: fn, name: name})
	return nil
}

// BindSuffix installs the catalog suffix interceptor called name for member.
func (r *Registry) BindSuffix(member, name string, c *Catalog) error {
	fn, ok := c.Suffix(name)
	if !ok {
		return fmt.Errorf("%w: suffix '%s'", ErrUnknownInterceptor, name)
	}

	r.setSuffix(member, suffixEntry{fn: fn, name: name})
	return nil
}

// Prefix returns the prefix interceptor of member, or nil.
func (r *Registry) Prefix(member string) Prefix {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.prefix[member].fn
}

// Suffix returns the suffix interceptor of member, or nil.
func (r *Registry) Suffix(member string) Suffix {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.suffix[member].fn
}

// Lookup returns both interceptors of member as one consistent snapshot.
func (r *Registry) Lookup(member string) (Prefix, Suffix) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.prefix[member].fn, r.suffix[member].fn
}

// Members returns the sorted names of members with at least one interceptor.
func (r *Registry) Members() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := make(map[string]struct{}, len(r.prefix)+len(r.suffix))
	for member := range r.prefix {
		set[member] = struct{}{}
	}
	for member := range r.suffix {
		set[member] = struct{}{}
	}

	members := make([]string, 0, len(set))
	for member := range set {
		members = append(members, member)
	}
	sort.Strings(members)

	return members
}

// Clone returns an independent registry holding the same interceptors.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c := &Registry{
		prefix: make(map[string]prefixEntry, len(r.prefix)),
		suffix: make(map[string]suffixEntry, len(r.suffix)),
	}
	for member, e := range r.prefix {
		c.prefix[member] = e
	}
	for member, e := range r.suffix {
		c.suffix[member] = e
	}

	return c
}

// Names exports the catalog names of all registered interceptors.
// It fails with ErrNotSerializable if any interceptor was not bound from a catalog.
func (r *Registry) Names() (prefix, suffix map[string]string, err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	prefix = make(map[string]string, len(r.prefix))
	for member, e := range r.prefix {
		if e.name == "" {
			return nil, nil, fmt.Errorf("%w: prefix of '%s'", ErrNotSerializable, member)
		}
		prefix[member] = e.name
	}

	suffix = make(map[string]string, len(r.suffix))
	for member, e := range r.suffix {
		if e.name == "" {
			return nil, nil, fmt.Errorf("%w: suffix of '%s'", ErrNotSerializable, member)
		}
		suffix[member] = e.name
	}

	return prefix, suffix, nil
}

func (r *Registry) setPrefix(member string, e prefixEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.fn == nil {
		delete(r.prefix, member)
		return
	}
	r.prefix[member] = e
}

func (r *Registry) setSuffix(member string, e suffixEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.fn == nil {
		delete(r.suffix, member)
		return
	}
	r.suffix[member] = e
}

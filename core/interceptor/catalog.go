package interceptor

import (
	"errors"
	"fmt"
	"sync"
)

// Catalog errors.
var (
	ErrDuplicateInterceptor = errors.New("interceptor already registered")
	ErrUnknownInterceptor   = errors.New("unknown interceptor")
	ErrNotSerializable      = errors.New("interceptor is not serializable")
)

// Catalog names interceptors so that a registry can be serialized by name and
// rebound after deserialization. Functions themselves cannot be serialized.
type Catalog struct {
	mu     sync.RWMutex
	prefix map[string]Prefix
	suffix map[string]Suffix
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		prefix: make(map[string]Prefix),
		suffix: make(map[string]Suffix),
	}
}

// RegisterPrefix adds a named prefix interceptor.
func (c *Catalog) RegisterPrefix(name string, fn Prefix) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.prefix[name]; ok {
		return fmt.Errorf("%w: prefix '%s'", ErrDuplicateInterceptor, name)
	}
	c.prefix[name] = fn

	return nil
}

// RegisterSuffix adds a named suffix interceptor.
func (c *Catalog) RegisterSuffix(name string, fn Suffix) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.suffix[name]; ok {
		return fmt.Errorf("%w: suffix '%s'", ErrDuplicateInterceptor, name)
	}
	c.suffix[name] = fn

	return nil
}

// Prefix returns the prefix interceptor registered under name.
func (c *Catalog) Prefix(name string) (Prefix, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	fn, ok := c.prefix[name]
	return fn, ok
}

// Suffix returns the suffix interceptor registered under name.
func (c *Catalog) Suffix(name string) (Suffix, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	fn, ok := c.suffix[name]
	return fn, ok
}

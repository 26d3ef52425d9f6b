// Package interceptor holds the per-member prefix and suffix interceptors of a proxy.
package interceptor

// Virtual member names. Property access and undeclared method calls are
// intercepted under these names, next to ordinary method names.
const (
	MemberGet   = "__get"
	MemberSet   = "__set"
	MemberIsset = "__isset"
	MemberUnset = "__unset"
	MemberCall  = "__call"
)

// Prefix runs before the real operation. Setting *returnEarly to true makes its
// return value the final result; the real operation and the suffix are skipped.
type Prefix func(proxy, instance any, member string, params *Params, returnEarly *bool) (any, error)

// Suffix runs after the real operation completed normally. Setting
// *returnEarly to true replaces the real result with its return value.
type Suffix func(proxy, instance any, member string, params *Params, result any, returnEarly *bool) (any, error)

// Prefixes maps member names to prefix interceptors.
type Prefixes map[string]Prefix

// Suffixes maps member names to suffix interceptors.
type Suffixes map[string]Suffix

package types

// PropertyGetter is implemented by types that define their own property read hook.
// When present, property reads through a proxy call it instead of simulating access.
type PropertyGetter interface {
	GetProperty(name string) (any, error)
}

// PropertySetter is implemented by types that define their own property write hook.
type PropertySetter interface {
	SetProperty(name string, value any) error
}

// PropertyIssetter is implemented by types that define their own property existence hook.
type PropertyIssetter interface {
	IssetProperty(name string) (bool, error)
}

// PropertyUnsetter is implemented by types that define their own property removal hook.
type PropertyUnsetter interface {
	UnsetProperty(name string) error
}

// MethodCaller is implemented by types that accept calls to methods they do not declare.
type MethodCaller interface {
	CallMethod(name string, args []any) (any, error)
}

// PostCloner is implemented by types that need to adjust a freshly cloned copy.
// PostClone is called on the copy, never on the original.
type PostCloner interface {
	PostClone()
}

// ParameterNamer supplies parameter names for methods, keyed by method name.
// Reflection does not expose parameter names, so types that want named
// parameter bags declare them here. Missing entries fall back to argN.
type ParameterNamer interface {
	ParameterNames() map[string][]string
}

// Hook method names. These are capabilities, not ordinary methods, and are
// never proxied as regular calls.
const (
	HookGetProperty    = "GetProperty"
	HookSetProperty    = "SetProperty"
	HookIssetProperty  = "IssetProperty"
	HookUnsetProperty  = "UnsetProperty"
	HookCallMethod     = "CallMethod"
	HookPostClone      = "PostClone"
	HookParameterNames = "ParameterNames"
)

package types

// Checker is an interface that can be implemented by argument types that can check themselves
// before they are handed to a proxied method.
type Checker interface {
	Check() error
}

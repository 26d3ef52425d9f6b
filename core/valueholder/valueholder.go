// Package valueholder owns the real instance behind a proxy, either supplied
// up front or built on first use.
package valueholder

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// Holder errors.
var (
	ErrInitializationInProgress = errors.New("initialization already in progress")
	ErrNilInstance              = errors.New("initializer produced no instance")
)

// State of a holder.
type State int

const (
	Unrealized State = iota
	Realized
)

func (s State) String() string {
	if s == Realized {
		return "realized"
	}
	return "unrealized"
}

// Initializer builds the real instance. trigger names the member whose access
// caused initialization.
type Initializer func(trigger string) (any, error)

// Holder gives access to the current real instance.
type Holder interface {
	// Value returns the real instance, realizing it first if needed.
	Value(trigger string) (any, error)
	// Current returns the real instance without realizing it.
	Current() (any, bool)
	// Realized reports whether the real instance exists.
	Realized() bool
	// Replace installs v as the real instance.
	Replace(v any) error
}

// Eager holds an instance supplied at construction.
type Eager struct {
	mu       sync.RWMutex
	instance any
}

// NewEager returns a realized holder. instance must not be nil.
func NewEager(instance any) (*Eager, error) {
	if isNil(instance) {
		return nil, ErrNilInstance
	}

	return &Eager{instance: instance}, nil
}

func (e *Eager) Value(string) (any, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.instance, nil
}

func (e *Eager) Current() (any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.instance, true
}

func (e *Eager) Realized() bool {
	return true
}

func (e *Eager) Replace(v any) error {
	if isNil(v) {
		return ErrNilInstance
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.instance = v
	return nil
}

// Lazy builds its instance on first use and keeps it afterwards.
//
// The initializer runs without holding the lock. A trigger arriving while it
// runs, re-entrant or from another goroutine, fails with
// ErrInitializationInProgress instead of running it a second time. A failed
// initialization leaves the holder unrealized and the next trigger retries.
type Lazy struct {
	mu           sync.Mutex
	init         Initializer
	instance     any
	initializing bool
	observe      func(error)
}

// NewLazy returns an unrealized holder.
func NewLazy(init Initializer) *Lazy {
	return &Lazy{init: init}
}

// OnInitialize registers a callback run after every initializer invocation.
func (l *Lazy) OnInitialize(fn func(error)) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.observe = fn
}

// Initializer returns the initializer the holder was built with.
func (l *Lazy) Initializer() Initializer {
	return l.init
}

func (l *Lazy) Value(trigger string) (any, error) {
	l.mu.Lock()
	if l.instance != nil {
		defer l.mu.Unlock()
		return l.instance, nil
	}
	if l.initializing {
		l.mu.Unlock()
		return nil, fmt.Errorf("%w: triggered by '%s'", ErrInitializationInProgress, trigger)
	}
	l.initializing = true
	observe := l.observe
	l.mu.Unlock()

	instance, err := l.init(trigger)
	if err == nil && isNil(instance) {
		err = ErrNilInstance
	}
	if observe != nil {
		observe(err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.initializing = false
	if err != nil {
		return nil, fmt.Errorf("initializing on '%s': %w", trigger, err)
	}
	// Replace may have installed an instance while the initializer ran.
	if l.instance == nil {
		l.instance = instance
	}

	return l.instance, nil
}

func (l *Lazy) Current() (any, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.instance, l.instance != nil
}

func (l *Lazy) Realized() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.instance != nil
}

// Replace realizes the holder with v, skipping the initializer.
func (l *Lazy) Replace(v any) error {
	if isNil(v) {
		return ErrNilInstance
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.instance = v
	return nil
}

// StateOf reports the lifecycle state of h.
func StateOf(h Holder) State {
	if h.Realized() {
		return Realized
	}
	return Unrealized
}

func isNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}

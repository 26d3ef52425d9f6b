package valueholder_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anoideaopen/proxymanager/core/valueholder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	n int
}

func TestEager(t *testing.T) {
	c := &counter{}
	h, err := valueholder.NewEager(c)
	require.NoError(t, err)

	v, err := h.Value("Get")
	require.NoError(t, err)
	require.Same(t, c, v)
	require.True(t, h.Realized())
	require.Equal(t, valueholder.Realized, valueholder.StateOf(h))

	other := &counter{}
	require.NoError(t, h.Replace(other))
	v, ok := h.Current()
	require.True(t, ok)
	require.Same(t, other, v)

	require.ErrorIs(t, h.Replace(nil), valueholder.ErrNilInstance)
	require.ErrorIs(t, h.Replace((*counter)(nil)), valueholder.ErrNilInstance)

	_, err = valueholder.NewEager((*counter)(nil))
	require.ErrorIs(t, err, valueholder.ErrNilInstance)
}

func TestLazyInitializesOnce(t *testing.T) {
	var calls int
	var triggers []string
	h := valueholder.NewLazy(func(trigger string) (any, error) {
		calls++
		triggers = append(triggers, trigger)
		return &counter{n: calls}, nil
	})

	require.False(t, h.Realized())
	require.Equal(t, valueholder.Unrealized, valueholder.StateOf(h))
	_, ok := h.Current()
	require.False(t, ok)

	v1, err := h.Value("Increment")
	require.NoError(t, err)
	v2, err := h.Value("Get")
	require.NoError(t, err)

	require.Same(t, v1, v2)
	require.Equal(t, 1, calls)
	require.Equal(t, []string{"Increment"}, triggers)
	require.True(t, h.Realized())
}

func TestLazyRetriesAfterFailure(t *testing.T) {
	errBoom := errors.New("boom")
	var calls int
	var observed []error
	h := valueholder.NewLazy(func(string) (any, error) {
		calls++
		if calls == 1 {
			return nil, errBoom
		}
		return &counter{}, nil
	})
	h.OnInitialize(func(err error) {
		observed = append(observed, err)
	})

	_, err := h.Value("Get")
	require.ErrorIs(t, err, errBoom)
	require.False(t, h.Realized())

	v, err := h.Value("Get")
	require.NoError(t, err)
	require.NotNil(t, v)
	require.Equal(t, 2, calls)
	require.Len(t, observed, 2)
	require.ErrorIs(t, observed[0], errBoom)
	require.NoError(t, observed[1])
}

func TestLazyRejectsNilInstance(t *testing.T) {
	h := valueholder.NewLazy(func(string) (any, error) {
		return (*counter)(nil), nil
	})

	_, err := h.Value("Get")
	require.ErrorIs(t, err, valueholder.ErrNilInstance)
	require.False(t, h.Realized())
}

func TestLazyReentrantTrigger(t *testing.T) {
	var (
		h     *valueholder.Lazy
		inner error
		calls int
	)
	h = valueholder.NewLazy(func(string) (any, error) {
		calls++
		_, inner = h.Value("Nested")
		return &counter{}, nil
	})

	_, err := h.Value("Outer")
	require.NoError(t, err)
	require.ErrorIs(t, inner, valueholder.ErrInitializationInProgress)
	require.Equal(t, 1, calls)
}

func TestLazyConcurrentTriggers(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	h := valueholder.NewLazy(func(string) (any, error) {
		calls.Add(1)
		<-release
		return &counter{}, nil
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := h.Value("first")
		assert.NoError(t, err)
	}()

	// Wait until the first trigger is inside the initializer.
	require.Eventually(t, func() bool { return calls.Load() == 1 }, timeout, tick)

	_, err := h.Value("second")
	require.ErrorIs(t, err, valueholder.ErrInitializationInProgress)

	close(release)
	wg.Wait()

	require.Equal(t, int32(1), calls.Load())
	require.True(t, h.Realized())
}

func TestLazyReplace(t *testing.T) {
	h := valueholder.NewLazy(func(string) (any, error) {
		t.Fatal("initializer must not run after Replace")
		return nil, nil
	})

	c := &counter{n: 5}
	require.NoError(t, h.Replace(c))

	v, err := h.Value("Get")
	require.NoError(t, err)
	require.Same(t, c, v)
	require.NotNil(t, h.Initializer())
}

const (
	timeout = 5 * time.Second
	tick    = time.Millisecond
)

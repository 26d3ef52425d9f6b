package scope

import (
	"github.com/anoideaopen/proxymanager/core/types"
	"github.com/huandu/go-clone"
)

// DeepCopy returns an independent copy of v, unexported fields included, and
// runs its PostClone hook when it has one.
func DeepCopy(v any) any {
	if v == nil {
		return nil
	}

	c := clone.Slowly(v)
	if pc, ok := c.(types.PostCloner); ok {
		pc.PostClone()
	}

	return c
}

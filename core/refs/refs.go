// Package refs allocates human-readable trip references. The counter is a
// single atomic increment so references stay distinct and monotonic no matter
// how many callers race on it.
package refs

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/fleetops/dispatchd/core/store"
)

// Prefix is prepended to every allocated reference.
const Prefix = "TRP"

// Allocator hands out monotonically increasing trip references.
type Allocator struct {
	n atomic.Uint64
}

// NewAllocator returns an allocator whose next reference is seed+1.
func NewAllocator(seed uint64) *Allocator {
	a := &Allocator{}
	a.n.Store(seed)
	return a
}

// FromStore seeds an allocator from the highest reference already persisted,
// so new references never collide with existing ones after a restart.
func FromStore(ctx context.Context, st store.Store) (*Allocator, error) {
	var seed uint64
	err := st.View(ctx, func(tx store.ReadTx) error {
		trips, err := tx.Trips()
		if err != nil {
			return err
		}
		for _, t := range trips {
			if n, ok := Sequence(t.Ref); ok && n > seed {
				seed = n
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("seed reference allocator: %w", err)
	}
	return NewAllocator(seed), nil
}

// Next returns the next reference, e.g. "TRP-0042". The sequence is never
// reused, even when the trip it was allocated for is not persisted.
func (a *Allocator) Next() string {
	return fmt.Sprintf("%s-%04d", Prefix, a.n.Add(1))
}

// Sequence parses the numeric sequence out of a reference.
func Sequence(ref string) (uint64, bool) {
	rest, ok := strings.CutPrefix(ref, Prefix+"-")
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseUint(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

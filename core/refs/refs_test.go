package refs

import (
	"context"
	"sync"
	"testing"

	"github.com/fleetops/dispatchd/core/model"
	corestore "github.com/fleetops/dispatchd/core/store"
	infrastore "github.com/fleetops/dispatchd/infra/store"
)

func TestNextFormat(t *testing.T) {
	a := NewAllocator(0)
	if got := a.Next(); got != "TRP-0001" {
		t.Fatalf("first ref = %q, want TRP-0001", got)
	}
	if got := a.Next(); got != "TRP-0002" {
		t.Fatalf("second ref = %q, want TRP-0002", got)
	}
}

func TestNextBeyondPadding(t *testing.T) {
	a := NewAllocator(9999)
	if got := a.Next(); got != "TRP-10000" {
		t.Fatalf("ref = %q, want TRP-10000", got)
	}
}

func TestNextConcurrentAllDistinct(t *testing.T) {
	a := NewAllocator(0)
	const n = 200
	refs := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			refs <- a.Next()
		}()
	}
	wg.Wait()
	close(refs)
	seen := make(map[string]bool, n)
	for r := range refs {
		if seen[r] {
			t.Fatalf("duplicate reference %s", r)
		}
		seen[r] = true
	}
	if len(seen) != n {
		t.Fatalf("expected %d distinct refs, got %d", n, len(seen))
	}
}

func TestSequence(t *testing.T) {
	if n, ok := Sequence("TRP-0042"); !ok || n != 42 {
		t.Fatalf("Sequence(TRP-0042) = %d, %v", n, ok)
	}
	if _, ok := Sequence("JOB-0001"); ok {
		t.Error("foreign prefix accepted")
	}
	if _, ok := Sequence("TRP-abc"); ok {
		t.Error("non-numeric sequence accepted")
	}
}

func TestFromStoreSkipsExistingRefs(t *testing.T) {
	st := infrastore.NewMemoryStore()
	ctx := context.Background()
	err := st.Update(ctx, func(tx corestore.Tx) error {
		trips := []model.Trip{
			{ID: "t1", Ref: "TRP-0003", VehicleID: "v", DriverID: "d", Origin: "A", Destination: "B", Status: model.TripDraft},
			{ID: "t2", Ref: "TRP-0007", VehicleID: "v", DriverID: "d", Origin: "A", Destination: "B", Status: model.TripCancelled},
		}
		for _, tr := range trips {
			if err := tx.PutTrip(tr, 0); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	a, err := FromStore(ctx, st)
	if err != nil {
		t.Fatalf("FromStore: %v", err)
	}
	if got := a.Next(); got != "TRP-0008" {
		t.Fatalf("next ref after seed = %q, want TRP-0008", got)
	}
}

package concurrency

import (
	"sync"
	"testing"
	"time"

	"github.com/vectorgraph/hnswgraph/store"
)

func TestExcludedSetMembership(t *testing.T) {
	c := New()
	id := store.VertexID(1)

	if c.IsExcluded(id) {
		t.Fatalf("expected id not excluded initially")
	}
	c.Exclude(id)
	if !c.IsExcluded(id) {
		t.Fatalf("expected id excluded after Exclude")
	}
	c.Unexclude(id)
	if c.IsExcluded(id) {
		t.Fatalf("expected id not excluded after Unexclude")
	}
}

func TestVertexLockSerializesAccess(t *testing.T) {
	c := New()
	id := store.VertexID(42)

	var counter int
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.LockVertex(id)
			defer c.UnlockVertex(id)
			counter++
		}()
	}
	wg.Wait()
	if counter != 100 {
		t.Fatalf("expected 100 serialized increments, got %d", counter)
	}
}

func TestGlobalLockExclusion(t *testing.T) {
	c := New()
	c.LockGlobal()
	defer c.UnlockGlobal()

	done := make(chan struct{})
	go func() {
		c.LockGlobal()
		c.UnlockGlobal()
		close(done)
	}()

	select {
	case <-done:
		t.Fatalf("second LockGlobal should have blocked while first held")
	case <-time.After(20 * time.Millisecond):
	}
}

package jobs

import (
	"sync"
	"testing"
	"time"
)

func TestRegistry_AddAssignsSequentialIDs(t *testing.T) {
	r := NewRegistry()

	for want := int64(1); want <= 5; want++ {
		job := NewDetachedJob(nil, nil)
		if got := r.Add(job); got != want {
			t.Fatalf("Add() = %d, want %d", got, want)
		}
		if job.ID() != want {
			t.Errorf("job.ID() = %d, want %d", job.ID(), want)
		}
		if stored, ok := r.Get(want); !ok || stored != job {
			t.Errorf("Get(%d) did not return the added job", want)
		}
	}
}

func TestRegistry_ConcurrentAddUniqueIDs(t *testing.T) {
	r := NewRegistry()

	const n = 200
	ids := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- r.Add(NewDetachedJob(nil, nil))
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool, n)
	for id := range ids {
		if seen[id] {
			t.Fatalf("Duplicate id %d", id)
		}
		seen[id] = true
	}
	if r.Len() != n {
		t.Errorf("Len() = %d, want %d", r.Len(), n)
	}
}

func TestRegistry_ListOrdered(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 10; i++ {
		r.Add(NewDetachedJob(nil, nil))
	}

	list := r.List()
	for i, job := range list {
		if job.ID() != int64(i+1) {
			t.Fatalf("List()[%d].ID() = %d", i, job.ID())
		}
	}
}

func TestRegistry_PruneKeepsRunningAndIDs(t *testing.T) {
	r := NewRegistry()

	finished := NewDetachedJob(nil, nil)
	r.Add(finished)
	finished.finish(nil, time.Now().Add(-time.Hour))

	running := NewDetachedJob(nil, nil)
	r.Add(running)

	if removed := r.PruneCompleted(time.Now().Add(-time.Minute)); removed != 1 {
		t.Errorf("PruneCompleted() = %d, want 1", removed)
	}
	if _, ok := r.Get(finished.ID()); ok {
		t.Error("Finished job survived pruning")
	}
	if _, ok := r.Get(running.ID()); !ok {
		t.Error("Running job was pruned")
	}

	if id := r.Add(NewDetachedJob(nil, nil)); id != 3 {
		t.Errorf("Add() after prune = %d, want 3", id)
	}
}

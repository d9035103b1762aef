package jobs

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Registry is an append-only map from job id to job. Ids come from a
// counter starting at 1 and are never reused, even after pruning.
type Registry struct {
	nextID atomic.Int64

	mu   sync.RWMutex
	jobs map[int64]*Job
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		jobs: make(map[int64]*Job),
	}
}

// Add assigns the next id to job and stores it. The entry is visible to
// Get before Add returns.
func (r *Registry) Add(job *Job) int64 {
	id := r.nextID.Add(1)
	job.id = id

	r.mu.Lock()
	r.jobs[id] = job
	r.mu.Unlock()

	return id
}

// Get looks up a job by id
func (r *Registry) Get(id int64) (*Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	return job, ok
}

// List returns all retained jobs ordered by id
func (r *Registry) List() []*Job {
	r.mu.RLock()
	out := make([]*Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		out = append(out, job)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, k int) bool { return out[i].id < out[k].id })
	return out
}

// Len returns the number of retained jobs
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// PruneCompleted drops completed jobs that ended before the cutoff and
// returns how many were removed. Running jobs are never pruned.
func (r *Registry) PruneCompleted(before time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, job := range r.jobs {
		if job.endedBefore(before) {
			delete(r.jobs, id)
			removed++
		}
	}
	return removed
}

package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iddaa-lens/jobrunner/pkg/logger"
)

var errNoDefinition = errors.New("no such definition")

// testResolver maps "category/jobType" to an implementation id
type testResolver map[string]string

func (r testResolver) ResolveImplementation(category, jobType string) (string, error) {
	impl, ok := r[category+"/"+jobType]
	if !ok {
		return "", errNoDefinition
	}
	return impl, nil
}

func (r testResolver) ResolveInitParams(category, jobType string) (ParamSet, error) {
	if _, ok := r[category+"/"+jobType]; !ok {
		return nil, errNoDefinition
	}
	return ParamSet{"category": category}, nil
}

// newTestManager registers one constructor per entry and resolves
// "test/<implID>" to that implementation
func newTestManager(t *testing.T, ctors map[string]Constructor) *Manager {
	t.Helper()

	factory := NewFactory()
	resolver := testResolver{}
	for id, ctor := range ctors {
		if err := factory.Register(id, ctor); err != nil {
			t.Fatalf("Failed to register %s: %v", id, err)
		}
		resolver["test/"+id] = id
	}

	m := NewManager(resolver, factory, &Config{
		PollInterval: 10 * time.Millisecond,
		Logger:       logger.Nop(),
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.Shutdown(ctx)
	})
	return m
}

func constant(r Runner) Constructor {
	return func() (Runner, error) { return r, nil }
}

// waitForCancel blocks until cancel is requested and returns ctx.Err()
func waitForCancel(ctx context.Context, job *Job) error {
	<-ctx.Done()
	return ctx.Err()
}

func waitDone(t *testing.T, m *Manager, id int64) Status {
	t.Helper()

	job, ok := m.registry.Get(id)
	if !ok {
		t.Fatalf("Job %d not registered", id)
	}
	select {
	case <-job.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("Job %d did not complete in time", id)
	}
	return job.Snapshot()
}

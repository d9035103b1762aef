package jobs

import (
	"errors"
	"testing"
	"time"
)

func TestJob_SetProgress(t *testing.T) {
	tests := []struct {
		name    string
		updates []int
		want    int
	}{
		{"initial value", nil, 1},
		{"forward progress", []int{10, 20, 55}, 55},
		{"decrease ignored", []int{40, 30}, 40},
		{"clamped low", []int{-7}, 1},
		{"clamped high", []int{500}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := NewDetachedJob(nil, nil)
			for _, p := range tt.updates {
				job.SetProgress(p, "msg")
			}
			if got := job.Snapshot().Percent; got != tt.want {
				t.Errorf("Percent = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestJob_AbortIsSticky(t *testing.T) {
	job := NewDetachedJob(nil, nil)
	job.SetProgress(70, "working")
	job.Abort("out of memory")
	job.SetProgress(90, "still working")

	s := job.Snapshot()
	if s.Percent != AbortedPercent || s.Message != "out of memory" {
		t.Errorf("Snapshot = (%d, %q), want (-1, out of memory)", s.Percent, s.Message)
	}
	if s.State != StateRunning {
		t.Errorf("State before completion = %s, want running", s.State)
	}
}

func TestJob_FinishFreezesTerminalFields(t *testing.T) {
	job := NewDetachedJob(nil, nil)
	job.SetProgress(50, "halfway")

	if !job.finish(nil, time.Now()) {
		t.Fatal("First finish() reported no effect")
	}
	if job.finish(errors.New("late failure"), time.Now()) {
		t.Error("Second finish() reported an effect")
	}

	job.SetProgress(70, "after")
	job.SetMessage("after")
	job.Abort("after")

	s := job.Snapshot()
	if s.Percent != 100 || s.Message != "halfway" || !s.Completed {
		t.Errorf("Snapshot after finish = %+v", s)
	}
	if s.EndedAt == nil {
		t.Error("EndedAt not set on completed job")
	}

	select {
	case <-job.Done():
	default:
		t.Error("Done() not closed after finish")
	}
}

func TestJob_FinishOutcomes(t *testing.T) {
	tests := []struct {
		name        string
		prepare     func(j *Job)
		execErr     error
		wantPercent int
		wantState   State
	}{
		{
			name:        "clean return completes at 100",
			prepare:     func(j *Job) { j.SetProgress(30, "x") },
			wantPercent: 100,
			wantState:   StateCompletedSuccess,
		},
		{
			name:        "error aborts",
			prepare:     func(j *Job) { j.SetProgress(30, "x") },
			execErr:     errors.New("boom"),
			wantPercent: AbortedPercent,
			wantState:   StateCompletedAborted,
		},
		{
			name:        "self abort is kept",
			prepare:     func(j *Job) { j.Abort("bad input") },
			wantPercent: AbortedPercent,
			wantState:   StateCompletedAborted,
		},
		{
			name: "cancelled keeps partial percent",
			prepare: func(j *Job) {
				j.SetProgress(30, "x")
				j.requestCancel()
			},
			wantPercent: 30,
			wantState:   StateCancelled,
		},
		{
			name: "cancel after reaching 100 counts as success",
			prepare: func(j *Job) {
				j.SetProgress(100, "x")
				j.requestCancel()
			},
			wantPercent: 100,
			wantState:   StateCompletedSuccess,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := NewDetachedJob(nil, nil)
			tt.prepare(job)
			job.finish(tt.execErr, time.Now())

			s := job.Snapshot()
			if s.Percent != tt.wantPercent || s.State != tt.wantState {
				t.Errorf("Snapshot = (%d, %s), want (%d, %s)", s.Percent, s.State, tt.wantPercent, tt.wantState)
			}
		})
	}
}

func TestJob_RequestCancelOnce(t *testing.T) {
	job := NewDetachedJob(nil, nil)

	if !job.requestCancel() {
		t.Error("First requestCancel() = false")
	}
	if job.requestCancel() {
		t.Error("Second requestCancel() = true")
	}
	if !job.CancelRequested() {
		t.Error("CancelRequested() = false after request")
	}

	select {
	case <-job.Cancelled():
	default:
		t.Error("Cancelled() not closed")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		percent int
		want    ResultCode
	}{
		{AbortedPercent, ResultAborted},
		{1, ResultCancelled},
		{99, ResultCancelled},
		{100, ResultAlreadyCompleted},
	}

	for _, tt := range tests {
		if got := classify(tt.percent); got != tt.want {
			t.Errorf("classify(%d) = %v, want %v", tt.percent, got, tt.want)
		}
	}
}

package jobs

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("admission: %w", InvalidJobID(7))

	if !errors.Is(err, ErrInvalidJobID) {
		t.Error("errors.Is did not match InvalidJobId through wrapping")
	}
	if errors.Is(err, ErrJobAlreadyRunning) {
		t.Error("errors.Is matched a different code")
	}
}

func TestError_Format(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{JobAlreadyRunning(), "JobAlreadyRunning()"},
		{InvalidJobID(42), "InvalidJobId(42)"},
		{JobDefinitionNotFound("export", "full", nil), "JobDefinitionNotFound(export, full)"},
		{ServerRequestMalformed("job_id", "required"), "ServerRequestMalformed(job_id, required)"},
		{FactoryConstructionError("x", errors.New("nope")), "FactoryConstructionError(x): nope"},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestAsError(t *testing.T) {
	if AsError(nil) != nil {
		t.Error("AsError(nil) != nil")
	}

	classified := InvalidRequestType("Frobnicate")
	if got := AsError(fmt.Errorf("wrap: %w", classified)); got != classified {
		t.Errorf("AsError() = %v, want the classified error", got)
	}

	raw := errors.New("socket closed")
	got := AsError(raw)
	if got.Code != CodeUnexpectedError || !errors.Is(got, raw) {
		t.Errorf("AsError(raw) = %v, want UnexpectedError wrapping raw", got)
	}
}

package backend

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestKindOf_Classified(t *testing.T) {
	err := NewError(KindAuth, "load", errors.New("token expired"))

	if KindOf(err) != KindAuth {
		t.Errorf("KindOf() = %v, want auth", KindOf(err))
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("attach failed: %w", NewError(KindTransient, "load", errors.New("timeout")))

	if KindOf(err) != KindTransient {
		t.Errorf("KindOf() = %v, want transient", KindOf(err))
	}
}

func TestKindOf_Unclassified(t *testing.T) {
	if KindOf(errors.New("mystery")) != KindFatal {
		t.Error("unclassified errors should be treated as fatal")
	}
}

func TestShouldSkip(t *testing.T) {
	cases := []struct {
		kind ErrorKind
		want bool
	}{
		{KindTransient, true},
		{KindTrackUnavailable, true},
		{KindAuth, false},
		{KindFatal, false},
	}
	for _, tc := range cases {
		err := NewError(tc.kind, "load", errors.New("boom"))
		if got := ShouldSkip(err); got != tc.want {
			t.Errorf("ShouldSkip(%v) = %v, want %v", tc.kind, got, tc.want)
		}
	}
}

func TestRetry_StopsOnNonTransient(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), func() error {
		calls++
		return NewError(KindAuth, "load", errors.New("denied"))
	})

	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
	if KindOf(err) != KindAuth {
		t.Errorf("Retry() = %v, want auth error", err)
	}
}

func TestRetry_RetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return NewError(KindTransient, "load", errors.New("timeout"))
		}
		return nil
	})

	if err != nil {
		t.Errorf("Retry() = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("fn called %d times, want 3", calls)
	}
}

func TestRetry_GivesUpAfterBudget(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), func() error {
		calls++
		return NewError(KindTransient, "load", errors.New("timeout"))
	})

	if calls != maxRetries+1 {
		t.Errorf("fn called %d times, want %d", calls, maxRetries+1)
	}
	if KindOf(err) != KindTransient {
		t.Errorf("Retry() = %v, want transient error", err)
	}
}

func TestError_Unwrap(t *testing.T) {
	inner := errors.New("gone")
	err := NewError(KindTrackUnavailable, "load", inner)

	if !errors.Is(err, inner) {
		t.Error("errors.Is should reach the wrapped error")
	}
}

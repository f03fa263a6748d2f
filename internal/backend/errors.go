package backend

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies backend failures so the session can decide
// centrally whether to retry, skip or give up.
type ErrorKind int

const (
	// KindTransient covers network timeouts and temporary backend
	// unavailability. Adapters retry these internally a bounded number
	// of times before surfacing them.
	KindTransient ErrorKind = iota
	// KindAuth means an expired or invalid credential: fatal for the
	// backend until credentials are refreshed externally, harmless to
	// the session.
	KindAuth
	// KindTrackUnavailable means the track is gone, region-locked or
	// corrupt; the session skips it.
	KindTrackUnavailable
	// KindFatal means the adapter is beyond recovery (process crash,
	// protocol desync) and must be torn down.
	KindFatal
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindAuth:
		return "auth"
	case KindTrackUnavailable:
		return "track unavailable"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error is a classified backend failure.
type Error struct {
	Kind ErrorKind
	Op   string // operation that failed, e.g. "load", "seek"
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err as a classified backend error.
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a classified backend error from a format string.
func Errorf(kind ErrorKind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the classification of err. Unclassified errors are
// treated as fatal: an adapter that fails without saying why cannot be
// trusted to keep running.
func KindOf(err error) ErrorKind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindFatal
}

// ShouldSkip reports whether the session should advance past the
// current track after this error instead of halting playback.
func ShouldSkip(err error) bool {
	switch KindOf(err) {
	case KindTrackUnavailable, KindTransient:
		return true
	default:
		return false
	}
}

const (
	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// Retry runs fn up to maxRetries+1 times, backing off between attempts,
// as long as the failure is classified transient. Any other failure, or
// context cancellation, is returned immediately.
func Retry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || KindOf(err) != KindTransient || attempt >= maxRetries {
			return err
		}
		wait := baseRetryWait * time.Duration(1<<attempt)
		select {
		case <-ctx.Done():
			return NewError(KindTransient, "retry", ctx.Err())
		case <-time.After(wait):
		}
	}
}

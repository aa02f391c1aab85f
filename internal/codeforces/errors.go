package codeforces

import (
	"errors"
	"fmt"
)

var (
	ErrFetchFailed = errors.New("fetch failed")
	ErrEmptyHandle = errors.New("empty handle")
	ErrBadStatus   = errors.New("unexpected response status")
	ErrRejected    = errors.New("request rejected by rating service")
)

// FetchFailedError covers transport failures, non-success responses and unknown handles alike.
type FetchFailedError struct {
	Handle string
	Err    error
}

func (e *FetchFailedError) Error() string {
	return fmt.Sprintf("fetch failed for handle %q: %v", e.Handle, e.Err)
}

func (e *FetchFailedError) Unwrap() error {
	return e.Err
}

func (e *FetchFailedError) Is(target error) bool {
	return target == ErrFetchFailed
}

package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrSyncFailed        = errors.New("sync failed")
	ErrRosterUnavailable = errors.New("roster unavailable")
	ErrNoHandle          = errors.New("student has no handle")
)

// SyncFailedError wraps a fetch or storage failure for one student.
type SyncFailedError struct {
	StudentID uuid.UUID
	Handle    string
	Err       error
}

func (e *SyncFailedError) Error() string {
	return fmt.Sprintf("sync failed for student %s (%s): %v", e.StudentID, e.Handle, e.Err)
}

func (e *SyncFailedError) Unwrap() error {
	return e.Err
}

func (e *SyncFailedError) Is(target error) bool {
	return target == ErrSyncFailed
}

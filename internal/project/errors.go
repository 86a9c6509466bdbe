package project

import (
	"fmt"

	"github.com/ac7x/lin-llc-sub001/internal/store"
)

// NotFoundError names the missing node. It matches store.ErrNotFound with
// errors.Is.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (e NotFoundError) Is(target error) bool { return target == store.ErrNotFound }

// PersistenceError is returned when the store rejects a write. The session
// keeps its optimistic local state; the user has to retry the action.
type PersistenceError struct {
	Op        string
	ProjectID string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: saving project %s failed: %v", e.Op, e.ProjectID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

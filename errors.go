package dfk

import "fmt"

// DependencyError indicates that one or more of a task's dependencies
// settled with an error, so the task's function was never invoked.
type DependencyError struct {
	// TaskID is the id of the task that could not be launched.
	TaskID int64
	// Errors holds the settled errors of the upstream dependencies, in the
	// order they were discovered by the dependency analyzer.
	Errors []error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("dfk: task %d: %d dependency error(s), first: %v", e.TaskID, len(e.Errors), firstError(e.Errors))
}

// Unwrap exposes the underlying dependency errors for errors.Is/errors.As.
func (e *DependencyError) Unwrap() []error { return e.Errors }

func firstError(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return errs[0]
}

// ExecutionError wraps an error returned by a task's function, as reported
// by the executor that ran it.
type ExecutionError struct {
	TaskID int64
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("dfk: task %d: execution failed: %v", e.TaskID, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// RoutingError indicates a task named sites that did not intersect the
// executor registry, or that the selected executor refused the submission
// (Sites then holds that one site).
type RoutingError struct {
	TaskID int64
	Sites  []string
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("dfk: task %d: no registered executor for sites %v", e.TaskID, e.Sites)
}

// DuplicateTaskError is a defensive invariant check: task ids are
// monotonically increasing and allocated under the kernel lock, so this
// should be structurally impossible. Retained per spec.
type DuplicateTaskError struct {
	TaskID int64
}

func (e *DuplicateTaskError) Error() string {
	return fmt.Sprintf("dfk: task %d: duplicate task id", e.TaskID)
}

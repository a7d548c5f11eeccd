package dfk

// TaskFunc is the signature of a function submitted to the kernel. args and
// kwargs are handed to it with every [Handle] and [DataHandle] reference
// already resolved to its settled value.
type TaskFunc func(args []any, kwargs map[string]any) (any, error)

// Task is the kernel's internal record of one submission. Tasks are never
// exposed directly to callers; [Handle] is the public handle to a task's
// outcome. Every field is read and written exclusively under the owning
// Kernel's mu; Task has no lock of its own.
type Task struct {
	id     int64
	fn     TaskFunc
	sites  any
	args   []any
	kwargs map[string]any

	status      Status
	handle      *Handle
	execHandle  *Handle
	retriesLeft int
}

// getStatus returns t.status. Callers must hold the owning Kernel's mu.
func (t *Task) getStatus() Status { return t.status }

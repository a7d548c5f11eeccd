package dfk

import (
	"errors"
	"sync"
)

type handleState int32

const (
	handleUnset handleState = iota
	handleValue
	handleError
)

// ErrAlreadyRebound is returned by [Handle.RebindParent] when called more
// than once on the same handle.
var ErrAlreadyRebound = errors.New("dfk: handle already rebound to a parent")

// Handle is a one-shot settable cell representing a task's eventual result.
// It starts unset, transitions at most once to either a value or an error,
// and invokes any registered callbacks exactly once, in registration order,
// at the moment of transition (or immediately, on the calling goroutine, if
// already settled).
//
// A Handle created for a still-pending task starts parent-less. Once the
// task becomes runnable and is launched on an executor, the scheduler calls
// RebindParent to wire the executor's own handle through to this one.
type Handle struct {
	mu        sync.Mutex
	state     handleState
	value     any
	err       error
	callbacks []func(any, error)
	done      chan struct{}

	taskID  int64
	rebound bool

	stdout, stderr string
	outputs        []*DataHandle
}

func newHandle(taskID int64) *Handle {
	return &Handle{
		done:   make(chan struct{}),
		taskID: taskID,
	}
}

// NewExecHandle constructs a bare [Handle], for use by [Executor]
// implementations that live outside this package: an executor settles one
// of these per submitted task and returns it from Submit, and the kernel
// wires it up as that task's execution handle. id is free-form; executors
// that don't track their own ids can pass 0.
func NewExecHandle(id int64) *Handle {
	return newHandle(id)
}

// TaskID returns the id of the task this handle was created for.
func (h *Handle) TaskID() int64 { return h.taskID }

// Done reports whether the handle has settled, with either a value or an
// error.
func (h *Handle) Done() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state != handleUnset
}

// Result blocks until the handle settles, then returns its value, or its
// error if it settled with one.
func (h *Handle) Result() (any, error) {
	<-h.done
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.value, h.err
}

// Exception returns the settled error, or nil if the handle is pending or
// settled with a value.
func (h *Handle) Exception() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == handleError {
		return h.err
	}
	return nil
}

// Outputs returns the data handles minted for this task's declared outputs,
// if any.
func (h *Handle) Outputs() []*DataHandle {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.outputs
}

// Stdout returns the path or descriptor captured from the stdout kwarg at
// submit time, if any.
func (h *Handle) Stdout() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stdout
}

// Stderr returns the path or descriptor captured from the stderr kwarg at
// submit time, if any.
func (h *Handle) Stderr() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stderr
}

// AddDoneCallback registers cb to run when the handle settles. If the
// handle is already settled, cb runs immediately, synchronously, on the
// calling goroutine.
func (h *Handle) AddDoneCallback(cb func(value any, err error)) {
	if cb == nil {
		return
	}
	h.mu.Lock()
	if h.state == handleUnset {
		h.callbacks = append(h.callbacks, cb)
		h.mu.Unlock()
		return
	}
	value, err := h.value, h.err
	h.mu.Unlock()
	cb(value, err)
}

// settleValue transitions the handle to a resolved value. A no-op if
// already settled.
func (h *Handle) settleValue(v any) { h.settle(v, nil) }

// settleError transitions the handle to an error outcome. A no-op if
// already settled.
func (h *Handle) settleError(err error) { h.settle(nil, err) }

// Settle transitions a handle obtained from [NewExecHandle] to its final
// outcome. It is a no-op if the handle has already settled. Executors call
// this exactly once per task, from whatever goroutine ran it.
func (h *Handle) Settle(value any, err error) { h.settle(value, err) }

func (h *Handle) settle(v any, err error) {
	h.mu.Lock()
	if h.state != handleUnset {
		h.mu.Unlock()
		return
	}
	if err != nil {
		h.state = handleError
		h.err = err
	} else {
		h.state = handleValue
		h.value = v
	}
	callbacks := h.callbacks
	h.callbacks = nil
	close(h.done)
	h.mu.Unlock()

	for _, cb := range callbacks {
		cb(v, err)
	}
}

// RebindParent wires parent's eventual settlement through to h. It may be
// called at most once per handle; subsequent calls return
// ErrAlreadyRebound. If parent is already settled, the copy happens
// synchronously, on the calling goroutine.
func (h *Handle) RebindParent(parent *Handle) error {
	h.mu.Lock()
	if h.rebound {
		h.mu.Unlock()
		return ErrAlreadyRebound
	}
	h.rebound = true
	h.mu.Unlock()

	parent.AddDoneCallback(func(v any, err error) {
		h.settle(v, err)
	})
	return nil
}

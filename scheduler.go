package dfk

import (
	"context"
	"fmt"
	"sync"
)

// Kernel is a dependency-aware dataflow scheduler. A single mutex guards
// its task table (the executor registry has its own lock); callbacks that may block or
// recurse into user code (handle settlement, in particular) are always
// deferred to run after the lock is released.
type Kernel struct {
	mu       sync.Mutex
	tasks    map[int64]*Task
	nextID   int64
	registry *registry

	lazyFail    bool
	failRetries int

	firstFailure error
	closed       bool

	log       *Logger
	rundir    string
	telemetry *telemetry
}

// NewKernel constructs a Kernel and applies opts. See [Option] for the
// available configuration knobs; WithExecutor must be used at least once
// before the first Submit that needs it, or tasks will fail routing with a
// [RoutingError].
func NewKernel(opts ...Option) (*Kernel, error) {
	k := &Kernel{
		tasks:       make(map[int64]*Task),
		registry:    newRegistry(),
		lazyFail:    true,
		failRetries: 2,
	}

	cfg := newOptionConfig()
	for _, o := range opts {
		o.apply(cfg)
	}
	if err := cfg.applyTo(k); err != nil {
		return nil, err
	}

	if k.log == nil {
		k.log = defaultLogger()
	}

	rundir, err := allocateRunDir(cfg.rundirRoot)
	if err != nil {
		return nil, fmt.Errorf("dfk: allocate rundir: %w", err)
	}
	k.rundir = rundir

	k.telemetry = newTelemetry(k.rundir, k.log)
	k.telemetry.sendInit()

	k.log.Info().Log("kernel initialized")
	return k, nil
}

// Submit analyzes fn's dependencies (drawn from args, the values of
// kwargs, and kwargs["inputs"]) and either launches it immediately, if
// every dependency has already settled, or parks it pending. sites selects
// which registered executor(s) are eligible to run it: nil or "any" means
// any registered executor, a string names exactly one, and a []string
// names a candidate set.
func (k *Kernel) Submit(fn TaskFunc, sites any, args []any, kwargs map[string]any) *Handle {
	k.mu.Lock()

	id := k.nextID
	k.nextID++

	deps := analyzeDependencies(args, kwargs)
	t := &Task{
		id:          id,
		fn:          fn,
		sites:       sites,
		args:        args,
		kwargs:      kwargs,
		status:      Unscheduled,
		handle:      newHandle(id),
		retriesLeft: k.failRetries,
	}
	if names, ok := kwargs["outputs"].([]string); ok {
		outputs := make([]*DataHandle, len(names))
		for i, name := range names {
			outputs[i] = newDataHandle(name, t.handle)
		}
		t.handle.outputs = outputs
	}
	if stdout, ok := kwargs["stdout"].(string); ok {
		t.handle.stdout = stdout
	}
	if stderr, ok := kwargs["stderr"].(string); ok {
		t.handle.stderr = stderr
	}
	if _, exists := k.tasks[id]; exists {
		k.mu.Unlock()
		t.handle.settleError(&DuplicateTaskError{TaskID: id})
		return t.handle
	}
	k.tasks[id] = t

	var deferred []func()
	if allSettled(deps) {
		t.status = Runnable
		deferred = k.launchLocked(t)
	} else {
		t.status = Pending
	}

	k.log.Debug().Int64("task_id", id).Str("status", t.getStatus().String()).Log("task submitted")

	k.mu.Unlock()
	runDeferred(deferred)

	return t.handle
}

// launchLocked resolves t's args/kwargs and either launches it on an
// executor or settles it with a dependency/routing error. Must be called
// with k.mu held; returns callbacks that must run only after the caller
// releases the lock.
//
// A dependency or routing failure is genuinely one-shot - a task that
// never reaches an executor never gets a second chance - so those two
// paths settle t.handle by way of RebindParent, exactly once, onto a
// handle created and settled on the spot. The executor path does not:
// with retries in play, a single task may be launched more than once, and
// Handle's one-shot semantics mean it cannot be rebound to a second parent
// once a first parent has already fired. So the executor path instead
// lets onComplete settle t.handle directly, only once it has made a final
// (non-retryable) decision.
func (k *Kernel) launchLocked(t *Task) []func() {
	deps := analyzeDependencies(t.args, t.kwargs)
	if errs := pendingErrors(deps); len(errs) > 0 {
		t.status = DepFailed
		cause := newHandle(t.id)
		cause.settleError(&DependencyError{TaskID: t.id, Errors: errs})
		k.log.Debug().Int64("task_id", t.id).Log("task dependency failed")
		return []func(){func() { _ = t.handle.RebindParent(cause) }}
	}
	rargs, rkwargs, _ := resolve(t.args, t.kwargs)

	site, err := k.registry.selectSite(t.id, t.sites)
	if err != nil {
		t.status = DepFailed
		cause := newHandle(t.id)
		cause.settleError(err)
		k.log.Debug().Int64("task_id", t.id).Log("task routing failed")
		return []func(){func() { _ = t.handle.RebindParent(cause) }}
	}

	ex, _ := k.registry.get(site)
	t.status = Running

	execHandle, err := ex.Submit(context.Background(), t.fn, rargs, rkwargs)
	if err != nil {
		t.status = DepFailed
		cause := newHandle(t.id)
		cause.settleError(&RoutingError{TaskID: t.id, Sites: []string{site}})
		k.log.Debug().Int64("task_id", t.id).Str("site", site).Log("task submit to executor failed")
		return []func(){func() { _ = t.handle.RebindParent(cause) }}
	}

	t.execHandle = execHandle
	id := t.id

	k.log.Debug().Int64("task_id", t.id).Str("site", site).Log("task launched")

	// Registered after the lock is released: an execution handle that has
	// already settled runs onComplete at once, and onComplete takes the lock.
	return []func(){func() {
		execHandle.AddDoneCallback(func(v any, err error) {
			k.onComplete(id, v, err)
		})
	}}
}

// onComplete is the only callback the kernel registers on an executor
// handle. It is invoked exactly once, when that task's execution settles.
// It relaunches the task if retries remain, otherwise records its terminal
// status, then sweeps the whole task table for newly runnable tasks.
//
// The sweep loop below resolves and launches each promoted task using that
// task's own id at every step - never the id of the task that just
// completed. A scheduler that reused the completing task's id here would
// silently corrupt the rebinding of every other task it promotes in the
// same sweep.
func (k *Kernel) onComplete(taskID int64, value any, err error) {
	k.mu.Lock()

	t := k.tasks[taskID]
	if t == nil {
		k.mu.Unlock()
		return
	}

	var deferred []func()

	if err != nil && t.retriesLeft > 0 {
		t.retriesLeft--
		t.status = Runnable
		k.log.Debug().Int64("task_id", t.id).Int64("retries_left", int64(t.retriesLeft)).Log("task retry")
		deferred = append(deferred, k.launchLocked(t)...)
	} else if err != nil {
		t.status = Failed
		execErr := &ExecutionError{TaskID: t.id, Err: err}
		if k.firstFailure == nil {
			k.firstFailure = execErr
		}
		k.log.Err().Int64("task_id", t.id).Err(execErr).Log("task failed")
		deferred = append(deferred, func() { t.handle.settleError(execErr) })
		if !k.lazyFail {
			k.mu.Unlock()
			runDeferred(deferred)
			panic(execErr)
		}
	} else {
		t.status = Done
		k.log.Debug().Int64("task_id", t.id).Log("task completed")
		deferred = append(deferred, func() { t.handle.settleValue(value) })
	}

	// Handles settle only when the deferred work runs, outside the lock, so
	// that work runs before each sweep, and the sweep repeats until it
	// promotes nothing more.
	for {
		k.mu.Unlock()
		runDeferred(deferred)
		deferred = nil
		k.mu.Lock()

		for _, candidate := range k.tasks {
			if candidate.status != Pending {
				continue
			}
			deps := analyzeDependencies(candidate.args, candidate.kwargs)
			if !allSettled(deps) {
				continue
			}
			candidate.status = Runnable
			k.log.Debug().Int64("task_id", candidate.id).Log("task promoted by sweep")
			deferred = append(deferred, k.launchLocked(candidate)...)
		}
		if len(deferred) == 0 {
			break
		}
	}

	k.mu.Unlock()
}

func runDeferred(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}

// Err returns the first execution error recorded by any task, or nil if
// none have failed. Under eager-fail ([WithLazyFail](false)), the kernel
// panics at the point of failure instead; under the default lazy-fail
// policy, callers poll Err (or individual handles) to learn about failures.
func (k *Kernel) Err() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.firstFailure
}

// StatusCounts returns the number of tasks currently in each [Status].
func (k *Kernel) StatusCounts() map[Status]int {
	k.mu.Lock()
	defer k.mu.Unlock()
	counts := make(map[Status]int)
	for _, t := range k.tasks {
		counts[t.getStatus()]++
	}
	return counts
}

// RegisterExecutor adds ex to the kernel's executor registry under name, as
// an unmanaged executor: [Kernel.Cleanup] will not scale it in or shut it
// down. It is an error to register the same name twice.
func (k *Kernel) RegisterExecutor(name string, ex Executor) error {
	return k.registry.register(name, ex, false)
}

// Cleanup scales in and shuts down every kernel-managed executor (those
// built from a config file; executors registered via [WithExecutor] or
// [Kernel.RegisterExecutor] are left untouched), and flushes a final usage
// telemetry message. It should be called once, when the
// kernel is no longer needed.
func (k *Kernel) Cleanup(ctx context.Context) error {
	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		return nil
	}
	k.closed = true
	k.mu.Unlock()

	k.telemetry.sendFinal(k.StatusCounts())
	k.log.Info().Log("kernel cleanup")

	return k.registry.shutdown(ctx)
}

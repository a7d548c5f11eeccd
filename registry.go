package dfk

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/joeycumines/go-catrate"
)

// Executor is the contract a compute backend implements to accept launched
// tasks. Submit must not block past the point of accepting the task: the
// returned handle settles asynchronously, on whatever goroutine the
// executor uses to run fn.
type Executor interface {
	Submit(ctx context.Context, fn TaskFunc, args []any, kwargs map[string]any) (*Handle, error)
	ScalingEnabled() bool
	ScaleIn(n int) error
	Shutdown(ctx context.Context) error
	// Resources enumerates the executor's currently provisioned workers, for
	// scale-in counting during [Kernel.Cleanup]. An executor with
	// ScalingEnabled false may return nil; it will never be consulted.
	Resources() []string
}

// registry holds the kernel's named executors and performs site selection
// for each launch. A [catrate.Limiter] records every selection under the
// chosen site as a rate-limit category; its verdict is discarded and never
// gates a launch.
type registry struct {
	mu        sync.RWMutex
	executors map[string]Executor
	managed   map[string]bool
	rng       *rand.Rand
	flow      *catrate.Limiter
}

// anySite is the sentinel a submission uses to mean "any registered
// executor is acceptable".
const anySite = "any"

func newRegistry() *registry {
	return &registry{
		executors: make(map[string]Executor),
		managed:   make(map[string]bool),
		rng:       rand.New(rand.NewSource(1)),
		flow: catrate.NewLimiter(map[time.Duration]int{
			time.Second: 1000,
			time.Minute: 20000,
		}),
	}
}

// register adds ex under name. managed marks ex as kernel-owned: built from
// a config file's "executors" section via an [ExecutorFactory], rather than
// handed in directly by the caller via [WithExecutor] or a pre-built map.
// Only kernel-managed executors are scaled in and shut down by
// [Kernel.Cleanup]; unmanaged ones are the caller's own responsibility, per
// the lifecycle contract in §4.6.
func (r *registry) register(name string, ex Executor, managed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.executors[name]; exists {
		return fmt.Errorf("dfk: executor %q already registered", name)
	}
	r.executors[name] = ex
	r.managed[name] = managed
	return nil
}

func (r *registry) get(name string) (Executor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ex, ok := r.executors[name]
	return ex, ok
}

func (r *registry) names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.executors))
	for name := range r.executors {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// selectSite resolves a task's requested sites to exactly one registered
// executor name. sites may be nil, the string [anySite], a single string
// naming one executor, or a []string naming a candidate set; the pick is
// uniformly random among whatever the request leaves eligible.
func (r *registry) selectSite(taskID int64, sites any) (string, error) {
	all := r.names()
	if len(all) == 0 {
		return "", &RoutingError{TaskID: taskID, Sites: nil}
	}

	candidates, requested := r.candidateSites(sites, all)
	if len(candidates) == 0 {
		return "", &RoutingError{TaskID: taskID, Sites: requested}
	}

	r.mu.Lock()
	pick := candidates[r.rng.Intn(len(candidates))]
	r.mu.Unlock()

	// Advisory only: record the selection against the flow control window.
	// The outcome is never consulted to gate or delay the launch.
	r.flow.Allow(pick)

	return pick, nil
}

func (r *registry) candidateSites(sites any, all []string) (candidates []string, requested []string) {
	switch v := sites.(type) {
	case nil:
		return all, nil
	case string:
		if v == anySite || v == "" {
			return all, nil
		}
		requested = []string{v}
	case []string:
		requested = v
	default:
		return nil, nil
	}

	set := make(map[string]struct{}, len(all))
	for _, name := range all {
		set[name] = struct{}{}
	}
	for _, name := range requested {
		if _, ok := set[name]; ok {
			candidates = append(candidates, name)
		}
	}
	return candidates, requested
}

// shutdown scales in and shuts down every kernel-managed executor. Unmanaged
// executors (registered via [WithExecutor] or a pre-built map) are left
// untouched entirely, per §4.6: their lifecycle belongs to whoever handed
// them to the kernel. Scale-in errors are collected alongside shutdown
// errors rather than aborting the loop early, so one misbehaving site never
// strands the rest.
func (r *registry) shutdown(ctx context.Context) error {
	r.mu.RLock()
	executors := make([]Executor, 0, len(r.executors))
	for name, ex := range r.executors {
		if r.managed[name] {
			executors = append(executors, ex)
		}
	}
	r.mu.RUnlock()

	var errs []error
	for _, ex := range executors {
		if ex.ScalingEnabled() {
			if err := ex.ScaleIn(len(ex.Resources())); err != nil {
				errs = append(errs, err)
			}
		}
	}
	for _, ex := range executors {
		if err := ex.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("dfk: %d executor(s) failed to shut down cleanly: %w", len(errs), errs[0])
	}
	return nil
}

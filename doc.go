// Package dfk implements a dependency-aware dataflow task kernel.
//
// Callers submit functions whose arguments may include handles returned by
// earlier submissions. The kernel tracks the resulting dependency graph,
// launches each task exactly once onto a pluggable executor once all of its
// inputs have settled, propagates failures along dependency edges, and
// returns a handle that settles with the task's eventual outcome.
//
// # Architecture
//
// A [Kernel] owns a task table, an executor registry, and a kernel-wide
// mutex. [Kernel.Submit] analyzes the submission's dependencies, and either
// launches the task immediately (all dependencies already settled) or parks
// it pending. Each launched task's executor handle carries a completion
// callback back into the kernel, which sweeps the task table for newly
// runnable tasks and launches them in turn.
package dfk

package dfk

// dependency is the common surface shared by [Handle] and [DataHandle] that
// the analyzer and resolver need: something that settles, once, with either
// a value or an error.
type dependency interface {
	Done() bool
	Result() (any, error)
	Exception() error
	AddDoneCallback(func(any, error))
}

// analyzeDependencies performs a shallow scan of args, the values of
// kwargs, and the kwargs["inputs"] list for dependency references. It does
// not recurse into nested slices, maps, or structs: a Handle buried inside
// a user-defined struct field is invisible to the kernel's dependency
// analysis. This is deliberate, not an oversight.
func analyzeDependencies(args []any, kwargs map[string]any) []dependency {
	var deps []dependency

	appendIfDep := func(v any) {
		if d, ok := v.(dependency); ok {
			deps = append(deps, d)
		}
	}

	for _, a := range args {
		appendIfDep(a)
	}
	for k, v := range kwargs {
		if k == "inputs" {
			continue
		}
		appendIfDep(v)
	}
	if inputs, ok := kwargs["inputs"]; ok {
		if list, ok := inputs.([]any); ok {
			for _, v := range list {
				appendIfDep(v)
			}
		}
	}

	return deps
}

// pendingErrors reports the settled errors of any already-terminal
// dependencies in deps. Unsettled dependencies contribute nothing; this is
// used both to decide launch-readiness and to build a DependencyError.
func pendingErrors(deps []dependency) []error {
	var errs []error
	for _, d := range deps {
		if d.Done() {
			if err := d.Exception(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errs
}

// allSettled reports whether every dependency in deps has settled.
func allSettled(deps []dependency) bool {
	for _, d := range deps {
		if !d.Done() {
			return false
		}
	}
	return true
}

package dfk

// resolve substitutes the settled value of every top-level dependency
// reference in args, kwargs, and kwargs["inputs"] with its resolved value,
// leaving everything else untouched. It never panics and never returns
// early on an upstream error: it keeps walking so that every failed
// dependency is collected, matching the "sanitize and wrap" behavior a
// caller expects when a task has several inputs and more than one has
// failed.
func resolve(args []any, kwargs map[string]any) (rargs []any, rkwargs map[string]any, errs []error) {
	rargs = make([]any, len(args))
	for i, a := range args {
		rargs[i] = resolveOne(a, &errs)
	}

	rkwargs = make(map[string]any, len(kwargs))
	for k, v := range kwargs {
		if k == "inputs" {
			continue
		}
		rkwargs[k] = resolveOne(v, &errs)
	}

	if inputs, ok := kwargs["inputs"]; ok {
		if list, ok := inputs.([]any); ok {
			resolved := make([]any, len(list))
			for i, v := range list {
				resolved[i] = resolveOne(v, &errs)
			}
			rkwargs["inputs"] = resolved
		} else {
			rkwargs["inputs"] = inputs
		}
	}

	return rargs, rkwargs, errs
}

func resolveOne(v any, errs *[]error) any {
	d, ok := v.(dependency)
	if !ok {
		return v
	}
	value, err := d.Result()
	if err != nil {
		*errs = append(*errs, err)
		return nil
	}
	return value
}

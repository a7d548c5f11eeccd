// Package app provides a decorator-style surface over a [dfk.Kernel]
// submission, for callers who prefer to bind a function and its site
// once and invoke it like any other callable thereafter.
package app

import "github.com/joeycumines/dfk"

// appConfig holds per-App configuration set via [Option].
type appConfig struct {
	sites any
}

// Option configures an [App].
type Option interface {
	apply(*appConfig)
}

type optionFunc func(*appConfig)

func (f optionFunc) apply(c *appConfig) { f(c) }

// WithSites restricts the app to the given executor(s): nil or omitted
// means any registered executor, a string names exactly one, and a
// []string names a candidate set.
func WithSites(sites any) Option {
	return optionFunc(func(c *appConfig) {
		c.sites = sites
	})
}

// App binds fn to k as a reusable submission: calling the returned
// function is equivalent to calling k.Submit(fn, sites, args, kwargs) with
// the sites configured via [WithSites].
func App(k *dfk.Kernel, fn dfk.TaskFunc, opts ...Option) func(args []any, kwargs map[string]any) *dfk.Handle {
	cfg := &appConfig{sites: nil}
	for _, o := range opts {
		o.apply(cfg)
	}

	return func(args []any, kwargs map[string]any) *dfk.Handle {
		return k.Submit(fn, cfg.sites, args, kwargs)
	}
}

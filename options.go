package dfk

import "fmt"

// optionConfig accumulates everything the functional options below may
// set, before NewKernel applies it to the Kernel being constructed.
type optionConfig struct {
	lazyFail        bool
	failRetries     int
	rundirRoot      string
	logger          *Logger
	executors       map[string]Executor
	configPath      string
	executorFactory ExecutorFactory
}

func newOptionConfig() *optionConfig {
	return &optionConfig{
		lazyFail:    true,
		failRetries: 2,
		rundirRoot:  "runinfo",
	}
}

func (c *optionConfig) applyTo(k *Kernel) error {
	k.lazyFail = c.lazyFail
	k.failRetries = c.failRetries
	k.log = c.logger

	if c.configPath != "" {
		fileCfg, err := loadConfig(c.configPath)
		if err != nil {
			return fmt.Errorf("dfk: load config: %w", err)
		}
		fileCfg.applyDefaults(c)
		k.lazyFail = c.lazyFail
		k.failRetries = c.failRetries

		built, err := fileCfg.buildExecutors(c.executorFactory)
		if err != nil {
			return err
		}
		for name, ex := range built {
			if err := k.registry.register(name, ex, true); err != nil {
				return err
			}
		}
	}

	for name, ex := range c.executors {
		if err := k.registry.register(name, ex, false); err != nil {
			return err
		}
	}
	return nil
}

// Option configures a [Kernel] at construction time. Use [NewKernel] with
// zero or more Options.
type Option interface {
	apply(*optionConfig)
}

type optionFunc func(*optionConfig)

func (f optionFunc) apply(c *optionConfig) { f(c) }

// WithLazyFail sets the kernel's failure propagation policy. Under
// lazy-fail (the default), a failed task's error propagates only along its
// own dependency edges; sibling tasks keep running, and the first error is
// recorded for [Kernel.Err]. Passing false selects eager-fail: the kernel
// panics, from within the completion callback, as soon as any task fails.
func WithLazyFail(lazy bool) Option {
	return optionFunc(func(c *optionConfig) {
		c.lazyFail = lazy
	})
}

// WithFailRetries sets how many times a task is relaunched after an
// execution error before it settles into [Failed]. Zero disables retries.
func WithFailRetries(n int) Option {
	return optionFunc(func(c *optionConfig) {
		c.failRetries = n
	})
}

// WithRunDir sets the parent directory under which the kernel allocates
// its per-run directory (runinfo/runNNN by default).
func WithRunDir(path string) Option {
	return optionFunc(func(c *optionConfig) {
		c.rundirRoot = path
	})
}

// WithLogger overrides the kernel's structured logger. The default is a
// stumpy-backed logiface logger writing JSON to stderr.
func WithLogger(l *Logger) Option {
	return optionFunc(func(c *optionConfig) {
		c.logger = l
	})
}

// WithExecutor registers an executor under name at construction time,
// equivalent to calling [Kernel.RegisterExecutor] immediately after
// NewKernel returns.
func WithExecutor(name string, ex Executor) Option {
	return optionFunc(func(c *optionConfig) {
		if c.executors == nil {
			c.executors = make(map[string]Executor)
		}
		c.executors[name] = ex
	})
}

// WithConfigFile loads globals.lazyFail and globals.fail_retries from a
// viper-compatible config file (yaml, json, toml, ...), overriding
// [WithLazyFail] / [WithFailRetries] whatever the order of the options.
// Values absent from the file leave the existing setting untouched.
func WithConfigFile(path string) Option {
	return optionFunc(func(c *optionConfig) {
		c.configPath = path
	})
}

// WithExecutorFactory supplies the callback [WithConfigFile] uses to turn
// each section under the config file's "executors" key into a registered
// [Executor]. Without this option, a config file's "executors" section is
// parsed but ignored; executors must then come from [WithExecutor] instead.
func WithExecutorFactory(factory ExecutorFactory) Option {
	return optionFunc(func(c *optionConfig) {
		c.executorFactory = factory
	})
}

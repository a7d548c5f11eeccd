package dfk

import (
	"fmt"

	"github.com/spf13/viper"
)

// fileConfig is the subset of a loaded config file the kernel understands:
// the "globals" section's lazy-fail policy and retry count.
type fileConfig struct {
	v *viper.Viper
}

func loadConfig(path string) (*fileConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("globals.lazyFail", true)
	v.SetDefault("globals.fail_retries", 2)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	return &fileConfig{v: v}, nil
}

// applyDefaults overwrites c's lazyFail and failRetries with whatever the
// config file specifies under the "globals" section. A key absent from the
// file leaves the matching field as it was.
func (f *fileConfig) applyDefaults(c *optionConfig) {
	if f.v.InConfig("globals.lazyFail") {
		c.lazyFail = f.v.GetBool("globals.lazyFail")
	}
	if f.v.InConfig("globals.fail_retries") {
		c.failRetries = f.v.GetInt("globals.fail_retries")
	}
}

// ExecutorSections returns the raw, still-unmarshaled "executors" config
// section, one entry per configured site. Concrete executor factories (see
// the executor package) take it from here to build their own typed config.
func (f *fileConfig) ExecutorSections() map[string]any {
	raw, ok := f.v.Get("executors").(map[string]any)
	if !ok {
		return nil
	}
	return raw
}

// ExecutorFactory builds an [Executor] for the named config section. name is
// the key under "executors" in the config file; section is that key's raw,
// still-unmarshaled value.
type ExecutorFactory func(name string, section any) (Executor, error)

// buildExecutors runs factory over every configured executor section,
// skipping the call entirely if factory is nil (config files with no
// "executors" section, or callers who only want globals from the file, are
// both legitimate).
func (f *fileConfig) buildExecutors(factory ExecutorFactory) (map[string]Executor, error) {
	if factory == nil {
		return nil, nil
	}
	sections := f.ExecutorSections()
	if len(sections) == 0 {
		return nil, nil
	}
	out := make(map[string]Executor, len(sections))
	for name, section := range sections {
		ex, err := factory(name, section)
		if err != nil {
			return nil, fmt.Errorf("dfk: build executor %q: %w", name, err)
		}
		out[name] = ex
	}
	return out, nil
}

package dfk

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// asyncFakeExecutor settles on its own goroutine, after Submit returns -
// unlike fakeExecutor in registry_test.go, it is safe to drive through
// Kernel.Submit, which calls Executor.Submit while still holding its lock.
type asyncFakeExecutor struct{}

func (asyncFakeExecutor) Submit(ctx context.Context, fn TaskFunc, args []any, kwargs map[string]any) (*Handle, error) {
	h := NewExecHandle(0)
	go func() {
		v, err := fn(args, kwargs)
		h.Settle(v, err)
	}()
	return h, nil
}
func (asyncFakeExecutor) ScalingEnabled() bool              { return false }
func (asyncFakeExecutor) ScaleIn(n int) error                { return nil }
func (asyncFakeExecutor) Resources() []string                { return nil }
func (asyncFakeExecutor) Shutdown(ctx context.Context) error { return nil }

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadConfig_ApplyDefaults_Overrides(t *testing.T) {
	path := writeConfigFile(t, `
globals:
  lazyFail: false
  fail_retries: 5
`)

	fileCfg, err := loadConfig(path)
	require.NoError(t, err)

	c := newOptionConfig()
	fileCfg.applyDefaults(c)

	assert.False(t, c.lazyFail)
	assert.Equal(t, 5, c.failRetries)
}

func TestLoadConfig_ApplyDefaults_UsesDefaultsWhenAbsent(t *testing.T) {
	path := writeConfigFile(t, "globals:\n")

	fileCfg, err := loadConfig(path)
	require.NoError(t, err)

	c := newOptionConfig()
	fileCfg.applyDefaults(c)

	assert.True(t, c.lazyFail)
	assert.Equal(t, 2, c.failRetries)
}

func TestFileConfig_BuildExecutors_NilFactoryIsNoop(t *testing.T) {
	path := writeConfigFile(t, `
executors:
  local:
    type: local
    workers: 2
`)

	fileCfg, err := loadConfig(path)
	require.NoError(t, err)

	built, err := fileCfg.buildExecutors(nil)
	require.NoError(t, err)
	assert.Nil(t, built)
}

func TestFileConfig_BuildExecutors_InvokesFactoryPerSection(t *testing.T) {
	path := writeConfigFile(t, `
executors:
  local:
    type: local
    workers: 3
`)

	fileCfg, err := loadConfig(path)
	require.NoError(t, err)

	var gotName string
	var gotSection any
	built, err := fileCfg.buildExecutors(func(name string, section any) (Executor, error) {
		gotName = name
		gotSection = section
		return fakeExecutor{}, nil
	})
	require.NoError(t, err)
	require.Len(t, built, 1)
	assert.Equal(t, "local", gotName)
	assert.NotNil(t, gotSection)
}

func TestFileConfig_BuildExecutors_PropagatesFactoryError(t *testing.T) {
	path := writeConfigFile(t, `
executors:
  bogus:
    type: nonsense
`)

	fileCfg, err := loadConfig(path)
	require.NoError(t, err)

	_, err = fileCfg.buildExecutors(func(name string, section any) (Executor, error) {
		return nil, assertErr("bad site")
	})
	assert.Error(t, err)
}

func TestNewKernel_WithConfigFile_AppliesGlobalsAndExecutors(t *testing.T) {
	path := writeConfigFile(t, `
globals:
  lazyFail: false
  fail_retries: 1
executors:
  local:
    type: local
`)

	var built int
	k, err := NewKernel(
		WithRunDir(t.TempDir()),
		WithConfigFile(path),
		WithExecutorFactory(func(name string, section any) (Executor, error) {
			built++
			return asyncFakeExecutor{}, nil
		}),
	)
	require.NoError(t, err)

	assert.Equal(t, 1, built)
	assert.False(t, k.lazyFail)
	assert.Equal(t, 1, k.failRetries)

	h := k.Submit(func(args []any, kwargs map[string]any) (any, error) {
		return "ok", nil
	}, nil, nil, nil)
	v, err := h.Result()
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

// scalingFakeExecutor tracks whether ScaleIn/Shutdown were invoked, to tell
// kernel-managed executors apart from ones the caller handed in directly.
type scalingFakeExecutor struct {
	scaledIn, shutdown *bool
}

func (e scalingFakeExecutor) Submit(ctx context.Context, fn TaskFunc, args []any, kwargs map[string]any) (*Handle, error) {
	h := NewExecHandle(0)
	go func() {
		v, err := fn(args, kwargs)
		h.Settle(v, err)
	}()
	return h, nil
}
func (e scalingFakeExecutor) ScalingEnabled() bool { return true }
func (e scalingFakeExecutor) ScaleIn(n int) error  { *e.scaledIn = true; return nil }
func (e scalingFakeExecutor) Resources() []string  { return []string{"w1"} }
func (e scalingFakeExecutor) Shutdown(ctx context.Context) error {
	*e.shutdown = true
	return nil
}

func TestNewKernel_Cleanup_ScalesInOnlyConfigBuiltExecutors(t *testing.T) {
	path := writeConfigFile(t, `
executors:
  managed:
    type: local
`)

	var managedScaledIn, managedShutdown bool
	k, err := NewKernel(
		WithRunDir(t.TempDir()),
		WithConfigFile(path),
		WithExecutorFactory(func(name string, section any) (Executor, error) {
			return scalingFakeExecutor{scaledIn: &managedScaledIn, shutdown: &managedShutdown}, nil
		}),
	)
	require.NoError(t, err)

	var unmanagedScaledIn, unmanagedShutdown bool
	require.NoError(t, k.RegisterExecutor("byo", scalingFakeExecutor{
		scaledIn: &unmanagedScaledIn,
		shutdown: &unmanagedShutdown,
	}))

	require.NoError(t, k.Cleanup(context.Background()))

	assert.True(t, managedScaledIn)
	assert.True(t, managedShutdown)
	assert.False(t, unmanagedScaledIn, "unmanaged executor's ScaleIn must not be called on Cleanup")
	assert.False(t, unmanagedShutdown, "unmanaged executor's Shutdown must not be called on Cleanup")
}

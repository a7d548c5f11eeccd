package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_Submit_RunsAndSettles(t *testing.T) {
	l := NewLocal(2)
	h, err := l.Submit(context.Background(), func(args []any, kwargs map[string]any) (any, error) {
		return args[0].(int) + 1, nil
	}, []any{41}, nil)
	require.NoError(t, err)

	v, err := h.Result()
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestLocal_Submit_PropagatesFunctionError(t *testing.T) {
	l := NewLocal(1)
	sentinel := errors.New("boom")
	h, err := l.Submit(context.Background(), func(args []any, kwargs map[string]any) (any, error) {
		return nil, sentinel
	}, nil, nil)
	require.NoError(t, err)

	_, err = h.Result()
	assert.Equal(t, sentinel, err)
}

func TestLocal_Submit_BoundsConcurrency(t *testing.T) {
	l := NewLocal(1)

	started := make(chan struct{})
	release := make(chan struct{})

	_, err := l.Submit(context.Background(), func(args []any, kwargs map[string]any) (any, error) {
		close(started)
		<-release
		return nil, nil
	}, nil, nil)
	require.NoError(t, err)
	<-started

	secondDone := make(chan struct{})
	go func() {
		h, err := l.Submit(context.Background(), func(args []any, kwargs map[string]any) (any, error) {
			return "second", nil
		}, nil, nil)
		require.NoError(t, err)
		_, _ = h.Result()
		close(secondDone)
	}()

	select {
	case <-secondDone:
		t.Fatal("second task ran before the single worker slot was released")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	<-secondDone
}

func TestLocal_Shutdown_RejectsNewSubmissions(t *testing.T) {
	l := NewLocal(1)
	require.NoError(t, l.Shutdown(context.Background()))

	_, err := l.Submit(context.Background(), func(args []any, kwargs map[string]any) (any, error) {
		return nil, nil
	}, nil, nil)
	assert.ErrorIs(t, err, ErrShutdown)
}

func TestLocal_Shutdown_WaitsForInFlight(t *testing.T) {
	l := NewLocal(1)
	release := make(chan struct{})

	h, err := l.Submit(context.Background(), func(args []any, kwargs map[string]any) (any, error) {
		<-release
		return "done", nil
	}, nil, nil)
	require.NoError(t, err)

	shutdownDone := make(chan error, 1)
	go func() { shutdownDone <- l.Shutdown(context.Background()) }()

	close(release)
	require.NoError(t, <-shutdownDone)

	v, err := h.Result()
	require.NoError(t, err)
	assert.Equal(t, "done", v)
}

func TestFactory_BuildsLocalExecutor(t *testing.T) {
	ex, err := Factory("local", map[string]any{"type": "local", "workers": 2})
	require.NoError(t, err)
	assert.NotNil(t, ex)

	local, ok := ex.(*Local)
	require.True(t, ok)
	assert.EqualValues(t, 2, local.cap)
}

func TestFactory_UnrecognizedTypeIsError(t *testing.T) {
	_, err := Factory("odd", map[string]any{"type": "remote"})
	assert.Error(t, err)
}

func TestFactory_NonMapSectionIsError(t *testing.T) {
	_, err := Factory("odd", "not a map")
	assert.Error(t, err)
}

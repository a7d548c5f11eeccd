package dfk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeDependencies_PositionalArgs(t *testing.T) {
	h := newHandle(1)
	deps := analyzeDependencies([]any{1, h, "str"}, nil)
	require.Len(t, deps, 1)
	assert.Same(t, h, deps[0])
}

func TestAnalyzeDependencies_Kwargs(t *testing.T) {
	h := newHandle(1)
	deps := analyzeDependencies(nil, map[string]any{"fu_1": h, "other": 5})
	require.Len(t, deps, 1)
	assert.Same(t, h, deps[0])
}

func TestAnalyzeDependencies_Inputs(t *testing.T) {
	h1 := newHandle(1)
	h2 := newHandle(2)
	deps := analyzeDependencies(nil, map[string]any{
		"inputs": []any{h1, "literal", h2},
	})
	require.Len(t, deps, 2)
}

func TestAnalyzeDependencies_DoesNotRecurse(t *testing.T) {
	h := newHandle(1)
	nested := struct{ H *Handle }{H: h}
	deps := analyzeDependencies([]any{nested}, nil)
	assert.Empty(t, deps)
}

func TestAllSettled(t *testing.T) {
	h1 := newHandle(1)
	h2 := newHandle(2)
	deps := []dependency{h1, h2}

	assert.False(t, allSettled(deps))

	h1.settleValue(1)
	assert.False(t, allSettled(deps))

	h2.settleValue(2)
	assert.True(t, allSettled(deps))
}

func TestPendingErrors_CollectsAll(t *testing.T) {
	h1 := newHandle(1)
	h2 := newHandle(2)
	h1.settleError(assertErr("first"))
	h2.settleError(assertErr("second"))

	errs := pendingErrors([]dependency{h1, h2})
	require.Len(t, errs, 2)
}

type testErr string

func (e testErr) Error() string { return string(e) }

func assertErr(msg string) error { return testErr(msg) }

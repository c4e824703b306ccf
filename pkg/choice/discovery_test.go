package choice

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoveryRunsExactlyOnce(t *testing.T) {
	resetLoaders()

	gptLoads := 0
	mlpLoads := 0
	RegisterLoader("models/plugins/gpt", func(r *Registry) error {
		gptLoads++
		return Add[gptConfig](r, "gpt")
	})
	RegisterLoader("models/plugins/mlp", func(r *Registry) error {
		mlpLoads++
		return Add[mlpConfig](r, "mlp")
	})

	r := NewRegistry(WithDiscovery(Namespace("models/plugins")))

	// A lookup with no prior explicit registration must see discovered tags.
	v, err := r.Get("gpt")
	require.NoError(t, err)
	assert.Equal(t, "gpt", v.Tag)

	known, err := r.Known()
	require.NoError(t, err)
	assert.Len(t, known, 2)

	_, err = r.Known()
	require.NoError(t, err)

	assert.Equal(t, 1, gptLoads)
	assert.Equal(t, 1, mlpLoads)
}

func TestDiscoveryScopedToNamespace(t *testing.T) {
	resetLoaders()

	RegisterLoader("alpha/plugins/a", func(r *Registry) error {
		return Add[gptConfig](r, "a")
	})
	RegisterLoader("beta/plugins/b", func(r *Registry) error {
		return Add[mlpConfig](r, "b")
	})

	alpha := NewRegistry(WithDiscovery(Namespace("alpha/plugins")))
	beta := NewRegistry(WithDiscovery(Namespace("beta/plugins")))

	knownAlpha, err := alpha.Known()
	require.NoError(t, err)
	knownBeta, err := beta.Known()
	require.NoError(t, err)

	assert.Len(t, knownAlpha, 1)
	assert.Contains(t, knownAlpha, "a")
	assert.Len(t, knownBeta, 1)
	assert.Contains(t, knownBeta, "b")
}

func TestNamespaceImmediateChildrenOnly(t *testing.T) {
	resetLoaders()

	RegisterLoader("ns/plugins/direct", func(r *Registry) error {
		return Add[gptConfig](r, "direct")
	})
	RegisterLoader("ns/plugins/sub/nested", func(r *Registry) error {
		return Add[mlpConfig](r, "nested")
	})

	r := NewRegistry(WithDiscovery(Namespace("ns/plugins")))

	known, err := r.Known()
	require.NoError(t, err)
	assert.Contains(t, known, "direct")
	assert.NotContains(t, known, "nested")
}

func TestDiscoveryFailurePropagates(t *testing.T) {
	resetLoaders()

	boom := errors.New("bad plugin")
	loads := 0
	RegisterLoader("broken/plugins/x", func(r *Registry) error {
		loads++
		return boom
	})

	r := NewRegistry(WithDiscovery(Namespace("broken/plugins")))

	_, err := r.Get("anything")
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrUnknownTag)

	// Not marked done: the failure resurfaces on the next lookup.
	_, err = r.Known()
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 2, loads)
}

func TestDiscoveryFailureReachesDecodeUnchanged(t *testing.T) {
	resetLoaders()
	resetRoots()

	boom := errors.New("bad plugin")
	RegisterLoader("broken2/plugins/x", func(r *Registry) error {
		return boom
	})

	r := NewRegistry(WithDiscovery(Namespace("broken2/plugins")))

	_, err := r.Decode(map[string]any{"type": "anything"})
	require.ErrorIs(t, err, boom)

	var perr *ParsingError
	assert.False(t, errors.As(err, &perr), "discovery failures must not become parsing errors")
}

func TestNamespaceUnknown(t *testing.T) {
	resetLoaders()

	r := NewRegistry(WithDiscovery(Namespace("nowhere/plugins")))

	_, err := r.Known()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nowhere/plugins")
}

func TestRegisterLoaderDuplicatePanics(t *testing.T) {
	resetLoaders()

	RegisterLoader("dup/plugins/x", func(r *Registry) error { return nil })
	assert.Panics(t, func() {
		RegisterLoader("dup/plugins/x", func(r *Registry) error { return nil })
	})
	assert.Panics(t, func() { RegisterLoader("", nil) })
}

func TestSourcesCombinesInOrder(t *testing.T) {
	var order []string
	src := Sources(
		SourceFunc(func(r *Registry) error { order = append(order, "first"); return nil }),
		SourceFunc(func(r *Registry) error { order = append(order, "second"); return nil }),
	)

	require.NoError(t, src.Load(NewRegistry()))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestSourcesStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	ran := false
	src := Sources(
		SourceFunc(func(r *Registry) error { return boom }),
		SourceFunc(func(r *Registry) error { ran = true; return nil }),
	)

	require.ErrorIs(t, src.Load(NewRegistry()), boom)
	assert.False(t, ran)
}

func TestDirMissingDirectory(t *testing.T) {
	src := Dir("testdata/does-not-exist")
	require.Error(t, src.Load(NewRegistry()))
}

func TestDirEmptyDirectory(t *testing.T) {
	src := Dir(t.TempDir())
	require.NoError(t, src.Load(NewRegistry()))
}

func TestDiscoveryBlocksConcurrentFirstUse(t *testing.T) {
	resetLoaders()

	loads := 0
	RegisterLoader("conc/plugins/x", func(r *Registry) error {
		loads++
		return Add[gptConfig](r, "gpt")
	})

	r := NewRegistry(WithDiscovery(Namespace("conc/plugins")))

	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			_, err := r.Get("gpt")
			done <- err
		}()
	}
	for i := 0; i < 8; i++ {
		require.NoError(t, <-done)
	}
	assert.Equal(t, 1, loads)
}

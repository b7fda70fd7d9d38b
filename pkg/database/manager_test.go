package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nexor-io/nexor-go/pkg/apperrors"
	"github.com/nexor-io/nexor-go/pkg/config"
)

// testSettings returns settings pointing at a database that does not need to
// exist: engine construction is lazy and never dials.
func testSettings(url string) *config.ServiceSettings {
	return &config.ServiceSettings{
		Env:           "testing",
		PostgresURL:   config.Secret(url),
		DBPoolSize:    2,
		DBMaxOverflow: 2,
		DBPoolTimeout: time.Second,
	}
}

func scopedContext(key ScopeKey) context.Context {
	return WithScope(context.Background(), key)
}

func TestGetEngine_RequiresScope(t *testing.T) {
	m := NewManager(zap.NewNop())
	defer m.DisposeAll()

	_, err := m.GetEngine(context.Background(), testSettings("postgresql://u:p@localhost:5432/app"))
	assert.ErrorIs(t, err, apperrors.ErrNoActiveScope)
}

func TestGetEngine_RequiresURL(t *testing.T) {
	m := NewManager(zap.NewNop())
	defer m.DisposeAll()

	_, err := m.GetEngine(scopedContext("s1"), testSettings(""))
	assert.ErrorIs(t, err, apperrors.ErrMissingPostgresURL)
}

func TestGetEngine_CachesPerScopeAndURL(t *testing.T) {
	m := NewManager(zap.NewNop())
	defer m.DisposeAll()

	settings := testSettings("postgresql://u:p@localhost:5432/app")
	ctx := scopedContext("s1")

	first, err := m.GetEngine(ctx, settings)
	require.NoError(t, err)
	second, err := m.GetEngine(ctx, settings)
	require.NoError(t, err)
	assert.Same(t, first, second, "same scope and URL must return the cached engine")

	other, err := m.GetEngine(scopedContext("s2"), settings)
	require.NoError(t, err)
	assert.NotSame(t, first, other, "engines must not be shared across scopes")

	assert.Equal(t, 2, m.Stats().TotalEngines)
}

func TestGetEngine_DistinctURLsDistinctEngines(t *testing.T) {
	m := NewManager(zap.NewNop())
	defer m.DisposeAll()

	ctx := scopedContext("s1")
	a, err := m.GetEngine(ctx, testSettings("postgresql://u:p@localhost:5432/one"))
	require.NoError(t, err)
	b, err := m.GetEngine(ctx, testSettings("postgresql://u:p@localhost:5432/two"))
	require.NoError(t, err)
	assert.NotSame(t, a, b)
}

func TestDispose_EvictsScopeEntries(t *testing.T) {
	m := NewManager(zap.NewNop())
	defer m.DisposeAll()

	settings := testSettings("postgresql://u:p@localhost:5432/app")
	ctx := scopedContext("s1")
	otherCtx := scopedContext("s2")

	disposed, err := m.GetEngine(ctx, settings)
	require.NoError(t, err)
	kept, err := m.GetEngine(otherCtx, settings)
	require.NoError(t, err)

	m.Dispose(ctx)

	assert.Equal(t, 1, m.Stats().TotalEngines, "only the scope's entries are evicted")

	rebuilt, err := m.GetEngine(ctx, settings)
	require.NoError(t, err)
	assert.NotSame(t, disposed, rebuilt, "a disposed engine must not be reused")

	still, err := m.GetEngine(otherCtx, settings)
	require.NoError(t, err)
	assert.Same(t, kept, still)
}

func TestDispose_NoScopeIsNoOp(t *testing.T) {
	m := NewManager(zap.NewNop())
	defer m.DisposeAll()

	settings := testSettings("postgresql://u:p@localhost:5432/app")
	_, err := m.GetEngine(scopedContext("s1"), settings)
	require.NoError(t, err)

	// No scope on this context: nothing is evicted and nothing panics.
	m.Dispose(context.Background())
	assert.Equal(t, 1, m.Stats().TotalEngines)
}

func TestDispose_EmptyCache(t *testing.T) {
	m := NewManager(zap.NewNop())
	m.Dispose(scopedContext("s1"))
	m.DisposeAll()
	assert.Equal(t, 0, m.Stats().TotalEngines)
}

func TestGetEngine_ConcurrentFirstAccessSingleEngine(t *testing.T) {
	m := NewManager(zap.NewNop())
	defer m.DisposeAll()

	settings := testSettings("postgresql://u:p@localhost:5432/app")
	ctx := scopedContext("s1")

	const goroutines = 16
	engines := make(chan *Engine, goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			engine, err := m.GetEngine(ctx, settings)
			if err != nil {
				t.Error(err)
			}
			engines <- engine
		}()
	}

	first := <-engines
	for i := 1; i < goroutines; i++ {
		assert.Same(t, first, <-engines)
	}
	assert.Equal(t, 1, m.Stats().TotalEngines)
}

func TestStats_GroupsByScope(t *testing.T) {
	m := NewManager(zap.NewNop())
	defer m.DisposeAll()

	_, err := m.GetEngine(scopedContext("api"), testSettings("postgresql://u:p@localhost/one"))
	require.NoError(t, err)
	_, err = m.GetEngine(scopedContext("api"), testSettings("postgresql://u:p@localhost/two"))
	require.NoError(t, err)
	_, err = m.GetEngine(scopedContext("worker"), testSettings("postgresql://u:p@localhost/one"))
	require.NoError(t, err)

	stats := m.Stats()
	assert.Equal(t, 3, stats.TotalEngines)
	assert.Equal(t, 2, stats.EnginesByScope["api"])
	assert.Equal(t, 1, stats.EnginesByScope["worker"])
}

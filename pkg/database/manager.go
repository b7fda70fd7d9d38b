// Package database provides the engine/session layer shared by services
// built on this library: a scope-partitioned cache of pooled engines, short
// unit-of-work sessions with guaranteed rollback-on-error, tenant-scoped
// session acquisition, raw driver connections with tenant context, and a
// connectivity prober with cache teardown between attempts.
package database

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/nexor-io/nexor-go/pkg/apperrors"
	"github.com/nexor-io/nexor-go/pkg/config"
)

type cacheKey struct {
	scope ScopeKey
	url   string
}

// entry owns one pooled engine and, lazily, the session factory bound to it.
type entry struct {
	engine      *Engine
	factoryOnce sync.Once
	factory     *SessionFactory
}

func (e *entry) sessionFactory() *SessionFactory {
	e.factoryOnce.Do(func() {
		e.factory = &SessionFactory{engine: e.engine}
	})
	return e.factory
}

// Manager is the engine cache. It is owned by the application's composition
// root and passed to every call site that needs engines or sessions; there is
// no package-level state. Entries are keyed by (engine scope, canonical async
// URL) so engines are never shared across scopes.
type Manager struct {
	mu      sync.RWMutex
	entries map[cacheKey]*entry
	logger  *zap.Logger
}

// NewManager creates an empty engine cache.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		entries: make(map[cacheKey]*entry),
		logger:  logger,
	}
}

// GetEngine returns the cached engine for the context's scope and the
// settings' canonical async URL, constructing and caching one on first
// access. Returns apperrors.ErrNoActiveScope when the context carries no
// engine scope.
func (m *Manager) GetEngine(ctx context.Context, settings *config.ServiceSettings) (*Engine, error) {
	e, err := m.getEntry(ctx, settings)
	if err != nil {
		return nil, err
	}
	return e.engine, nil
}

func (m *Manager) getEntry(ctx context.Context, settings *config.ServiceSettings) (*entry, error) {
	scope, ok := ScopeFrom(ctx)
	if !ok {
		return nil, apperrors.ErrNoActiveScope
	}

	asyncURL, err := settings.AsyncPostgresURL()
	if err != nil {
		return nil, err
	}
	key := cacheKey{scope: scope, url: asyncURL.Value()}

	m.mu.RLock()
	e, exists := m.entries[key]
	m.mu.RUnlock()
	if exists {
		return e, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring the write lock: another goroutine in the
	// same scope may have populated the key. The lock is held only for
	// check-and-insert; pool construction does not dial.
	if e, exists := m.entries[key]; exists {
		return e, nil
	}

	engine, err := newEngine(ctx, asyncURL, settings)
	if err != nil {
		return nil, err
	}
	m.entries[key] = &entry{engine: engine}

	m.logger.Info("created database engine",
		zap.String("scope", string(scope)),
		zap.String("url", engine.RedactedURL()),
		zap.Int32("pool_size", settings.DBPoolSize),
		zap.Int32("max_overflow", settings.DBMaxOverflow),
	)
	return m.entries[key], nil
}

// Dispose closes and evicts every cache entry under the context's engine
// scope, releasing all underlying connections. Calling it without an active
// scope is a silent no-op: disposal during shutdown or from non-scoped
// contexts is expected, not an error. Safe when no entries exist.
func (m *Manager) Dispose(ctx context.Context) {
	scope, ok := ScopeFrom(ctx)
	if !ok {
		return
	}
	m.disposeScope(scope)
}

func (m *Manager) disposeScope(scope ScopeKey) {
	m.mu.Lock()
	var evicted []*entry
	for key, e := range m.entries {
		if key.scope == scope {
			evicted = append(evicted, e)
			delete(m.entries, key)
		}
	}
	m.mu.Unlock()

	for _, e := range evicted {
		e.engine.Close()
	}
	if len(evicted) > 0 {
		m.logger.Debug("disposed engines",
			zap.String("scope", string(scope)),
			zap.Int("count", len(evicted)),
		)
	}
}

// DisposeAll is the process-wide teardown: it closes and evicts every entry
// regardless of scope. Idempotent.
func (m *Manager) DisposeAll() {
	m.mu.Lock()
	evicted := make([]*entry, 0, len(m.entries))
	for key, e := range m.entries {
		evicted = append(evicted, e)
		delete(m.entries, key)
	}
	m.mu.Unlock()

	for _, e := range evicted {
		e.engine.Close()
	}
	if len(evicted) > 0 {
		m.logger.Info("disposed all engines", zap.Int("count", len(evicted)))
	}
}

// Stats describes the cache contents. Consumed by the health surface.
type Stats struct {
	TotalEngines   int            `json:"total_engines"`
	EnginesByScope map[string]int `json:"engines_by_scope"`
}

// Stats returns a snapshot of the cache. Safe for concurrent use.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Stats{
		TotalEngines:   len(m.entries),
		EnginesByScope: make(map[string]int),
	}
	for key := range m.entries {
		stats.EnginesByScope[string(key.scope)]++
	}
	return stats
}

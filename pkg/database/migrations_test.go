package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nexor-io/nexor-go/pkg/apperrors"
	"github.com/nexor-io/nexor-go/pkg/testhelpers"
)

func TestRunMigrations_RequiresMigrateURL(t *testing.T) {
	settings := testSettings("postgresql://u:p@localhost:5432/app")
	settings.MigrateURL = ""

	err := RunMigrations(settings, "../../migrations", zap.NewNop())
	assert.ErrorIs(t, err, apperrors.ErrMissingMigrateURL)
}

func TestRunMigrations_AppliesAndIsIdempotent(t *testing.T) {
	db := testhelpers.GetTestDB(t)

	settings := db.Settings()
	logger := zap.NewNop()

	require.NoError(t, RunMigrations(settings, "../../migrations", logger))
	// Second run must see no pending migrations.
	require.NoError(t, RunMigrations(settings, "../../migrations", logger))

	m := NewManager(logger)
	defer m.DisposeAll()
	ctx := scopedContext("migrations")

	session, err := m.OpenSession(ctx, settings)
	require.NoError(t, err)
	defer session.Close(ctx)

	var exists bool
	err = session.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'schema_migrations')").
		Scan(&exists)
	require.NoError(t, err)
	assert.True(t, exists)
}

// Package testhelpers provides shared infrastructure for integration tests.
package testhelpers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/nexor-io/nexor-go/pkg/config"
)

const postgresImage = "postgres:16-alpine"

// testSchema is applied once per container. The tenants table backs
// verification tests; the notes table gives commit and rollback tests a
// tenant-keyed target, the shape services using this library deploy.
const testSchema = `
CREATE TABLE tenants (
    id   UUID PRIMARY KEY,
    name TEXT NOT NULL
);

CREATE TABLE notes (
    id        SERIAL PRIMARY KEY,
    tenant_id UUID NOT NULL REFERENCES tenants (id),
    body      TEXT NOT NULL
);
`

// TestDB holds a shared test database container.
type TestDB struct {
	Container testcontainers.Container
	ConnStr   string
}

var (
	sharedTestDB     *TestDB
	sharedTestDBOnce sync.Once
	sharedTestDBErr  error
)

// GetTestDB returns a shared PostgreSQL container for integration tests.
// The container is created once and reused across all tests in the run.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedTestDBOnce.Do(func() {
		sharedTestDB, sharedTestDBErr = setupTestDB()
	})

	if sharedTestDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedTestDBErr)
	}
	return sharedTestDB
}

// Settings returns service settings pointing at the test container.
func (db *TestDB) Settings() *config.ServiceSettings {
	return &config.ServiceSettings{
		Env:               "testing",
		PostgresURL:       config.Secret(db.ConnStr),
		MigrateURL:        config.Secret(db.ConnStr),
		AppSchema:         "public",
		DBPoolSize:        4,
		DBMaxOverflow:     2,
		DBPoolTimeout:     10 * time.Second,
		TenantSettingName: "app.tenant_id",
		UserSettingName:   "app.user_id",
	}
}

func setupTestDB() (*TestDB, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "nexor_test",
			"POSTGRES_USER":     "nexor",
			"POSTGRES_PASSWORD": "test_password",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get mapped port: %w", err)
	}

	connStr := fmt.Sprintf("postgresql://nexor:test_password@%s:%s/nexor_test?sslmode=disable", host, port.Port())

	if err := applySchema(ctx, connStr); err != nil {
		return nil, fmt.Errorf("failed to apply test schema: %w", err)
	}

	return &TestDB{Container: container, ConnStr: connStr}, nil
}

func applySchema(ctx context.Context, connStr string) error {
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close(ctx) }()

	_, err = conn.Exec(ctx, testSchema)
	return err
}

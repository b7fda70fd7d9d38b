package apperrors

import "errors"

var (
	// ErrMissingPostgresURL indicates the required postgres_url setting was
	// not provided. Fatal at startup, never retried.
	ErrMissingPostgresURL = errors.New("postgres_url must be provided")

	// ErrMissingMigrateURL indicates a migration was requested without a
	// migrate_url setting.
	ErrMissingMigrateURL = errors.New("migrate_url must be provided")

	// ErrNoActiveScope indicates an operation that requires an engine scope
	// was invoked on a context without one.
	ErrNoActiveScope = errors.New("an active engine scope is required")

	// ErrDatabaseUnavailable wraps the last connection failure after the
	// connectivity probe has exhausted its attempts.
	ErrDatabaseUnavailable = errors.New("failed to connect to database")

	// ErrTenantVerification indicates the access-control collaborator could
	// not verify the tenant or user bound to a session.
	ErrTenantVerification = errors.New("tenant verification failed")

	// ErrSessionClosed is returned when a session is used after Close.
	ErrSessionClosed = errors.New("session is closed")
)

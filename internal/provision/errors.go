package provision

import "errors"

var (
	// ErrTenantExists is returned when the tenant name or schema name
	// is already taken.
	ErrTenantExists = errors.New("tenant already exists")

	// ErrTenantNotFound is returned when no tenant matches the given id.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrInvalidSchemaName is returned when the schema name is not a
	// plain lowercase identifier.
	ErrInvalidSchemaName = errors.New("invalid schema name")
)

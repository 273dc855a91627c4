package provision

import "context"

// Platform is the set of remote capabilities the orchestrator drives. The
// operations are side-effecting and non-transactional; the orchestrator owns
// ordering and failure containment.
type Platform interface {
	// RequiredEngine is the namespace engine kind provisioning targets must
	// be backed by. Destinations on other engines are excluded.
	RequiredEngine() string

	NamespaceExists(ctx context.Context, namespace string) (bool, error)
	NamespaceEngine(ctx context.Context, namespace string) (string, error)

	// ListTables returns the table names in a namespace, alphabetically.
	ListTables(ctx context.Context, namespace string) ([]string, error)
	TableExists(ctx context.Context, namespace, name string) (bool, error)

	// SchemaLookup returns the ordered column schema of a source table.
	SchemaLookup(ctx context.Context, namespace, name string) ([]Column, error)

	// CreateTable creates the destination table with the given schema and
	// copies the source table's rows into it.
	CreateTable(ctx context.Context, namespace, name string, schema []Column, srcNamespace, srcName string) error

	DropTable(ctx context.Context, namespace, name string) error

	// AppendRows moves rows from a staged table into the destination.
	// AppendNormal fails when the schemas are incompatible; AppendForce
	// overrides such checks.
	AppendRows(ctx context.Context, namespace, name, srcNamespace, srcName string, mode AppendMode) error

	// PromoteTable elevates a table from one namespace into another,
	// preserving its name. Implementations may treat a same-namespace
	// promote as a no-op when tables there are already globally shared.
	PromoteTable(ctx context.Context, name, fromNamespace, toNamespace string) error

	// PersistTable writes a table to durable columnar storage, carrying the
	// partition and order specs when present.
	PersistTable(ctx context.Context, namespace, name string, partition, order []string) error

	// DeleteBackingFile removes a previously persisted copy of the table.
	// Deleting a copy that does not exist is not an error.
	DeleteBackingFile(ctx context.Context, namespace, name string) error

	// CreateStagingNamespace provisions a transient namespace for staged
	// loads and returns its handle.
	CreateStagingNamespace(ctx context.Context) (string, error)
	ReleaseStagingNamespace(ctx context.Context, handle string) error
}

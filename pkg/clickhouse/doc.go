// Package clickhouse implements the provisioning platform against a
// ClickHouse deployment.
//
// The mapping from the abstract platform model:
//
//   - Namespaces are databases. The required engine for provisioning
//     destinations is Atomic.
//   - In-memory serving copies use the Memory table engine; CreateTable
//     creates the table and copies the source rows into it.
//   - PromoteTable renames a table across databases. A same-database promote
//     is a no-op: tables in a shared database are already globally visible.
//   - PersistTable materializes a durable MergeTree copy in a sibling
//     "<namespace>_store" database, carrying the partition and order specs.
//     DeleteBackingFile drops a previously persisted copy.
//   - The staging namespace is a per-batch uniquely named database, created
//     lazily and dropped on release.
//
// Connection handling (DSN forms, cluster names, mutual TLS) lives on
// Client; Platform wraps a Client and builds all DDL with pkg/utils.
package clickhouse

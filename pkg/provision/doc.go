// Package provision turns parsed table directives into an ordered sequence
// of operations against an in-memory analytic table platform.
//
// The entry point is Batch, an execution context created per invocation that
// carries the batch options, the Platform implementation, and the staging
// scope. Batch.Execute drives each TableRecord through a per-table state
// machine (load, optionally append or promote, optionally persist) with
// per-table failure isolation: a failed table is recorded and skipped, and
// the remaining tables still run. The platform offers no transactions, so
// the orchestrator owns operation ordering and cleanup.
//
// Tables execute sequentially in input order. The staging namespace is
// created at most once per batch (guarded for a future worker pool) and is
// always released when the batch ends, even on failure.
package provision

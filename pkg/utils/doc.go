// Package utils provides small shared helpers for building ClickHouse DDL:
// backtick-quoting of identifiers and qualified names, a fluent SQLBuilder
// for the statement shapes stevedore emits, and a generic Ptr helper.
//
// The identifier helpers are idempotent; backticking an already-backticked
// identifier does not double-quote it.
package utils

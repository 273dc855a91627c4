// Package docker runs disposable ClickHouse containers for integration
// tests, wrapping the testcontainers ClickHouse module.
package docker

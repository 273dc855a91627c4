package docker

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/pkg/errors"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/clickhouse"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Container manages a ClickHouse Docker container for integration testing.
type Container struct {
	version   string
	container *clickhouse.ClickHouseContainer
}

// New creates a container runner for the given ClickHouse version. An empty
// version runs latest.
//
// Example:
//
//	container := docker.New("")
//	if err := container.Start(ctx); err != nil {
//		t.Fatal(err)
//	}
//	defer container.Stop(ctx)
func New(version string) *Container {
	if version == "" {
		version = "latest"
	}
	return &Container{version: version}
}

// Start starts the ClickHouse container and waits for it to accept HTTP
// requests.
func (c *Container) Start(ctx context.Context) error {
	if c.container != nil {
		return errors.New("container is already running")
	}

	container, err := clickhouse.Run(ctx,
		fmt.Sprintf("clickhouse/clickhouse-server:%s-alpine", c.version),
		clickhouse.WithUsername("default"),
		clickhouse.WithPassword(""),
		testcontainers.WithEnv(map[string]string{"CLICKHOUSE_DEFAULT_ACCESS_MANAGEMENT": "1"}),
		testcontainers.WithWaitStrategyAndDeadline(
			5*time.Minute,
			wait.
				NewHTTPStrategy("/").
				WithPort(nat.Port("8123/tcp")).
				WithStatusCodeMatcher(func(status int) bool {
					return status == 200
				}),
		),
	)
	if err != nil {
		return errors.Wrap(err, "failed to start ClickHouse container")
	}

	c.container = container
	return nil
}

// Stop terminates and removes the container.
func (c *Container) Stop(ctx context.Context) error {
	if c.container == nil {
		return nil
	}

	err := c.container.Terminate(ctx)
	c.container = nil
	return errors.Wrap(err, "failed to stop ClickHouse container")
}

// GetDSN returns the native-protocol connection string for the running
// container.
func (c *Container) GetDSN() (string, error) {
	if c.container == nil {
		return "", errors.New("container is not running")
	}

	dsn, err := c.container.ConnectionString(context.Background())
	if err != nil {
		return "", errors.Wrap(err, "failed to get connection string")
	}
	return dsn, nil
}

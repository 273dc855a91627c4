package clickhouse

import (
	"context"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/pkg/errors"
)

type (
	// Client represents a ClickHouse database connection.
	Client struct {
		conn driver.Conn
	}

	// ClientOptions contains optional settings for creating a client.
	ClientOptions struct {
		// Cluster is the cluster name injected into DDL for distributed
		// deployments. Empty means single-node statements.
		Cluster string

		// TLSSettings configure mutual TLS; all three files must be set to
		// enable it.
		TLSSettings TLSSettings
	}
)

// NewClient creates a new ClickHouse client connection. The DSN may be a
// bare "host:port" or a full clickhouse:// / tcp:// connection string.
//
// Example:
//
//	client, err := clickhouse.NewClient(ctx, "localhost:9000")
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
func NewClient(ctx context.Context, dsn string) (*Client, error) {
	return NewClientWithOptions(ctx, dsn, ClientOptions{})
}

// NewClientWithOptions creates a ClickHouse client with cluster and TLS
// settings. The connection is verified with a ping before returning.
func NewClientWithOptions(ctx context.Context, dsn string, opts ClientOptions) (*Client, error) {
	chOpts, err := parseDSN(dsn)
	if err != nil {
		return nil, err
	}

	if opts.TLSSettings.enabled() {
		tlsConfig, err := GetTLSConfig(opts.TLSSettings)
		if err != nil {
			return nil, err
		}
		chOpts.TLS = tlsConfig
	}

	conn, err := clickhouse.Open(chOpts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open ClickHouse connection")
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to connect to ClickHouse")
	}

	return &Client{conn: conn}, nil
}

func parseDSN(dsn string) (*clickhouse.Options, error) {
	if strings.Contains(dsn, "://") {
		opts, err := clickhouse.ParseDSN(dsn)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse DSN %q", dsn)
		}
		return opts, nil
	}

	return &clickhouse.Options{Addr: []string{dsn}}, nil
}

// Close closes the ClickHouse connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Query runs a query and returns its rows.
func (c *Client) Query(ctx context.Context, query string, args ...any) (driver.Rows, error) {
	return c.conn.Query(ctx, query, args...)
}

// QueryRow runs a query expected to return at most one row.
func (c *Client) QueryRow(ctx context.Context, query string, args ...any) driver.Row {
	return c.conn.QueryRow(ctx, query, args...)
}

// Exec runs a statement that returns no rows.
func (c *Client) Exec(ctx context.Context, query string, args ...any) error {
	return c.conn.Exec(ctx, query, args...)
}

package cmd

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/stevedore-sh/stevedore/pkg/clickhouse"
	"github.com/stevedore-sh/stevedore/pkg/config"
	"github.com/stevedore-sh/stevedore/pkg/directive"
	"github.com/stevedore-sh/stevedore/pkg/provision"
	"github.com/urfave/cli/v3"
)

var (
	urlFlag = &cli.StringFlag{
		Name:    "url",
		Aliases: []string{"u"},
		Usage:   "ClickHouse connection string",
		Config: cli.StringConfig{
			TrimSpace: true,
		},
	}

	fromFlag = &cli.StringFlag{
		Name:  "from",
		Usage: "source namespace for unqualified table names",
		Config: cli.StringConfig{
			TrimSpace: true,
		},
	}

	toFlag = &cli.StringFlag{
		Name:  "to",
		Usage: "destination namespace for unqualified directive names",
		Config: cli.StringConfig{
			TrimSpace: true,
		},
	}

	clusterFlag = &cli.StringFlag{
		Name:  "cluster",
		Usage: "cluster name for distributed DDL",
		Config: cli.StringConfig{
			TrimSpace: true,
		},
	}

	tlsFlags = []cli.Flag{
		&cli.StringFlag{
			Name:  "cafile",
			Usage: "Certificate authority pem",
			Config: cli.StringConfig{
				TrimSpace: true,
			},
		},
		&cli.StringFlag{
			Name:  "certfile",
			Usage: "Certificate public key file",
			Config: cli.StringConfig{
				TrimSpace: true,
			},
		},
		&cli.StringFlag{
			Name:  "keyfile",
			Usage: "Certificate private key file",
			Config: cli.StringConfig{
				TrimSpace: true,
			},
		},
	}
)

// batchOptions builds provisioning options from the config file defaults,
// overridden by any flags set on the command.
func batchOptions(cmd *cli.Command, cfg *config.Config) (provision.Options, error) {
	opts, err := cfg.BatchOptions()
	if err != nil {
		return provision.Options{}, err
	}

	if cmd.IsSet("from") {
		opts.SourceNamespace = cmd.String("from")
	}
	if cmd.IsSet("to") {
		opts.Namespace = cmd.String("to")
	}
	if cmd.IsSet("promote") {
		opts.Promote = cmd.Bool("promote")
	}
	if cmd.IsSet("persist") {
		opts.Persist = cmd.Bool("persist")
	}
	if cmd.IsSet("fast-promote") {
		opts.FastPromote = cmd.Bool("fast-promote")
	}
	if cmd.IsSet("preserve-labels") {
		opts.PreserveLabels = cmd.Bool("preserve-labels")
	}
	if cmd.IsSet("lowercase-columns") {
		opts.LowercaseColumns = cmd.Bool("lowercase-columns")
	}
	if cmd.IsSet("widen-text") {
		opts.WidenText = cmd.Bool("widen-text")
	}
	if cmd.IsSet("widen-threshold") {
		opts.WidenThreshold = int(cmd.Int("widen-threshold"))
	}
	if cmd.IsSet("append") {
		if opts.Append, err = provision.ParseAppendMode(cmd.String("append")); err != nil {
			return provision.Options{}, err
		}
	}

	return opts, nil
}

// newClient connects to ClickHouse using the command's flags, falling back
// to the config file for anything unset.
func newClient(ctx context.Context, cmd *cli.Command, cfg *config.Config) (*clickhouse.Client, error) {
	url := cmd.String("url")
	if url == "" {
		url = cfg.ClickHouse.URL
	}

	tls := clickhouse.TLSSettings{
		CAFile:   cmd.String("cafile"),
		CertFile: cmd.String("certfile"),
		KeyFile:  cmd.String("keyfile"),
	}
	if tls.CAFile == "" && tls.CertFile == "" && tls.KeyFile == "" {
		tls = clickhouse.TLSSettings{
			CAFile:   cfg.ClickHouse.CAFile,
			CertFile: cfg.ClickHouse.CertFile,
			KeyFile:  cfg.ClickHouse.KeyFile,
		}
	}

	client, err := clickhouse.NewClientWithOptions(ctx, url, clickhouse.ClientOptions{
		Cluster:     clusterName(cmd, cfg),
		TLSSettings: tls,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create ClickHouse client")
	}
	return client, nil
}

func clusterName(cmd *cli.Command, cfg *config.Config) string {
	if cmd.IsSet("cluster") {
		return cmd.String("cluster")
	}
	return cfg.ClickHouse.Cluster
}

// parseSources parses the --tables flag into a source list.
func parseSources(cmd *cli.Command) (*directive.SourceList, error) {
	raw := cmd.String("tables")
	if raw == "" {
		return nil, errors.New("no source tables given; pass --tables or --all")
	}

	sources, err := directive.ParseSources(raw)
	if err != nil {
		return nil, err
	}
	if len(sources.Tables) == 0 {
		return nil, errors.New("no source tables given; pass --tables or --all")
	}
	return sources, nil
}

// reportResults prints per-table outcomes and the batch summary, returning
// an error when any table failed or was excluded so the process exits
// non-zero.
func reportResults(res *provision.BatchResult) error {
	for _, note := range res.Notes {
		fmt.Printf("  ℹ️  %s\n", note)
	}

	fmt.Println()
	fmt.Println("Provisioning results:")
	fmt.Println()

	var lastErr error
	for _, tr := range res.Results {
		switch tr.Status {
		case provision.StatusExcluded:
			fmt.Printf("  ⏭  %s (excluded: %v)\n", tr.Record.Source, tr.Err)
			lastErr = tr.Err

		case provision.StatusFailed:
			fmt.Printf("  ❌ %s failed at %s after %v\n", tr.Record.Dest, tr.Record.FailedStep(), tr.Duration)
			if tr.Err != nil {
				fmt.Printf("     Error: %v\n", tr.Err)
				lastErr = tr.Err
			}

		default:
			fmt.Printf("  ✅ %s %s in %v (%s)\n", tr.Record.Dest, tr.Status, tr.Duration, tr.Record.Plan())
		}
	}

	fmt.Println()
	fmt.Printf("Summary: %s: %d loaded, %d appended, %d promoted, %d persisted, %d failed, %d excluded\n",
		res.Outcome(),
		res.Loaded,
		res.Appended,
		res.Promoted,
		res.Persisted,
		res.Failed,
		res.Excluded,
	)

	if res.Outcome() != provision.OutcomeSuccess {
		return lastErr
	}
	return nil
}

package cmd

import (
	"context"
	"fmt"

	"github.com/stevedore-sh/stevedore/pkg/clickhouse"
	"github.com/stevedore-sh/stevedore/pkg/config"
	"github.com/stevedore-sh/stevedore/pkg/directive"
	"github.com/stevedore-sh/stevedore/pkg/provision"
	"github.com/urfave/cli/v3"
)

func load(cfg *config.Config) *cli.Command {
	flags := []cli.Flag{
		urlFlag,
		clusterFlag,
		fromFlag,
		toFlag,
		&cli.StringFlag{
			Name:    "tables",
			Aliases: []string{"t"},
			Usage:   "whitespace-separated source tables, each optionally namespace-qualified",
			Config: cli.StringConfig{
				TrimSpace: true,
			},
		},
		&cli.StringFlag{
			Name:    "out",
			Aliases: []string{"o"},
			Usage:   "destination directive list, e.g. 'events(orderby=ts) users'",
			Config: cli.StringConfig{
				TrimSpace: true,
			},
		},
		&cli.BoolFlag{
			Name:  "all",
			Usage: "load every table in the source namespace",
		},
		&cli.BoolFlag{
			Name:  "promote",
			Usage: "promote tables into the destination namespace after loading",
		},
		&cli.BoolFlag{
			Name:  "persist",
			Usage: "write promoted tables to durable storage",
		},
		&cli.StringFlag{
			Name:  "append",
			Usage: "append mode: none, normal, or force",
			Config: cli.StringConfig{
				TrimSpace: true,
			},
		},
		&cli.BoolFlag{
			Name:  "fast-promote",
			Usage: "drop existing destination tables before loading instead of at promote time",
		},
		&cli.BoolFlag{
			Name:  "widen-text",
			Usage: "convert long fixed-width text columns to variable width",
		},
		&cli.IntFlag{
			Name:  "widen-threshold",
			Usage: "fixed-width length above which text columns are widened",
		},
		&cli.BoolFlag{
			Name:  "preserve-labels",
			Usage: "carry source column labels onto loaded tables",
		},
		&cli.BoolFlag{
			Name:  "lowercase-columns",
			Usage: "lowercase column names on loaded tables",
		},
	}
	flags = append(flags, tlsFlags...)

	return &cli.Command{
		Name:  "load",
		Usage: "Load source tables into the serving namespace",
		Description: `Loads the given source tables into in-memory serving tables, optionally
appending to or promoting over existing tables, and persisting promoted
tables to durable storage. Tables are processed independently; a failure
in one table never blocks the rest of the batch.`,
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runLoad(ctx, cmd, cfg)
		},
	}
}

func runLoad(ctx context.Context, cmd *cli.Command, cfg *config.Config) error {
	opts, err := batchOptions(cmd, cfg)
	if err != nil {
		return err
	}

	client, err := newClient(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	platform := clickhouse.NewPlatform(client, clusterName(cmd, cfg))

	sources, err := resolveSources(ctx, cmd, platform, opts)
	if err != nil {
		return err
	}

	dests, err := directive.Normalize(cmd.String("out"))
	if err != nil {
		return err
	}

	records, notes, err := provision.BuildRecords(sources, dests, opts)
	if err != nil {
		return err
	}

	batch, err := provision.NewBatch(platform, opts, nil)
	if err != nil {
		return err
	}

	res, err := batch.Execute(ctx, records)
	if err != nil {
		return err
	}
	res.Notes = append(notes, res.Notes...)

	return reportResults(res)
}

// resolveSources returns the batch's source tables, either everything in the
// source namespace (--all) or the explicit --tables list.
func resolveSources(ctx context.Context, cmd *cli.Command, platform provision.Platform, opts provision.Options) (*directive.SourceList, error) {
	if !cmd.Bool("all") {
		return parseSources(cmd)
	}

	names, err := platform.ListTables(ctx, opts.SourceNamespace)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("namespace %s has no tables to load", opts.SourceNamespace)
	}

	sources := &directive.SourceList{}
	for _, name := range names {
		sources.Tables = append(sources.Tables, &directive.QualifiedName{Name: name})
	}
	return sources, nil
}

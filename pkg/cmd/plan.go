package cmd

import (
	"context"
	"fmt"

	"github.com/stevedore-sh/stevedore/pkg/config"
	"github.com/stevedore-sh/stevedore/pkg/directive"
	"github.com/stevedore-sh/stevedore/pkg/provision"
	"github.com/urfave/cli/v3"
)

func plan(cfg *config.Config) *cli.Command {
	flags := []cli.Flag{
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
	}

	return &cli.Command{
		Name:  "plan",
		Usage: "Show what a load would do without connecting to ClickHouse",
		Description: `Parses the source tables and destination directives, resolves per-table
options against the batch defaults, and prints the plan for each table.
No connection is made and nothing is changed.`,
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runPlan(cmd, cfg)
		},
	}
}

func runPlan(cmd *cli.Command, cfg *config.Config) error {
	opts, err := batchOptions(cmd, cfg)
	if err != nil {
		return err
	}
	if _, err = opts.Validate(); err != nil {
		return err
	}

	sources, err := parseSources(cmd)
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

	for _, note := range notes {
		fmt.Printf("  ℹ️  %s\n", note)
	}

	fmt.Println()
	fmt.Printf("Plan for %d table(s):\n", len(records))
	fmt.Println()

	for _, rec := range records {
		fmt.Printf("  %s → %s (%s)\n", rec.Source, rec.Dest, rec.Plan())
		if len(rec.Partition) > 0 {
			fmt.Printf("      partition: %v\n", rec.Partition)
		}
		if len(rec.Order) > 0 {
			fmt.Printf("      orderby:   %v\n", rec.Order)
		}
		if rec.Append != provision.AppendNone {
			fmt.Printf("      append:    %s\n", rec.Append)
		}
	}

	return nil
}

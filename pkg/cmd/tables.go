package cmd

import (
	"context"
	"fmt"

	"github.com/stevedore-sh/stevedore/pkg/clickhouse"
	"github.com/stevedore-sh/stevedore/pkg/config"
	"github.com/stevedore-sh/stevedore/pkg/consts"
	"github.com/urfave/cli/v3"
)

func tables(cfg *config.Config) *cli.Command {
	flags := []cli.Flag{
		urlFlag,
		clusterFlag,
		&cli.StringFlag{
			Name:    "namespace",
			Aliases: []string{"n"},
			Usage:   "namespace to list tables from",
			Value:   consts.DefaultNamespace,
			Config: cli.StringConfig{
				TrimSpace: true,
			},
		},
	}
	flags = append(flags, tlsFlags...)

	return &cli.Command{
		Name:  "tables",
		Usage: "List tables in a namespace",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runTables(ctx, cmd, cfg)
		},
	}
}

func runTables(ctx context.Context, cmd *cli.Command, cfg *config.Config) error {
	client, err := newClient(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	platform := clickhouse.NewPlatform(client, clusterName(cmd, cfg))

	ns := cmd.String("namespace")
	names, err := platform.ListTables(ctx, ns)
	if err != nil {
		return err
	}

	if len(names) == 0 {
		fmt.Printf("No tables in %s\n", ns)
		return nil
	}

	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

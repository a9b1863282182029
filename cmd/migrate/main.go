package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/catchyfabric/market-backend/pkg/bootstrap"
	"github.com/catchyfabric/market-backend/pkg/db"
	"github.com/catchyfabric/market-backend/pkg/migrate"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

func main() {
	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "migration command: up|down|status|version|create|validate")
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.StringVar(&opts.name, "name", "", "migration name (for create)")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	// create and validate only touch the filesystem.
	switch opts.cmd {
	case "create", "validate":
		if err := runOffline(os.Stdout, opts); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	p := bootstrap.Start("migrate")
	logg := p.Logger
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": p.Config.App.Env,
		"cmd": opts.cmd,
		"dir": opts.dir,
	})

	dbClient, err := db.New(ctx, p.Config.DB, logg)
	p.Require("database", err)
	p.OnClose("database", dbClient.Close)

	sqlDB, err := dbClient.DB().DB()
	p.Require("sql database", err)

	runner, err := migrate.NewRunner(sqlDB, migrate.Dir(opts.dir))
	p.Require("goose provider", err)

	logg.Info(ctx, "migrate ready")
	p.Finish(ctx, runOnline(ctx, os.Stdout, runner, opts))
}

func runOffline(out io.Writer, opts options) error {
	switch opts.cmd {
	case "create":
		if opts.name == "" {
			return fmt.Errorf("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name, time.Now())
		if err != nil {
			return fmt.Errorf("failed to create migration: %w", err)
		}
		fmt.Fprintln(out, "created migration:", path)
	case "validate":
		if err := migrate.ValidateDir(opts.dir); err != nil {
			return fmt.Errorf("migration validation failed: %w", err)
		}
		fmt.Fprintln(out, "migration validation passed")
	default:
		return fmt.Errorf("unknown offline command %q", opts.cmd)
	}
	return nil
}

func runOnline(ctx context.Context, out io.Writer, runner *migrate.Runner, opts options) error {
	var (
		applied []migrate.Applied
		err     error
	)
	switch opts.cmd {
	case "up":
		applied, err = runner.Up(ctx)
	case "down":
		applied, err = runner.Down(ctx)
	case "version":
		if opts.version == "" {
			return fmt.Errorf("missing -version for version command")
		}
		applied, err = runner.To(ctx, opts.version)
	case "status":
		rows, err := runner.Status(ctx)
		if err != nil {
			return err
		}
		for _, row := range rows {
			state := "pending"
			if row.Applied {
				state = "applied " + row.AppliedAt
			}
			fmt.Fprintf(out, "%d\t%-28s\t%s\n", row.Version, state, row.Path)
		}
		return nil
	default:
		return fmt.Errorf("unknown -cmd value: %s", opts.cmd)
	}

	for _, step := range applied {
		fmt.Fprintf(out, "%s\t%d\t%s\n", step.Direction, step.Version, step.Path)
	}
	if err == nil && len(applied) == 0 {
		fmt.Fprintln(out, "no migrations to run")
	}
	return err
}

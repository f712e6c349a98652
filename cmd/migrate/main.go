package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/aquaflow-backend/pkg/config"
	"github.com/angelmondragon/aquaflow-backend/pkg/db"
	"github.com/angelmondragon/aquaflow-backend/pkg/logger"
	"github.com/angelmondragon/aquaflow-backend/pkg/migrate"
)

const serviceKind = "migrate"

type options struct {
	cmd      string
	dir      string
	name     string
	version  string
	embedded bool
}

// offline commands never open a database connection.
var offline = map[string]func(opts options, out io.Writer) error{
	"create": func(opts options, out io.Writer) error {
		if opts.name == "" {
			return errors.New("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "created migration:", path)
		return nil
	},
	"validate": func(opts options, out io.Writer) error {
		if err := migrate.ValidateDir(opts.dir); err != nil {
			return err
		}
		if err := migrate.ValidateEmbedded(); err != nil {
			return fmt.Errorf("embedded set: %w", err)
		}
		fmt.Fprintln(out, "migration validation passed")
		return nil
	},
}

var online = map[string]func(ctx context.Context, r *migrate.Runner, opts options, out io.Writer) error{
	"up": func(ctx context.Context, r *migrate.Runner, _ options, out io.Writer) error {
		results, err := r.Up(ctx)
		printResults(out, results)
		return err
	},
	"down": func(ctx context.Context, r *migrate.Runner, _ options, out io.Writer) error {
		results, err := r.Down(ctx)
		printResults(out, results)
		return err
	},
	"status": func(ctx context.Context, r *migrate.Runner, _ options, out io.Writer) error {
		statuses, err := r.Status(ctx)
		if err != nil {
			return err
		}
		printStatus(out, statuses)
		return nil
	},
	"version": func(ctx context.Context, r *migrate.Runner, opts options, out io.Writer) error {
		if opts.version == "" {
			current, err := r.Version(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "current version:", current)
			return nil
		}
		results, err := r.MigrateTo(ctx, opts.version)
		printResults(out, results)
		return err
	},
}

func main() {
	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "migration command: up|down|status|version|create|validate")
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.StringVar(&opts.name, "name", "", "migration name (for create)")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version; empty prints the current version")
	flag.BoolVar(&opts.embedded, "embedded", false, "apply the migrations compiled into this binary instead of -dir")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: serviceKind})
	_ = godotenv.Load()

	if err := run(context.Background(), logg, opts, os.Stdout); err != nil {
		logg.Error(context.Background(), fmt.Sprintf("migrate %s failed", opts.cmd), err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logg *logger.Logger, opts options, out io.Writer) error {
	if fn, ok := offline[opts.cmd]; ok {
		return fn(opts, out)
	}
	fn, ok := online[opts.cmd]
	if !ok {
		return fmt.Errorf("unknown -cmd value %q", opts.cmd)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		return errors.New("goose migrations target postgres; sqlite schemas are synced on service start")
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dir := opts.dir
	if opts.embedded {
		dir = ""
	}
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"cmd":      opts.cmd,
		"dir":      opts.dir,
		"embedded": opts.embedded,
	})

	source, err := migrate.Source(dir)
	if err != nil {
		return err
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("extract sql.DB: %w", err)
	}
	runner, err := migrate.NewRunner(sqlDB, source)
	if err != nil {
		return err
	}

	logg.Info(ctx, "migrate ready")
	return fn(ctx, runner, opts, out)
}

func printResults(out io.Writer, results []*goose.MigrationResult) {
	if len(results) == 0 {
		fmt.Fprintln(out, "no migrations to run")
		return
	}
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		fmt.Fprintf(out, "%-4s %d %s (%s)\n", res.Direction, res.Source.Version, res.Source.Path, res.Duration.Truncate(time.Millisecond))
	}
}

func printStatus(out io.Writer, statuses []*goose.MigrationStatus) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tSTATE\tAPPLIED AT\tFILE")
	for _, st := range statuses {
		applied := "-"
		if !st.AppliedAt.IsZero() {
			applied = st.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", st.Source.Version, st.State, applied, st.Source.Path)
	}
	_ = w.Flush()
}

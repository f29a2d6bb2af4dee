package main

import (
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/erp/shopcore/internal/infrastructure/config"
	"github.com/erp/shopcore/internal/infrastructure/logger"
	"github.com/erp/shopcore/internal/infrastructure/migration"
	"github.com/erp/shopcore/migrations"
	_ "github.com/lib/pq"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
)

const defaultMigrationsPath = "migrations"

// command is one migrate subcommand. Commands with needsDB get a Migrator;
// the rest only touch migration files.
type command struct {
	usage   string
	minArgs int
	needsDB bool
	run     func(env *runEnv, args []string) error
}

type runEnv struct {
	log      *zap.Logger
	path     string
	migrator *migration.Migrator
}

var commands = map[string]command{
	"up":   {usage: "up", needsDB: true, run: func(e *runEnv, _ []string) error { return e.migrator.Up() }},
	"down": {usage: "down", needsDB: true, run: func(e *runEnv, _ []string) error { return e.migrator.Down() }},
	"step": {usage: "step <n>", minArgs: 1, needsDB: true, run: func(e *runEnv, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid step count %q", args[0])
		}
		return e.migrator.Steps(n)
	}},
	"goto": {usage: "goto <version>", minArgs: 1, needsDB: true, run: func(e *runEnv, args []string) error {
		v, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid version %q", args[0])
		}
		return e.migrator.GoTo(uint(v))
	}},
	"force": {usage: "force <version>", minArgs: 1, needsDB: true, run: func(e *runEnv, args []string) error {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q", args[0])
		}
		return e.migrator.Force(v)
	}},
	"status": {usage: "status", needsDB: true, run: status},
	"drop": {usage: "drop --confirm", minArgs: 1, needsDB: true, run: func(e *runEnv, args []string) error {
		if args[0] != "-confirm" && args[0] != "--confirm" {
			return fmt.Errorf("drop cancelled; pass --confirm")
		}
		return e.migrator.Drop()
	}},
	"create":   {usage: "create <name> [description]", minArgs: 1, run: create},
	"list":     {usage: "list", run: list},
	"validate": {usage: "validate", run: validate},
}

func main() {
	path := flag.String("path", "", "read migrations from this directory instead of the embedded set")
	level := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	name, args := args[0], args[1:]
	if name == "version" {
		name = "status"
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", name)
		printUsage()
		os.Exit(1)
	}

	logCfg := logger.ForEnvironment("development")
	logCfg.Level = *level
	log, err := logger.New(&logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if len(args) < cmd.minArgs {
		log.Fatal("Missing arguments", zap.String("usage", "migrate "+cmd.usage))
	}

	env := &runEnv{log: log, path: *path}
	if cmd.needsDB {
		db, m := openMigrator(log, *path)
		defer db.Close()
		defer m.Close()
		env.migrator = m
	}

	if err := cmd.run(env, args); err != nil {
		log.Fatal("Migration command failed", zap.String("command", name), zap.Error(err))
	}
}

func openMigrator(log *zap.Logger, path string) (*sql.DB, *migration.Migrator) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database", zap.Error(err))
	}

	var m *migration.Migrator
	if path != "" {
		m, err = migration.NewFromPath(db, path, log)
	} else {
		m, err = migration.New(db, log)
	}
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	return db, m
}

func status(e *runEnv, _ []string) error {
	st, err := e.migrator.Status()
	if err != nil {
		return err
	}
	e.log.Info("Schema status",
		zap.Uint("version", st.Version),
		zap.Uint("latest", st.Latest),
		zap.Bool("dirty", st.Dirty),
		zap.Bool("up_to_date", st.UpToDate()),
	)
	return nil
}

func create(e *runEnv, args []string) error {
	dir := e.path
	if dir == "" {
		dir = defaultMigrationsPath
	}
	desc := ""
	if len(args) > 1 {
		desc = args[1]
	}
	mf, err := migration.CreateMigration(dir, args[0], desc)
	if err != nil {
		return err
	}
	e.log.Info("Migration created",
		zap.String("version", mf.Version),
		zap.String("up_file", mf.UpPath),
		zap.String("down_file", mf.DownPath),
	)
	return nil
}

func list(e *runEnv, _ []string) error {
	names, err := migration.ListMigrations(e.source())
	if err != nil {
		return err
	}
	e.log.Info("Available migrations", zap.Int("count", len(names)))
	for _, name := range names {
		fmt.Println("  -", name)
	}
	return nil
}

func validate(e *runEnv, _ []string) error {
	if err := migration.Validate(e.source()); err != nil {
		return err
	}
	e.log.Info("Migrations are valid")
	return nil
}

func (e *runEnv) source() fs.FS {
	if e.path == "" {
		return migrations.FS
	}
	return os.DirFS(e.path)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Shop Core database migrations

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    apply all pending migrations
  down                  roll back all migrations
  step <n>              apply n migrations, negative rolls back
  goto <version>        migrate to a version
  status                applied and latest known version (alias: version)
  force <version>       set the version without migrating
  drop --confirm        drop every database object
  create <name> [desc]  write a new migration pair under --path
  list                  list available migrations
  validate              check every migration has a rollback

Flags:
%s
The database is configured through SHOP_DATABASE_* variables or config.toml.
`, flag.CommandLine.FlagUsages())
}

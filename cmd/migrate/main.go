package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strconv"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/pharmalink/settlement/internal/infrastructure/config"
	"github.com/pharmalink/settlement/internal/infrastructure/logger"
	"github.com/pharmalink/settlement/internal/infrastructure/migration"
)

const usage = `Usage: migrate [flags] <command> [args]

Commands:
  up                 Apply all pending migrations
  down               Roll back all migrations
  steps <n>          Apply n migrations (negative rolls back)
  version            Print the current migration version
  force <version>    Force the version without running migrations
  create <name>      Create a new migration file pair
  list               List migration files

Flags:
  -path       Path to the migrations directory (default "migrations")
  -log-level  Log level: debug, info, warn, error (default "info")
`

func main() {
	var (
		path     = flag.String("path", "migrations", "path to the migrations directory")
		logLevel = flag.String("log-level", "info", "log level")
	)
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	command := flag.Arg(0)

	zapLogger, err := logger.New(&logger.Config{Level: *logLevel, Format: "console", Output: "stderr"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer zapLogger.Sync() //nolint:errcheck

	// create and list only touch the filesystem
	switch command {
	case "create":
		if flag.NArg() < 2 {
			zapLogger.Fatal("create requires a migration name")
		}
		file, err := migration.CreateMigration(*path, flag.Arg(1))
		if err != nil {
			zapLogger.Fatal("failed to create migration", zap.Error(err))
		}
		zapLogger.Info("created migration",
			zap.String("up", file.UpPath),
			zap.String("down", file.DownPath),
		)
		return
	case "list":
		files, err := migration.ListMigrations(*path)
		if err != nil {
			zapLogger.Fatal("failed to list migrations", zap.Error(err))
		}
		for _, f := range files {
			fmt.Println(f)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		zapLogger.Fatal("failed to load configuration", zap.Error(err))
	}
	if cfg.Database.Driver != "postgres" {
		zapLogger.Fatal("migrations require the postgres driver; the sqlite backend is migrated in-process",
			zap.String("driver", cfg.Database.Driver),
		)
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.User,
		cfg.Database.Password, cfg.Database.DBName, cfg.Database.SSLMode,
	)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		zapLogger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	migrator, err := migration.New(db, *path, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to create migrator", zap.Error(err))
	}
	defer migrator.Close() //nolint:errcheck

	switch command {
	case "up":
		err = migrator.Up()
	case "down":
		err = migrator.Down()
	case "steps":
		if flag.NArg() < 2 {
			zapLogger.Fatal("steps requires a count")
		}
		var n int
		if n, err = strconv.Atoi(flag.Arg(1)); err != nil {
			zapLogger.Fatal("invalid step count", zap.String("arg", flag.Arg(1)))
		}
		err = migrator.Steps(n)
	case "version":
		var version uint
		var dirty bool
		if version, dirty, err = migrator.Version(); err == nil {
			zapLogger.Info("migration version",
				zap.Uint("version", version),
				zap.Bool("dirty", dirty),
			)
		}
	case "force":
		if flag.NArg() < 2 {
			zapLogger.Fatal("force requires a version")
		}
		var v int
		if v, err = strconv.Atoi(flag.Arg(1)); err != nil {
			zapLogger.Fatal("invalid version", zap.String("arg", flag.Arg(1)))
		}
		err = migrator.Force(v)
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		zapLogger.Fatal("migration command failed",
			zap.String("command", command),
			zap.Error(err),
		)
	}
}

// Command migrate manages the ladder Postgres schema.
//
//	migrate up
//	migrate down [n]
//	migrate version
//	migrate force <version>
//	migrate goto <version>
//
// The database and migrations directory come from the regular ladder
// configuration (LADDER_DATABASE_URL, LADDER_MIGRATIONS_DIR or LADDER_CONFIG).
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"

	"github.com/okian/ladder/internal/adapters/repository/postgres"
	"github.com/okian/ladder/internal/config"
	"github.com/okian/ladder/pkg/logger"
)

var errUsage = errors.New("usage")

// migrator is the subset of *migrate.Migrate the commands drive.
type migrator interface {
	Up() error
	Steps(n int) error
	Version() (uint, bool, error)
	Force(version int) error
	Migrate(version uint) error
}

func main() {
	ctx := context.Background()
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(2)
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.InitWith(logger.Options{Format: cfg.LogFormat, Level: cfg.LogLevel}); err != nil {
		fmt.Fprintf(os.Stderr, "init logging: %v\n", err)
		os.Exit(1)
	}
	log := logger.Named("migrate")

	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		log.Fatal(ctx, "database_url is required")
	}

	m, err := postgres.NewMigrator(cfg.MigrationsDir, cfg.DatabaseURL)
	if err != nil {
		log.Fatal(ctx, "create migrator", logger.Error(err))
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if err := errors.Join(srcErr, dbErr); err != nil {
			log.Warn(ctx, "close migrator", logger.Error(err))
		}
	}()

	if err := run(ctx, m, os.Args[1:], os.Stdout, log); err != nil {
		if errors.Is(err, errUsage) {
			printUsage(os.Stderr)
			os.Exit(2)
		}
		log.Error(ctx, "migration failed", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, m migrator, args []string, out io.Writer, log logger.Logger) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd := strings.ToLower(strings.TrimSpace(args[0]))
	rest := args[1:]

	switch cmd {
	case "up":
		if err := noChange(m.Up()); err != nil {
			return err
		}
		log.Info(ctx, "migrations applied")
	case "down":
		steps, err := parseSteps(rest)
		if err != nil {
			return err
		}
		if err := noChange(m.Steps(-steps)); err != nil {
			return err
		}
		log.Info(ctx, "rolled back migrations", logger.Int("steps", steps))
	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Fprintln(out, "version: none")
			fmt.Fprintln(out, "dirty: false")
			return nil
		}
		if err != nil {
			return fmt.Errorf("read version: %w", err)
		}
		fmt.Fprintf(out, "version: %d\n", version)
		fmt.Fprintf(out, "dirty: %t\n", dirty)
	case "force":
		if len(rest) == 0 {
			return fmt.Errorf("force requires a version argument")
		}
		version, err := parseVersion(rest[0])
		if err != nil {
			return err
		}
		if err := m.Force(version); err != nil {
			return fmt.Errorf("force version %d: %w", version, err)
		}
		log.Info(ctx, "forced version", logger.Int("version", version))
	case "goto":
		if len(rest) == 0 {
			return fmt.Errorf("goto requires a target version argument")
		}
		target, err := strconv.ParseUint(strings.TrimSpace(rest[0]), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid target version %q: %w", rest[0], err)
		}
		if err := noChange(m.Migrate(uint(target))); err != nil {
			return err
		}
		log.Info(ctx, "migrated", logger.Int("version", int(target)))
	default:
		return errUsage
	}
	return nil
}

// noChange treats an already-current schema as success.
func noChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

func parseSteps(args []string) (int, error) {
	if len(args) == 0 {
		return 1, nil
	}
	steps, err := strconv.Atoi(strings.TrimSpace(args[0]))
	if err != nil {
		return 0, fmt.Errorf("invalid down steps %q: %w", args[0], err)
	}
	if steps <= 0 {
		return 0, fmt.Errorf("down steps must be > 0")
	}
	return steps, nil
}

func parseVersion(raw string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid version %q: %w", raw, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("version must be >= 0")
	}
	return value, nil
}

func printUsage(w io.Writer) {
	name := filepath.Base(os.Args[0])
	fmt.Fprintf(w, "usage: %s <up|down|version|force|goto> [args]\n", name)
	fmt.Fprintf(w, "  %s up\n", name)
	fmt.Fprintf(w, "  %s down 1\n", name)
	fmt.Fprintf(w, "  %s version\n", name)
	fmt.Fprintf(w, "  %s force 2\n", name)
	fmt.Fprintf(w, "  %s goto 1\n", name)
}

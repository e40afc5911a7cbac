package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"buybuzz-be/internal/logger"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const (
	upMarker   = "-- +migrate Up"
	downMarker = "-- +migrate Down"

	migrateTimeout = 5 * time.Minute
)

func main() {
	_ = godotenv.Load()
	logger.Init(os.Getenv("APP_ENV"))
	defer logger.Sync()
	log := logger.L()

	mode := flag.String("mode", "up", "migration mode: up, down or status")
	dir := flag.String("dir", "./migrations", "directory holding *.sql migrations")
	steps := flag.Int("steps", 1, "migrations to roll back in down mode")
	flag.Parse()

	dsn, err := migrationDSN()
	if err != nil {
		log.Fatal("no database configured", zap.Error(err))
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatal("failed to connect db", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
	defer cancel()

	if err := run(ctx, db, *mode, *dir, *steps); err != nil {
		log.Fatal("migration failed", zap.String("mode", *mode), zap.Error(err))
	}
}

// migrationDSN prefers DB_URL and otherwise builds a DSN from the DB_* vars
// the server reads.
func migrationDSN() (string, error) {
	if url := os.Getenv("DB_URL"); url != "" {
		return url, nil
	}
	host := os.Getenv("DB_HOST")
	if host == "" {
		return "", errors.New("set DB_URL or DB_HOST")
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		host, os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD"), os.Getenv("DB_NAME"), os.Getenv("DB_PORT"),
	), nil
}

// migration is one timestamp-prefixed SQL file. Its file name is the version
// recorded in schema_migrations.
type migration struct {
	Version string
	Up      string
	Down    string
}

// loadMigrations parses every *.sql file in dir, oldest first.
func loadMigrations(dir string) ([]migration, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(files)

	out := make([]migration, 0, len(files))
	for _, f := range files {
		content, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f, err)
		}
		m, err := parseMigration(filepath.Base(f), string(content))
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// parseMigration splits content at the Up and Down markers. A file without
// Up statements is rejected; Down may be empty.
func parseMigration(version, content string) (migration, error) {
	m := migration{
		Version: version,
		Up:      section(content, upMarker),
		Down:    section(content, downMarker),
	}
	if strings.TrimSpace(m.Up) == "" {
		return migration{}, fmt.Errorf("migration %s has no %q section", version, upMarker)
	}
	return m, nil
}

// section returns the lines after marker up to the next migrate marker.
func section(content, marker string) string {
	var (
		b  strings.Builder
		in bool
	)
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "-- +migrate") {
			if in {
				break
			}
			in = trimmed == marker
			continue
		}
		if in {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

type migrator struct {
	db  *sql.DB
	log *zap.Logger
}

func run(ctx context.Context, db *sql.DB, mode, dir string, steps int) error {
	m := &migrator{db: db, log: logger.L().With(zap.String("layer", "migrate"))}

	if err := m.ensureTable(ctx); err != nil {
		return err
	}

	migrations, err := loadMigrations(dir)
	if err != nil {
		return err
	}

	switch mode {
	case "up":
		return m.up(ctx, migrations)
	case "down":
		return m.down(ctx, migrations, steps)
	case "status":
		return m.status(ctx, migrations)
	default:
		return fmt.Errorf("unknown mode: %s (use 'up', 'down' or 'status')", mode)
	}
}

func (m *migrator) ensureTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure schema_migrations table: %w", err)
	}
	return nil
}

func (m *migrator) applied(ctx context.Context) (map[string]bool, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	defer rows.Close()

	done := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to read applied migrations: %w", err)
		}
		done[v] = true
	}
	return done, rows.Err()
}

// up applies every pending migration, each in its own transaction together
// with its schema_migrations row.
func (m *migrator) up(ctx context.Context, migrations []migration) error {
	done, err := m.applied(ctx)
	if err != nil {
		return err
	}

	count := 0
	for _, mig := range migrations {
		if done[mig.Version] {
			m.log.Debug("skipping applied migration", zap.String("version", mig.Version))
			continue
		}

		m.log.Info("applying migration", zap.String("version", mig.Version))
		err := m.inTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, mig.Up); err != nil {
				return fmt.Errorf("migration %s: %w", mig.Version, err)
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, mig.Version); err != nil {
				return fmt.Errorf("failed to record migration %s: %w", mig.Version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
		count++
	}

	m.log.Info("migrations up to date", zap.Int("applied", count))
	return nil
}

// down rolls back the latest steps applied migrations, newest first.
func (m *migrator) down(ctx context.Context, migrations []migration, steps int) error {
	if steps < 1 {
		return fmt.Errorf("steps must be at least 1, got %d", steps)
	}

	byVersion := make(map[string]migration, len(migrations))
	for _, mig := range migrations {
		byVersion[mig.Version] = mig
	}

	for i := 0; i < steps; i++ {
		var version string
		err := m.db.QueryRowContext(ctx,
			`SELECT version FROM schema_migrations ORDER BY applied_at DESC, version DESC LIMIT 1`,
		).Scan(&version)
		if errors.Is(err, sql.ErrNoRows) {
			m.log.Info("no migrations to roll back", zap.Int("rolled_back", i))
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get last applied migration: %w", err)
		}

		mig, ok := byVersion[version]
		if !ok {
			return fmt.Errorf("migration file not found for version: %s", version)
		}
		if strings.TrimSpace(mig.Down) == "" {
			return fmt.Errorf("migration %s has no %q section", version, downMarker)
		}

		m.log.Info("rolling back migration", zap.String("version", version))
		err = m.inTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, mig.Down); err != nil {
				return fmt.Errorf("rollback %s: %w", version, err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM schema_migrations WHERE version = $1`, version); err != nil {
				return fmt.Errorf("failed to remove migration record: %w", err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *migrator) status(ctx context.Context, migrations []migration) error {
	done, err := m.applied(ctx)
	if err != nil {
		return err
	}

	pending := 0
	for _, mig := range migrations {
		state := "applied"
		if !done[mig.Version] {
			state = "pending"
			pending++
		}
		m.log.Info("migration", zap.String("version", mig.Version), zap.String("state", state))
	}
	m.log.Info("migration status", zap.Int("total", len(migrations)), zap.Int("pending", pending))
	return nil
}

func (m *migrator) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}
	return nil
}

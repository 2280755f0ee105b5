package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"vinylstore-be/internal/logger"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const migrateMarker = "-- +migrate "

// migration is one *.sql file; its base name is the recorded version.
type migration struct {
	Version string
	Up      string
	Down    string
}

func main() {
	_ = godotenv.Load()
	logger.Init(os.Getenv("APP_ENV"), "migrate")
	defer logger.Sync()
	log := logger.L()

	mode := flag.String("mode", "up", "migration mode: up, down or status")
	dir := flag.String("dir", "./migrations", "directory holding *.sql migrations")
	steps := flag.Int("steps", 1, "number of migrations to roll back in down mode")
	flag.Parse()

	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		log.Fatal("DB_URL not set in environment")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatal("failed to connect db", zap.Error(err))
	}
	defer db.Close()

	if err := run(db, *mode, *dir, *steps); err != nil {
		log.Fatal("migration failed", zap.String("mode", *mode), zap.Error(err))
	}
}

func run(db *sql.DB, mode, dir string, steps int) error {
	switch mode {
	case "up", "down", "status":
	default:
		return fmt.Errorf("unknown mode: %s (use up, down or status)", mode)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	migrations, err := loadMigrations(dir)
	if err != nil {
		return err
	}

	switch mode {
	case "up":
		return migrateUp(db, migrations)
	case "down":
		return migrateDown(db, migrations, steps)
	default:
		return status(db, migrations)
	}
}

// loadMigrations reads every *.sql file in dir. Filenames carry a numeric
// prefix, so lexical order is apply order.
func loadMigrations(dir string) ([]migration, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(files)

	out := make([]migration, 0, len(files))
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}

		m := migration{
			Version: filepath.Base(file),
			Up:      section(string(content), "Up"),
			Down:    section(string(content), "Down"),
		}
		if strings.TrimSpace(m.Up) == "" {
			return nil, fmt.Errorf("migration %s has no Up section", m.Version)
		}
		out = append(out, m)
	}
	return out, nil
}

// section returns the lines between "-- +migrate <name>" and the next marker.
func section(content, name string) string {
	var part strings.Builder
	inPart := false

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, migrateMarker) {
			if inPart {
				break
			}
			inPart = strings.TrimSpace(strings.TrimPrefix(trimmed, migrateMarker)) == name
			continue
		}
		if inPart {
			part.WriteString(line)
			part.WriteByte('\n')
		}
	}
	return part.String()
}

// applied returns recorded versions, newest first.
func applied(db *sql.DB) ([]string, error) {
	rows, err := db.Query(`SELECT version FROM schema_migrations ORDER BY applied_at DESC, version DESC`)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// inTx runs one migration and its bookkeeping atomically.
func inTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.L().Error("failed to rollback migration", zap.Error(rbErr))
			}
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func migrateUp(db *sql.DB, migrations []migration) error {
	log := logger.L()

	done, err := applied(db)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(done))
	for _, v := range done {
		seen[v] = true
	}

	count := 0
	for _, m := range migrations {
		if seen[m.Version] {
			log.Debug("skipping applied migration", zap.String("version", m.Version))
			continue
		}

		log.Info("applying migration", zap.String("version", m.Version))
		err := inTx(db, func(tx *sql.Tx) error {
			if _, err := tx.Exec(m.Up); err != nil {
				return fmt.Errorf("apply %s: %w", m.Version, err)
			}
			if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES ($1)`, m.Version); err != nil {
				return fmt.Errorf("record %s: %w", m.Version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
		count++
	}

	log.Info("migrations applied", zap.Int("count", count))
	return nil
}

func migrateDown(db *sql.DB, migrations []migration, steps int) error {
	log := logger.L()

	if steps < 1 {
		return fmt.Errorf("steps must be at least 1, got %d", steps)
	}

	done, err := applied(db)
	if err != nil {
		return err
	}
	if len(done) == 0 {
		log.Warn("no migrations to roll back")
		return nil
	}

	byVersion := make(map[string]migration, len(migrations))
	for _, m := range migrations {
		byVersion[m.Version] = m
	}

	for _, version := range done[:min(steps, len(done))] {
		m, ok := byVersion[version]
		if !ok {
			return fmt.Errorf("migration file not found for version: %s", version)
		}
		if strings.TrimSpace(m.Down) == "" {
			return fmt.Errorf("migration %s has no Down section", version)
		}

		log.Info("rolling back migration", zap.String("version", version))
		err := inTx(db, func(tx *sql.Tx) error {
			if _, err := tx.Exec(m.Down); err != nil {
				return fmt.Errorf("roll back %s: %w", version, err)
			}
			if _, err := tx.Exec(`DELETE FROM schema_migrations WHERE version = $1`, version); err != nil {
				return fmt.Errorf("unrecord %s: %w", version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func status(db *sql.DB, migrations []migration) error {
	done, err := applied(db)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(done))
	for _, v := range done {
		seen[v] = true
	}

	log := logger.L()
	pending := 0
	for _, m := range migrations {
		if !seen[m.Version] {
			pending++
		}
		log.Info("migration", zap.String("version", m.Version), zap.Bool("applied", seen[m.Version]))
	}
	log.Info("migration status", zap.Int("applied", len(done)), zap.Int("pending", pending))
	return nil
}

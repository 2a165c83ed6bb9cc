package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/safar/artisan-storefront/migrations"
)

const (
	MigrateUp   = "up"
	MigrateDown = "down"
)

// Migrate applies every embedded migration for the given direction and
// returns the names it ran. Down migrations run in reverse order.
func Migrate(ctx context.Context, db *sql.DB, direction string) ([]string, error) {
	if direction != MigrateUp && direction != MigrateDown {
		return nil, fmt.Errorf("direction must be %q or %q", MigrateUp, MigrateDown)
	}

	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), fmt.Sprintf(".%s.sql", direction)) {
			files = append(files, entry.Name())
		}
	}

	sort.Strings(files)
	if direction == MigrateDown {
		for i, j := 0, len(files)-1; i < j; i, j = i+1, j-1 {
			files[i], files[j] = files[j], files[i]
		}
	}

	for _, name := range files {
		content, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			return nil, fmt.Errorf("read migration file %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			return nil, fmt.Errorf("execute migration %s: %w", name, err)
		}
	}

	return files, nil
}

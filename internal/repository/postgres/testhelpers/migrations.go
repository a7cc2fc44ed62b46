package testhelpers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Migrate откатывает все миграции (в обратном порядке) и применяет их заново
func Migrate(ctx context.Context, db *sqlx.DB, dir string) error {
	down, err := migrationFiles(dir, ".down.sql")
	if err != nil {
		return err
	}
	slices.Reverse(down)
	up, err := migrationFiles(dir, ".up.sql")
	if err != nil {
		return err
	}

	for _, file := range append(down, up...) {
		content, err := os.ReadFile(filepath.Join(dir, file))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
	}
	return nil
}

func migrationFiles(dir, suffix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), suffix) {
			files = append(files, e.Name())
		}
	}
	slices.Sort(files)
	return files, nil
}

package app

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"volleylevel.by/academy-bot/internal/db/postgres"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// loadMigrations читает встроенные NNN_name.sql и сортирует по версии.
func loadMigrations(fsys fs.FS) ([]postgres.Migration, error) {
	names, err := fs.Glob(fsys, "migrations/*.sql")
	if err != nil {
		return nil, err
	}

	out := make([]postgres.Migration, 0, len(names))
	seen := make(map[int]string, len(names))
	for _, name := range names {
		base := strings.TrimSuffix(path.Base(name), ".sql")
		num, title, ok := strings.Cut(base, "_")
		if !ok {
			return nil, fmt.Errorf("миграция %s: ожидается имя вида 001_name.sql", name)
		}
		version, err := strconv.Atoi(num)
		if err != nil || version <= 0 {
			return nil, fmt.Errorf("миграция %s: некорректная версия %q", name, num)
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("миграции %s и %s с одной версией %d", prev, name, version)
		}
		seen[version] = name

		sql, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения %s: %w", name, err)
		}
		out = append(out, postgres.Migration{Version: version, Name: title, SQL: string(sql)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "modernc.org/sqlite"
)

// SQLBackend reads the catalog from an embedded sqlite file.
type SQLBackend struct {
	db *sql.DB
}

func NewSQLBackend(dbPath string) (*SQLBackend, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection, or every ":memory:" connection gets its own database
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLBackend{db: db}, nil
}

func (b *SQLBackend) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(b.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (b *SQLBackend) Get(ctx context.Context, table string, filters Filters) ([]Row, error) {
	query, args, err := buildSelect(table, filters)
	if err != nil {
		return nil, err
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	out := []Row{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			if raw, ok := values[i].([]byte); ok {
				row[col] = string(raw)
				continue
			}
			row[col] = values[i]
		}
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return out, nil
}

func (b *SQLBackend) Close() error {
	return b.db.Close()
}

// buildSelect only lets whitelisted names into the statement; values are
// always bound.
func buildSelect(table string, filters Filters) (string, []any, error) {
	allowed, ok := columns[table]
	if !ok {
		return "", nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}

	keys := make([]string, 0, len(filters))
	for k := range filters {
		if !allowed[k] {
			return "", nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("SELECT * FROM ")
	sb.WriteString(table)
	args := make([]any, 0, len(keys))
	for i, k := range keys {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		sb.WriteString(k)
		sb.WriteString(" = ?")
		args = append(args, filters[k])
	}
	sb.WriteString(" ORDER BY rowid")

	return sb.String(), args, nil
}

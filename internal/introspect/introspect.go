// Package introspect loads a schema from a live database's catalog, as an
// alternative to pasting DDL. Only metadata queries run here; user or
// generated SQL is never executed.
package introspect

import (
	"context"
	"database/sql"
	"fmt"

	"text2sql/internal/dialect"
	"text2sql/internal/schema"
)

// Load connects with the given driver ("postgres" or "mysql") and DSN and
// builds a schema from information_schema metadata. Tables come back in
// name order.
func Load(ctx context.Context, driver, dsn string) (*schema.Schema, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &schema.Schema{Dialect: string(d)}

	names, err := tableNames(ctx, db, driver)
	if err != nil {
		return nil, fmt.Errorf("load tables: %w", err)
	}
	columns, err := tableColumns(ctx, db, driver)
	if err != nil {
		return nil, fmt.Errorf("load columns: %w", err)
	}
	primaryKeys, err := tablePrimaryKeys(ctx, db, driver)
	if err != nil {
		return nil, fmt.Errorf("load primary keys: %w", err)
	}
	foreignKeys, err := tableForeignKeys(ctx, db, driver)
	if err != nil {
		return nil, fmt.Errorf("load foreign keys: %w", err)
	}

	for _, name := range names {
		s.Tables = append(s.Tables, &schema.TableInfo{
			Name:        name,
			Columns:     columns[name],
			PrimaryKeys: primaryKeys[name],
			ForeignKeys: foreignKeys[name],
		})
	}
	return s, nil
}

func dialectFor(driver string) (dialect.Dialect, error) {
	switch driver {
	case "postgres":
		return dialect.Postgres, nil
	case "mysql":
		return dialect.MySQL, nil
	default:
		return "", fmt.Errorf("unsupported introspection driver %q (supported: postgres, mysql)", driver)
	}
}

func tableNames(ctx context.Context, db *sql.DB, driver string) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name`
	if driver == "mysql" {
		query = `
			SELECT table_name
			FROM information_schema.tables
			WHERE table_schema = DATABASE()
			  AND table_type = 'BASE TABLE'
			ORDER BY table_name`
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func tableColumns(ctx context.Context, db *sql.DB, driver string) (map[string][]schema.Column, error) {
	query := `
		SELECT table_name, column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = 'public'
		ORDER BY table_name, ordinal_position`
	if driver == "mysql" {
		query = `
			SELECT table_name, column_name, column_type
			FROM information_schema.columns
			WHERE table_schema = DATABASE()
			ORDER BY table_name, ordinal_position`
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := make(map[string][]schema.Column)
	for rows.Next() {
		var table string
		var col schema.Column
		if err := rows.Scan(&table, &col.Name, &col.Type); err != nil {
			return nil, err
		}
		columns[table] = append(columns[table], col)
	}
	return columns, rows.Err()
}

func tablePrimaryKeys(ctx context.Context, db *sql.DB, driver string) (map[string][]string, error) {
	query := `
		SELECT tc.table_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
		  AND tc.table_schema = 'public'
		ORDER BY tc.table_name, kcu.ordinal_position`
	if driver == "mysql" {
		query = `
			SELECT table_name, column_name
			FROM information_schema.key_column_usage
			WHERE table_schema = DATABASE()
			  AND constraint_name = 'PRIMARY'
			ORDER BY table_name, ordinal_position`
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pks := make(map[string][]string)
	for rows.Next() {
		var table, col string
		if err := rows.Scan(&table, &col); err != nil {
			return nil, err
		}
		pks[table] = append(pks[table], col)
	}
	return pks, rows.Err()
}

func tableForeignKeys(ctx context.Context, db *sql.DB, driver string) (map[string][]schema.ForeignKey, error) {
	query := `
		SELECT tc.table_name, kcu.column_name, ccu.table_name, ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON tc.constraint_name = ccu.constraint_name
			AND tc.table_schema = ccu.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema = 'public'`
	if driver == "mysql" {
		query = `
			SELECT table_name, column_name, referenced_table_name, referenced_column_name
			FROM information_schema.key_column_usage
			WHERE table_schema = DATABASE()
			  AND referenced_table_name IS NOT NULL
			ORDER BY table_name, ordinal_position`
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fks := make(map[string][]schema.ForeignKey)
	for rows.Next() {
		var table, col, refTable, refCol string
		if err := rows.Scan(&table, &col, &refTable, &refCol); err != nil {
			return nil, err
		}
		fks[table] = append(fks[table], schema.ForeignKey{
			ConstrainedColumns: []string{col},
			ReferredTable:      refTable,
			ReferredColumns:    []string{refCol},
		})
	}
	return fks, rows.Err()
}

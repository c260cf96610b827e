package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"biodivscope-backend-go/internal/schema"
)

type Store interface {
	AppendRows(ctx context.Context, table string, columns []string, rows [][]any) (int, error)
	CountRows(ctx context.Context, table string) (int64, error)
}

// SQLStore appends each batch inside a single transaction, so a failing
// row leaves the table as it was before the batch.
type SQLStore struct {
	DB *sqlx.DB
}

func (s SQLStore) AppendRows(ctx context.Context, table string, columns []string, rows [][]any) (int, error) {
	query, err := insertQuery(table, columns)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return 0, fmt.Errorf("insert row %d into %s: %w", i+1, table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (s SQLStore) CountRows(ctx context.Context, table string) (int64, error) {
	if _, ok := schema.Lookup(table); !ok {
		return 0, fmt.Errorf("unknown table %q", table)
	}
	var count int64
	err := s.DB.GetContext(ctx, &count, `SELECT COUNT(*) FROM `+table)
	return count, err
}

// insertQuery only accepts identifiers from the schema catalog.
func insertQuery(table string, columns []string) (string, error) {
	t, ok := schema.Lookup(table)
	if !ok {
		return "", fmt.Errorf("unknown table %q", table)
	}
	if len(columns) == 0 {
		return "", fmt.Errorf("no columns to insert into %s", table)
	}
	placeholders := make([]string, len(columns))
	for i, col := range columns {
		if _, ok := t.Column(col); !ok {
			return "", fmt.Errorf("unknown column %q for %s", col, table)
		}
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), strings.Join(placeholders, ", ")), nil
}

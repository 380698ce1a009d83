package resource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"staffdesk/portal/internal/apperr"
)

// PGStore is a Store backed by one Postgres table described by a Schema.
type PGStore[T any] struct {
	db     *sql.DB
	schema Schema[T]

	listQ   string
	getQ    string
	insertQ string
	updateQ string
	deleteQ string
}

func NewPGStore[T any](db *sql.DB, schema Schema[T]) (*PGStore[T], error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if schema.Table == "" || len(schema.Columns) == 0 {
		return nil, fmt.Errorf("schema table and columns are required")
	}

	cols := strings.Join(schema.Columns, ", ")
	insertArgs := make([]string, len(schema.Columns))
	sets := make([]string, len(schema.Columns))
	for i, c := range schema.Columns {
		insertArgs[i] = fmt.Sprintf("$%d", i+1)
		sets[i] = fmt.Sprintf("%s = $%d", c, i+2)
	}

	return &PGStore[T]{
		db:      db,
		schema:  schema,
		listQ:   fmt.Sprintf("SELECT id, %s FROM %s ORDER BY id", cols, schema.Table),
		getQ:    fmt.Sprintf("SELECT id, %s FROM %s WHERE id = $1", cols, schema.Table),
		insertQ: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id", schema.Table, cols, strings.Join(insertArgs, ", ")),
		updateQ: fmt.Sprintf("UPDATE %s SET %s WHERE id = $1", schema.Table, strings.Join(sets, ", ")),
		deleteQ: fmt.Sprintf("DELETE FROM %s WHERE id = $1", schema.Table),
	}, nil
}

func (s *PGStore[T]) List(ctx context.Context) ([]T, error) {
	rows, err := s.db.QueryContext(ctx, s.listQ)
	if err != nil {
		return nil, apperr.Storage(err, "list "+s.schema.Table)
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		var rec T
		if err := rows.Scan(s.schema.Fields(&rec)...); err != nil {
			return nil, apperr.Storage(err, "scan "+s.schema.Table)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage(err, "iterate "+s.schema.Table)
	}
	return out, nil
}

func (s *PGStore[T]) Create(ctx context.Context, rec T) (int64, error) {
	var id int64
	if err := s.db.QueryRowContext(ctx, s.insertQ, s.schema.Values(rec)...).Scan(&id); err != nil {
		return 0, apperr.Storage(err, "insert "+s.schema.Table)
	}
	return id, nil
}

func (s *PGStore[T]) Get(ctx context.Context, id int64) (T, error) {
	var rec T
	err := s.db.QueryRowContext(ctx, s.getQ, id).Scan(s.schema.Fields(&rec)...)
	if errors.Is(err, sql.ErrNoRows) {
		var zero T
		return zero, apperr.NotFound(ErrNotFound)
	}
	if err != nil {
		var zero T
		return zero, apperr.Storage(err, "get "+s.schema.Table)
	}
	return rec, nil
}

func (s *PGStore[T]) Update(ctx context.Context, id int64, rec T) (bool, error) {
	args := append([]any{id}, s.schema.Values(rec)...)
	res, err := s.db.ExecContext(ctx, s.updateQ, args...)
	if err != nil {
		return false, apperr.Storage(err, "update "+s.schema.Table)
	}
	return affected(res, "update "+s.schema.Table)
}

func (s *PGStore[T]) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.deleteQ, id)
	if err != nil {
		return false, apperr.Storage(err, "delete "+s.schema.Table)
	}
	return affected(res, "delete "+s.schema.Table)
}

func affected(res sql.Result, op string) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Storage(err, op)
	}
	return n > 0, nil
}

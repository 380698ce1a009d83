// Package resource provides generic CRUD storage for the employee and
// product records managed behind the login wall.
package resource

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("record not found")

// Store is the CRUD surface shared by every record type. Update and
// Delete report false when no record has the given id.
type Store[T any] interface {
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, rec T) (int64, error)
	Get(ctx context.Context, id int64) (T, error)
	Update(ctx context.Context, id int64, rec T) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// Schema binds a record type to its table. Columns excludes the id
// column; Values must return one value per column in the same order, and
// Fields must return scan targets for id followed by the columns.
type Schema[T any] struct {
	Table   string
	Columns []string
	Values  func(rec T) []any
	Fields  func(rec *T) []any
	ID      func(rec T) int64
	SetID   func(rec *T, id int64)
}

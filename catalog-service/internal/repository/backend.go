package repository

import (
	"context"
	"errors"
)

const (
	TableProducts    = "products"
	TableMemberships = "memberships"
	TablePrograms    = "programs"
)

var (
	ErrUnknownTable  = errors.New("unknown table")
	ErrUnknownColumn = errors.New("unknown column")
)

// Row is one record as the backend returns it.
type Row map[string]any

// Filters are equality matches, column -> value.
type Filters map[string]any

// Backend is the read side of the catalog store. Errors keep the
// backend's own message.
type Backend interface {
	Get(ctx context.Context, table string, filters Filters) ([]Row, error)
	Close() error
}

// columns lists what may be filtered on per table.
var columns = map[string]map[string]bool{
	TableProducts:    {"id": true, "category": true, "status": true},
	TableMemberships: {"id": true, "status": true, "level": true},
	TablePrograms:    {"id": true, "status": true, "level": true},
}

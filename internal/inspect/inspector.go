// Package inspect reads on-disk object sizes from the PostgreSQL catalog.
package inspect

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	vberrors "github.com/viewbench/viewbench/internal/errors"
)

// ObjectKind is the persistence kind of a relation.
type ObjectKind string

const (
	KindTable            ObjectKind = "table"
	KindView             ObjectKind = "view"
	KindMaterializedView ObjectKind = "materialized view"
)

// ObjectSize is the catalog-reported size of one relation.
type ObjectSize struct {
	Name  string     `json:"name"`
	Kind  ObjectKind `json:"kind"`
	Bytes int64      `json:"bytes"`
}

// RowQuerier is the subset of pgxpool.Pool needed for catalog lookups.
type RowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// sizeQuery reports the relation kind and total on-disk size (including
// indexes and TOAST). Plain views own no storage and report zero.
const sizeQuery = `SELECT c.relkind::text, pg_total_relation_size(c.oid)
FROM pg_class c
JOIN pg_namespace n ON n.oid = c.relnamespace
WHERE n.nspname = current_schema() AND c.relname = $1`

// Inspector reads object sizes from the catalog.
type Inspector struct {
	db RowQuerier
}

// New creates an Inspector.
func New(db RowQuerier) *Inspector {
	return &Inspector{db: db}
}

// Sizes returns the size of each named object, in input order.
func (i *Inspector) Sizes(ctx context.Context, names []string) ([]ObjectSize, error) {
	out := make([]ObjectSize, 0, len(names))

	for _, name := range names {
		var relkind string
		var bytes int64
		err := i.db.QueryRow(ctx, sizeQuery, name).Scan(&relkind, &bytes)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, vberrors.New(vberrors.ErrCategoryInspect, vberrors.CodeObjectNotFound,
				fmt.Sprintf("relation %s not found in catalog", name))
		}
		if err != nil {
			return nil, vberrors.Wrap(vberrors.ErrCategoryInspect, vberrors.CodeQueryFailed,
				fmt.Sprintf("failed to inspect relation %s", name), err)
		}

		out = append(out, ObjectSize{
			Name:  name,
			Kind:  kindFromRelkind(relkind),
			Bytes: bytes,
		})
	}

	return out, nil
}

// kindFromRelkind maps pg_class.relkind codes to readable kinds.
func kindFromRelkind(relkind string) ObjectKind {
	switch relkind {
	case "r", "p":
		return KindTable
	case "v":
		return KindView
	case "m":
		return KindMaterializedView
	default:
		return ObjectKind(relkind)
	}
}

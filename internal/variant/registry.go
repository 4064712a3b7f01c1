// Package variant defines the semantically equivalent query variants under
// comparison: the raw four-way join, a plain view over it, and a
// materialized view over it.
package variant

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	vberrors "github.com/viewbench/viewbench/internal/errors"
)

// Variant names.
const (
	NameRawJoin          = "raw_join"
	NameView             = "view"
	NameMaterializedView = "materialized_view"
)

// Derived object names in the target database.
const (
	ViewName    = "enrollment_roster"
	MatViewName = "enrollment_roster_mat"
)

// rosterJoin is the four-way join all three variants are built from.
// Column order is fixed so EXCEPT-based equivalence checks compare
// positionally identical rows.
const rosterJoin = `SELECT
	e.enrollment_id,
	s.student_id, s.first_name, s.last_name, s.gender,
	cl.class_id,
	co.course_id, co.name AS course_name, co.credits
FROM enrollment e
JOIN student s ON s.student_id = e.student_id
JOIN class cl ON cl.class_id = e.class_id
JOIN course co ON co.course_id = cl.course_id`

// Variant is one measurable rendition of the roster query.
type Variant struct {
	// Name identifies the variant in reports and the archive.
	Name string

	// Description is a one-line human explanation for report output.
	Description string

	// Query is the SELECT statement executed during measurement.
	Query string
}

// Execer is the subset of pgxpool.Pool needed to install and drop the
// derived objects.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Registry holds the query variants and the DDL for their derived objects.
type Registry struct {
	variants []Variant
}

// NewRegistry creates a registry with the three standard variants.
func NewRegistry() *Registry {
	return &Registry{
		variants: []Variant{
			{
				Name:        NameRawJoin,
				Description: "four-way join executed directly against the base tables",
				Query:       rosterJoin,
			},
			{
				Name:        NameView,
				Description: "stored query definition re-executed on every reference",
				Query:       fmt.Sprintf("SELECT * FROM %s", ViewName),
			},
			{
				Name:        NameMaterializedView,
				Description: "persisted result snapshot, stale until refreshed",
				Query:       fmt.Sprintf("SELECT * FROM %s", MatViewName),
			},
		},
	}
}

// Variants returns all registered variants in measurement order.
func (r *Registry) Variants() []Variant {
	out := make([]Variant, len(r.variants))
	copy(out, r.variants)
	return out
}

// ByName returns the variant with the given name.
func (r *Registry) ByName(name string) (Variant, bool) {
	for _, v := range r.variants {
		if v.Name == name {
			return v, true
		}
	}
	return Variant{}, false
}

// JoinQuery returns the underlying four-way join SELECT.
func (r *Registry) JoinQuery() string {
	return rosterJoin
}

// InstallDDL returns the statements that instantiate the view and the
// materialized view. The matview is created after the base tables are
// populated, so its snapshot is non-empty at creation.
func (r *Registry) InstallDDL() []string {
	return []string{
		fmt.Sprintf("CREATE OR REPLACE VIEW %s AS %s", ViewName, rosterJoin),
		fmt.Sprintf("CREATE MATERIALIZED VIEW IF NOT EXISTS %s AS %s", MatViewName, rosterJoin),
	}
}

// DropDDL returns the statements that remove the derived objects.
func (r *Registry) DropDDL() []string {
	return []string{
		fmt.Sprintf("DROP MATERIALIZED VIEW IF EXISTS %s", MatViewName),
		fmt.Sprintf("DROP VIEW IF EXISTS %s", ViewName),
	}
}

// RefreshSQL returns the statement that rebuilds the matview snapshot.
func (r *Registry) RefreshSQL() string {
	return fmt.Sprintf("REFRESH MATERIALIZED VIEW %s", MatViewName)
}

// Install creates the view and materialized view.
func (r *Registry) Install(ctx context.Context, db Execer) error {
	for _, stmt := range r.InstallDDL() {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return vberrors.NewProvisionError(vberrors.CodeDDLFailed,
				fmt.Sprintf("failed to install derived object: %s", stmt), err)
		}
	}
	return nil
}

// Drop removes the view and materialized view.
func (r *Registry) Drop(ctx context.Context, db Execer) error {
	for _, stmt := range r.DropDDL() {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return vberrors.NewProvisionError(vberrors.CodeDDLFailed,
				fmt.Sprintf("failed to drop derived object: %s", stmt), err)
		}
	}
	return nil
}

// Refresh rebuilds the materialized view snapshot from the base tables.
func (r *Registry) Refresh(ctx context.Context, db Execer) error {
	if _, err := db.Exec(ctx, r.RefreshSQL()); err != nil {
		return vberrors.NewProvisionError(vberrors.CodeDDLFailed,
			"failed to refresh materialized view", err)
	}
	return nil
}

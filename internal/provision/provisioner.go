// Package provision creates and drops the synthetic academic schema the
// benchmark runs against.
package provision

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	vberrors "github.com/viewbench/viewbench/internal/errors"
)

// Base table names in creation (dependency) order.
var tableNames = []string{"student", "course", "class", "enrollment"}

// createDDL holds the base table definitions. Parents precede children so
// foreign keys always reference existing tables.
var createDDL = []string{
	`CREATE TABLE IF NOT EXISTS student (
	student_id bigint PRIMARY KEY,
	first_name text NOT NULL,
	last_name text NOT NULL,
	gender text NOT NULL CHECK (gender IN ('male', 'female'))
)`,
	`CREATE TABLE IF NOT EXISTS course (
	course_id bigint PRIMARY KEY,
	name text NOT NULL,
	credits int NOT NULL CHECK (credits BETWEEN 1 AND 6)
)`,
	`CREATE TABLE IF NOT EXISTS class (
	class_id bigint PRIMARY KEY,
	course_id bigint NOT NULL REFERENCES course (course_id)
)`,
	`CREATE TABLE IF NOT EXISTS enrollment (
	enrollment_id bigint PRIMARY KEY,
	class_id bigint NOT NULL REFERENCES class (class_id),
	student_id bigint NOT NULL REFERENCES student (student_id)
)`,
}

// Execer is the subset of pgxpool.Pool needed to run DDL.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Provisioner creates and drops the four base tables.
type Provisioner struct{}

// New creates a Provisioner.
func New() *Provisioner {
	return &Provisioner{}
}

// TableNames returns the base table names in creation order.
func (p *Provisioner) TableNames() []string {
	out := make([]string, len(tableNames))
	copy(out, tableNames)
	return out
}

// CreateDDL returns the table creation statements in dependency order.
func (p *Provisioner) CreateDDL() []string {
	out := make([]string, len(createDDL))
	copy(out, createDDL)
	return out
}

// DropDDL returns the drop statements, children before parents. CASCADE
// removes any derived objects still layered on the tables.
func (p *Provisioner) DropDDL() []string {
	out := make([]string, 0, len(tableNames))
	for i := len(tableNames) - 1; i >= 0; i-- {
		out = append(out, fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", tableNames[i]))
	}
	return out
}

// CreateSchema creates the four base tables.
func (p *Provisioner) CreateSchema(ctx context.Context, db Execer) error {
	for i, stmt := range p.CreateDDL() {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return vberrors.NewProvisionError(vberrors.CodeDDLFailed,
				fmt.Sprintf("failed to create table %s", tableNames[i]), err)
		}
	}
	return nil
}

// DropSchema removes the four base tables and anything layered on them.
func (p *Provisioner) DropSchema(ctx context.Context, db Execer) error {
	for _, stmt := range p.DropDDL() {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return vberrors.NewProvisionError(vberrors.CodeDDLFailed,
				fmt.Sprintf("failed to drop table: %s", stmt), err)
		}
	}
	return nil
}

// Reset drops and recreates the schema, leaving four empty tables.
func (p *Provisioner) Reset(ctx context.Context, db Execer) error {
	if err := p.DropSchema(ctx, db); err != nil {
		return err
	}
	return p.CreateSchema(ctx, db)
}

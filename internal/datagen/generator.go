// Package datagen produces deterministic synthetic rows for the academic
// schema and bulk-loads them over the PostgreSQL COPY protocol.
package datagen

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/jackc/pgx/v5"
	"github.com/spaolacci/murmur3"

	vberrors "github.com/viewbench/viewbench/internal/errors"
)

// Counts holds the requested row count per table.
type Counts struct {
	Students    int
	Courses     int
	Classes     int
	Enrollments int
}

// Total returns the total number of rows across all tables.
func (c Counts) Total() int {
	return c.Students + c.Courses + c.Classes + c.Enrollments
}

// Student is one synthetic student row.
type Student struct {
	ID        int64
	FirstName string
	LastName  string
	Gender    string
}

// Course is one synthetic course row.
type Course struct {
	ID      int64
	Name    string
	Credits int
}

// Class is one synthetic class row referencing a course.
type Class struct {
	ID       int64
	CourseID int64
}

// Enrollment is one synthetic enrollment row referencing a class and a student.
type Enrollment struct {
	ID        int64
	ClassID   int64
	StudentID int64
}

// Dataset is a fully generated, referentially consistent set of rows.
type Dataset struct {
	Students    []Student
	Courses     []Course
	Classes     []Class
	Enrollments []Enrollment
}

// Name pools for synthetic rows. Small on purpose: repeated values make the
// join fan-out realistic without inflating generation cost.
var (
	maleNames   = []string{"James", "Liam", "Noah", "Oliver", "Elijah", "Mateo", "Lucas", "Levi", "Omar", "Ethan", "Hiro", "Ivan"}
	femaleNames = []string{"Olivia", "Emma", "Amara", "Sofia", "Mia", "Isabella", "Aisha", "Luna", "Chloe", "Yuki", "Nora", "Priya"}
	lastNames   = []string{"Smith", "Garcia", "Kim", "Nguyen", "Patel", "Mueller", "Okafor", "Rossi", "Tanaka", "Johnson", "Silva", "Novak", "Haddad", "Brown", "Kowalski", "Ali"}
	subjects    = []string{"Algebra", "Biology", "Chemistry", "Databases", "Economics", "French", "Genetics", "History", "Linguistics", "Mechanics", "Philosophy", "Statistics"}
)

// Gender values match the CHECK constraint on the student table.
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// Credits bounds match the CHECK constraint on the course table.
const (
	MinCredits = 1
	MaxCredits = 6
)

// Generator produces a Dataset deterministically from a run ID.
type Generator struct {
	runID  string
	counts Counts
}

// New creates a Generator. The same runID and counts always produce the
// same dataset.
func New(runID string, counts Counts) *Generator {
	return &Generator{runID: runID, counts: counts}
}

// rng derives a per-table random source from the run ID, so tables can be
// regenerated independently and in any order.
func (g *Generator) rng(table string) *rand.Rand {
	seed := murmur3.Sum64([]byte(g.runID + "/" + table))
	return rand.New(rand.NewSource(int64(seed)))
}

// Generate produces the full dataset. Children always reference IDs of
// already-generated parent rows.
func (g *Generator) Generate() (*Dataset, error) {
	if g.counts.Students <= 0 || g.counts.Courses <= 0 || g.counts.Classes <= 0 || g.counts.Enrollments <= 0 {
		return nil, vberrors.NewValidationError(vberrors.CodeInvalidScale,
			fmt.Sprintf("all counts must be positive: %+v", g.counts))
	}

	ds := &Dataset{
		Students:    g.students(),
		Courses:     g.courses(),
		Classes:     g.classes(),
		Enrollments: g.enrollments(),
	}
	return ds, nil
}

func (g *Generator) students() []Student {
	rng := g.rng("student")
	out := make([]Student, g.counts.Students)
	for i := range out {
		gender := GenderMale
		pool := maleNames
		if rng.Intn(2) == 1 {
			gender = GenderFemale
			pool = femaleNames
		}
		out[i] = Student{
			ID:        int64(i + 1),
			FirstName: pool[rng.Intn(len(pool))],
			LastName:  lastNames[rng.Intn(len(lastNames))],
			Gender:    gender,
		}
	}
	return out
}

func (g *Generator) courses() []Course {
	rng := g.rng("course")
	out := make([]Course, g.counts.Courses)
	for i := range out {
		out[i] = Course{
			ID:      int64(i + 1),
			Name:    fmt.Sprintf("%s %d", subjects[rng.Intn(len(subjects))], 100+rng.Intn(400)),
			Credits: MinCredits + rng.Intn(MaxCredits-MinCredits+1),
		}
	}
	return out
}

func (g *Generator) classes() []Class {
	rng := g.rng("class")
	out := make([]Class, g.counts.Classes)
	for i := range out {
		out[i] = Class{
			ID:       int64(i + 1),
			CourseID: int64(rng.Intn(g.counts.Courses) + 1),
		}
	}
	return out
}

func (g *Generator) enrollments() []Enrollment {
	rng := g.rng("enrollment")
	out := make([]Enrollment, g.counts.Enrollments)
	for i := range out {
		out[i] = Enrollment{
			ID:        int64(i + 1),
			ClassID:   int64(rng.Intn(g.counts.Classes) + 1),
			StudentID: int64(rng.Intn(g.counts.Students) + 1),
		}
	}
	return out
}

// CopyFromer is the subset of pgxpool.Pool needed for bulk loading.
type CopyFromer interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Load bulk-inserts the dataset in dependency order and verifies that the
// copied row counts match the requested counts exactly.
func (g *Generator) Load(ctx context.Context, db CopyFromer) (*Dataset, error) {
	ds, err := g.Generate()
	if err != nil {
		return nil, err
	}

	loads := []struct {
		table   string
		columns []string
		rows    [][]any
		want    int64
	}{
		{"student", []string{"student_id", "first_name", "last_name", "gender"}, studentRows(ds.Students), int64(len(ds.Students))},
		{"course", []string{"course_id", "name", "credits"}, courseRows(ds.Courses), int64(len(ds.Courses))},
		{"class", []string{"class_id", "course_id"}, classRows(ds.Classes), int64(len(ds.Classes))},
		{"enrollment", []string{"enrollment_id", "class_id", "student_id"}, enrollmentRows(ds.Enrollments), int64(len(ds.Enrollments))},
	}

	for _, l := range loads {
		copied, err := db.CopyFrom(ctx, pgx.Identifier{l.table}, l.columns, pgx.CopyFromRows(l.rows))
		if err != nil {
			return nil, vberrors.NewGenerateError(vberrors.CodeCopyFailed,
				fmt.Sprintf("bulk load of %s failed", l.table), err)
		}
		if copied != l.want {
			return nil, vberrors.NewGenerateError(vberrors.CodeCountMismatch,
				fmt.Sprintf("table %s: copied %d rows, requested %d", l.table, copied, l.want), nil)
		}
	}

	return ds, nil
}

func studentRows(students []Student) [][]any {
	rows := make([][]any, len(students))
	for i, s := range students {
		rows[i] = []any{s.ID, s.FirstName, s.LastName, s.Gender}
	}
	return rows
}

func courseRows(courses []Course) [][]any {
	rows := make([][]any, len(courses))
	for i, c := range courses {
		rows[i] = []any{c.ID, c.Name, c.Credits}
	}
	return rows
}

func classRows(classes []Class) [][]any {
	rows := make([][]any, len(classes))
	for i, c := range classes {
		rows[i] = []any{c.ID, c.CourseID}
	}
	return rows
}

func enrollmentRows(enrollments []Enrollment) [][]any {
	rows := make([][]any, len(enrollments))
	for i, e := range enrollments {
		rows[i] = []any{e.ID, e.ClassID, e.StudentID}
	}
	return rows
}

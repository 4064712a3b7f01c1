package datagen

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestProperty_GeneratedCountsMatchRequested validates that for any supported
// scale, generated row counts match the requested counts exactly.
func TestProperty_GeneratedCountsMatchRequested(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("row counts equal requested counts", prop.ForAll(
		func(students, courses, classes, enrollments int) bool {
			counts := Counts{Students: students, Courses: courses, Classes: classes, Enrollments: enrollments}
			ds, err := New(fmt.Sprintf("prop-%d-%d", students, enrollments), counts).Generate()
			if err != nil {
				return false
			}
			return len(ds.Students) == students &&
				len(ds.Courses) == courses &&
				len(ds.Classes) == classes &&
				len(ds.Enrollments) == enrollments
		},
		gen.IntRange(1, 300),
		gen.IntRange(1, 50),
		gen.IntRange(1, 100),
		gen.IntRange(1, 500),
	))

	properties.TestingRun(t)
}

// TestProperty_ChildrenReferenceGeneratedParents validates that every foreign
// key in a generated dataset resolves against the generated parent rows.
func TestProperty_ChildrenReferenceGeneratedParents(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("every foreign key resolves", prop.ForAll(
		func(courses, classes, enrollments int) bool {
			counts := Counts{Students: 50, Courses: courses, Classes: classes, Enrollments: enrollments}
			ds, err := New(fmt.Sprintf("prop-fk-%d-%d-%d", courses, classes, enrollments), counts).Generate()
			if err != nil {
				return false
			}

			for _, c := range ds.Classes {
				if c.CourseID < 1 || c.CourseID > int64(courses) {
					return false
				}
			}
			for _, e := range ds.Enrollments {
				if e.ClassID < 1 || e.ClassID > int64(classes) {
					return false
				}
				if e.StudentID < 1 || e.StudentID > 50 {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 40),
		gen.IntRange(1, 80),
		gen.IntRange(1, 400),
	))

	properties.TestingRun(t)
}

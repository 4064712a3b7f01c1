package variant

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	vberrors "github.com/viewbench/viewbench/internal/errors"
)

// RowQuerier is the subset of pgxpool.Pool needed for equivalence checks.
type RowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PairCheck records the comparison of one variant against the raw join.
type PairCheck struct {
	Base       string
	Other      string
	BaseRows   int64
	OtherRows  int64
	Diverging  int64
	Equivalent bool
}

// EquivalenceResult aggregates the pairwise checks.
type EquivalenceResult struct {
	Checks     []PairCheck
	Equivalent bool
}

// countSQL wraps a variant SELECT into a row count.
func countSQL(query string) string {
	return fmt.Sprintf("SELECT count(*) FROM (%s) q", query)
}

// diffSQL counts rows present in exactly one of the two result sets.
// EXCEPT ALL in both directions catches duplicate-multiplicity divergence
// that a plain EXCEPT would hide.
func diffSQL(a, b string) string {
	return fmt.Sprintf(
		"SELECT count(*) FROM ((%s) EXCEPT ALL (%s) UNION ALL ((%s) EXCEPT ALL (%s))) diff",
		a, b, b, a)
}

// VerifyEquivalence checks that the view and materialized view return
// row-identical result sets to the raw join over the current data.
func (r *Registry) VerifyEquivalence(ctx context.Context, q RowQuerier) (*EquivalenceResult, error) {
	base, ok := r.ByName(NameRawJoin)
	if !ok {
		return nil, vberrors.NewInternalError("raw join variant missing from registry", nil)
	}

	var baseRows int64
	if err := q.QueryRow(ctx, countSQL(base.Query)).Scan(&baseRows); err != nil {
		return nil, vberrors.NewBenchError(vberrors.CodeQueryFailed,
			fmt.Sprintf("failed to count %s result set", base.Name), err)
	}

	result := &EquivalenceResult{Equivalent: true}

	for _, v := range r.variants {
		if v.Name == base.Name {
			continue
		}

		var otherRows int64
		if err := q.QueryRow(ctx, countSQL(v.Query)).Scan(&otherRows); err != nil {
			return nil, vberrors.NewBenchError(vberrors.CodeQueryFailed,
				fmt.Sprintf("failed to count %s result set", v.Name), err)
		}

		var diverging int64
		if err := q.QueryRow(ctx, diffSQL(base.Query, v.Query)).Scan(&diverging); err != nil {
			return nil, vberrors.NewBenchError(vberrors.CodeQueryFailed,
				fmt.Sprintf("failed to diff %s against %s", v.Name, base.Name), err)
		}

		check := PairCheck{
			Base:       base.Name,
			Other:      v.Name,
			BaseRows:   baseRows,
			OtherRows:  otherRows,
			Diverging:  diverging,
			Equivalent: baseRows == otherRows && diverging == 0,
		}
		if !check.Equivalent {
			result.Equivalent = false
		}
		result.Checks = append(result.Checks, check)
	}

	return result, nil
}

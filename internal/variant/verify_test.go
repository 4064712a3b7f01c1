package variant

import (
	"context"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
)

// fakeRow satisfies pgx.Row for single-int64 scans.
type fakeRow struct {
	val int64
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int64)) = r.val
	return nil
}

// fakeQuerier answers count and diff queries from canned values, dispatching
// on the SQL shape. MatViewName is checked before ViewName since the former
// contains the latter as a prefix.
type fakeQuerier struct {
	raw      int64
	view     int64
	mat      int64
	viewDiff int64
	matDiff  int64
	seen     []string
}

func (f *fakeQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f.seen = append(f.seen, sql)
	isDiff := strings.Contains(sql, "EXCEPT ALL")
	switch {
	case isDiff && strings.Contains(sql, MatViewName):
		return fakeRow{val: f.matDiff}
	case isDiff:
		return fakeRow{val: f.viewDiff}
	case strings.Contains(sql, MatViewName):
		return fakeRow{val: f.mat}
	case strings.Contains(sql, ViewName):
		return fakeRow{val: f.view}
	default:
		return fakeRow{val: f.raw}
	}
}

func TestVerifyEquivalence_AllIdentical(t *testing.T) {
	r := NewRegistry()
	fq := &fakeQuerier{raw: 100000, view: 100000, mat: 100000}

	result, err := r.VerifyEquivalence(context.Background(), fq)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	if !result.Equivalent {
		t.Error("identical result sets should verify as equivalent")
	}
	if len(result.Checks) != 2 {
		t.Fatalf("got %d checks, want 2 (view and matview against raw join)", len(result.Checks))
	}
	for _, c := range result.Checks {
		if c.Base != NameRawJoin {
			t.Errorf("check base = %s, want %s", c.Base, NameRawJoin)
		}
		if !c.Equivalent {
			t.Errorf("check %s should be equivalent", c.Other)
		}
	}
}

func TestVerifyEquivalence_StaleMatview(t *testing.T) {
	r := NewRegistry()
	// Matview snapshot lags the base tables: fewer rows plus diverging rows.
	fq := &fakeQuerier{raw: 100000, view: 100000, mat: 90000, matDiff: 10000}

	result, err := r.VerifyEquivalence(context.Background(), fq)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	if result.Equivalent {
		t.Error("stale matview should fail equivalence")
	}

	var matCheck *PairCheck
	for i := range result.Checks {
		if result.Checks[i].Other == NameMaterializedView {
			matCheck = &result.Checks[i]
		}
	}
	if matCheck == nil {
		t.Fatal("matview check missing")
	}
	if matCheck.Equivalent {
		t.Error("matview check should report divergence")
	}
	if matCheck.OtherRows != 90000 || matCheck.Diverging != 10000 {
		t.Errorf("matview check rows=%d diverging=%d", matCheck.OtherRows, matCheck.Diverging)
	}

	for _, c := range result.Checks {
		if c.Other == NameView && !c.Equivalent {
			t.Error("plain view should remain equivalent when only the matview is stale")
		}
	}
}

func TestDiffSQL_Symmetric(t *testing.T) {
	sql := diffSQL("SELECT a FROM x", "SELECT a FROM y")

	if strings.Count(sql, "EXCEPT ALL") != 2 {
		t.Errorf("diff should use EXCEPT ALL in both directions: %s", sql)
	}
	if !strings.Contains(sql, "UNION ALL") {
		t.Errorf("diff should union both directions: %s", sql)
	}
}

func TestCountSQL(t *testing.T) {
	sql := countSQL("SELECT * FROM t")
	if sql != "SELECT count(*) FROM (SELECT * FROM t) q" {
		t.Errorf("count sql = %q", sql)
	}
}

package bench

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolExecutor executes queries over a pgx connection pool, draining the
// full result set so measured latency includes row transfer.
type PoolExecutor struct {
	pool *pgxpool.Pool
}

// NewPoolExecutor creates a PoolExecutor.
func NewPoolExecutor(pool *pgxpool.Pool) *PoolExecutor {
	return &PoolExecutor{pool: pool}
}

// Execute runs the query and counts rows without decoding them.
func (e *PoolExecutor) Execute(ctx context.Context, query string) (int64, error) {
	rows, err := e.pool.Query(ctx, query)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var n int64
	for rows.Next() {
		n++
	}
	return n, rows.Err()
}

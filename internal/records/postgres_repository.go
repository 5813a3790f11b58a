package records

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PgxPool is the subset of pgxpool.Pool this repo needs.
type PgxPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository reads vaccination history from the relational database.
type PostgresRepository struct {
	pool PgxPool
}

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(pool PgxPool) *PostgresRepository {
	if pool == nil {
		panic("records: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

// CountDoses counts administered doses for child+vaccine.
func (r *PostgresRepository) CountDoses(ctx context.Context, childID, vaccineID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM vaccination_records
		WHERE child_id = $1 AND vaccine_id = $2
	`
	var count int
	if err := r.pool.QueryRow(ctx, query, childID, vaccineID).Scan(&count); err != nil {
		return 0, fmt.Errorf("records: count doses: %w", err)
	}
	return count, nil
}

var _ Repository = (*PostgresRepository)(nil)

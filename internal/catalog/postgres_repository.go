package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of pgxpool.Pool the catalog needs. Satisfied by
// pgxmock in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository reads the vaccine catalog from the relational database.
type PostgresRepository struct {
	pool PgxPool
}

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(pool PgxPool) *PostgresRepository {
	if pool == nil {
		panic("catalog: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

// GetVaccine fetches a vaccine fact sheet by id.
func (r *PostgresRepository) GetVaccine(ctx context.Context, id uuid.UUID) (*Vaccine, error) {
	query := `
		SELECT id, name, required_doses, dose_interval_days, price,
		       avoid_if_chronic, avoid_if_allergy, has_drug_interaction,
		       has_special_warning, COALESCE(for_blood_type, '')
		FROM vaccines
		WHERE id = $1 AND deleted_at IS NULL
	`
	var v Vaccine
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&v.ID,
		&v.Name,
		&v.RequiredDoses,
		&v.DoseIntervalDays,
		&v.Price,
		&v.AvoidIfChronic,
		&v.AvoidIfAllergy,
		&v.HasDrugInteraction,
		&v.HasSpecialWarning,
		&v.ForBloodType,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrVaccineNotFound
		}
		return nil, fmt.Errorf("catalog: select vaccine: %w", err)
	}
	return &v, nil
}

// GetPackage fetches a package and its vaccine ids.
func (r *PostgresRepository) GetPackage(ctx context.Context, id uuid.UUID) (*VaccinePackage, error) {
	query := `
		SELECT id, name, price
		FROM vaccine_packages
		WHERE id = $1 AND deleted_at IS NULL
	`
	var p VaccinePackage
	if err := r.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.Price); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPackageNotFound
		}
		return nil, fmt.Errorf("catalog: select package: %w", err)
	}

	detailQuery := `
		SELECT vaccine_id
		FROM vaccine_package_details
		WHERE package_id = $1
		ORDER BY position
	`
	rows, err := r.pool.Query(ctx, detailQuery, id)
	if err != nil {
		return nil, fmt.Errorf("catalog: select package details: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var vaccineID uuid.UUID
		if err := rows.Scan(&vaccineID); err != nil {
			return nil, fmt.Errorf("catalog: scan package detail: %w", err)
		}
		p.VaccineIDs = append(p.VaccineIDs, vaccineID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: iterate package details: %w", err)
	}
	return &p, nil
}

// ListRules returns every configured interval rule.
func (r *PostgresRepository) ListRules(ctx context.Context) ([]IntervalRule, error) {
	query := `
		SELECT vaccine_a, vaccine_b, can_be_given_together, min_interval_days
		FROM vaccine_interval_rules
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("catalog: select rules: %w", err)
	}
	defer rows.Close()

	var rules []IntervalRule
	for rows.Next() {
		var rule IntervalRule
		if err := rows.Scan(&rule.VaccineA, &rule.VaccineB, &rule.CanBeGivenTogether, &rule.MinIntervalDays); err != nil {
			return nil, fmt.Errorf("catalog: scan rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: iterate rules: %w", err)
	}
	return rules, nil
}

var _ Repository = (*PostgresRepository)(nil)

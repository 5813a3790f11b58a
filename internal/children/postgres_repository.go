package children

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

// PostgresRepository reads child profiles from the relational database.
type PostgresRepository struct {
	pool PgxPool
}

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(pool PgxPool) *PostgresRepository {
	if pool == nil {
		panic("children: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

// GetByID fetches a child profile.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Child, error) {
	query := `
		SELECT id, parent_id, full_name, date_of_birth, COALESCE(blood_type, ''),
		       has_chronic_illnesses, has_allergies, has_recent_medication,
		       has_other_special_condition
		FROM children
		WHERE id = $1 AND deleted_at IS NULL
	`
	var c Child
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.ParentID,
		&c.FullName,
		&c.DateOfBirth,
		&c.BloodType,
		&c.HasChronicIllnesses,
		&c.HasAllergies,
		&c.HasRecentMedication,
		&c.HasOtherSpecialCondition,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrChildNotFound
		}
		return nil, fmt.Errorf("children: select child: %w", err)
	}
	return &c, nil
}

// GetParentContact fetches the parent's notification contact.
func (r *PostgresRepository) GetParentContact(ctx context.Context, parentID uuid.UUID) (*ParentContact, error) {
	query := `
		SELECT id, full_name, COALESCE(email, ''), COALESCE(phone, '')
		FROM parents
		WHERE id = $1 AND deleted_at IS NULL
	`
	var p ParentContact
	if err := r.pool.QueryRow(ctx, query, parentID).Scan(
		&p.ParentID,
		&p.FullName,
		&p.Email,
		&p.Phone,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrParentNotFound
		}
		return nil, fmt.Errorf("children: select parent: %w", err)
	}
	return &p, nil
}

var _ Repository = (*PostgresRepository)(nil)

package appointments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of pgxpool.Pool this repo needs. Satisfied by pgxmock
// in tests.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository persists appointment aggregates.
type PostgresRepository struct {
	pool PgxPool
}

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(pool PgxPool) *PostgresRepository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

// GetByID fetches an appointment with its vaccine lines.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	query := `
		SELECT id, child_id, date, status, created_at
		FROM appointments
		WHERE id = $1 AND deleted_at IS NULL
	`
	var appt Appointment
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&appt.ID,
		&appt.ChildID,
		&appt.Date,
		&appt.Status,
		&appt.CreatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("appointments: select appointment: %w", err)
	}
	lines, err := r.loadLines(ctx, []uuid.UUID{appt.ID})
	if err != nil {
		return nil, err
	}
	appt.Lines = lines[appt.ID]
	return &appt, nil
}

// ListActiveByChild returns the child's non-cancelled, non-deleted
// appointments matching the filter, ordered by date ascending.
func (r *PostgresRepository) ListActiveByChild(ctx context.Context, childID uuid.UUID, filter ListFilter) ([]*Appointment, error) {
	query := `
		SELECT DISTINCT a.id, a.child_id, a.date, a.status, a.created_at
		FROM appointments a
		LEFT JOIN appointment_vaccines av ON av.appointment_id = a.id
		WHERE a.child_id = $1
		  AND a.status <> $2
		  AND a.deleted_at IS NULL
		  AND ($3::uuid IS NULL OR av.vaccine_id = $3)
		  AND ($4::timestamptz IS NULL OR a.date >= $4)
		  AND ($5::timestamptz IS NULL OR a.date <= $5)
		ORDER BY a.date ASC
	`
	rows, err := r.pool.Query(ctx, query, childID, StatusCancelled, filter.VaccineID, filter.From, filter.To)
	if err != nil {
		return nil, fmt.Errorf("appointments: select by child: %w", err)
	}
	defer rows.Close()

	var out []*Appointment
	var ids []uuid.UUID
	for rows.Next() {
		var appt Appointment
		if err := rows.Scan(&appt.ID, &appt.ChildID, &appt.Date, &appt.Status, &appt.CreatedAt); err != nil {
			return nil, fmt.Errorf("appointments: scan appointment: %w", err)
		}
		out = append(out, &appt)
		ids = append(ids, appt.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: iterate appointments: %w", err)
	}
	if len(out) == 0 {
		return nil, nil
	}

	lines, err := r.loadLines(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, appt := range out {
		appt.Lines = lines[appt.ID]
	}
	return out, nil
}

// LatestActiveBefore returns the child's most recent non-cancelled appointment
// dated strictly before the given time, or nil when none exists.
func (r *PostgresRepository) LatestActiveBefore(ctx context.Context, childID uuid.UUID, before time.Time, excludeID uuid.UUID) (*Appointment, error) {
	query := `
		SELECT id, child_id, date, status, created_at
		FROM appointments
		WHERE child_id = $1
		  AND id <> $2
		  AND date < $3
		  AND status <> $4
		  AND deleted_at IS NULL
		ORDER BY date DESC
		LIMIT 1
	`
	var appt Appointment
	if err := r.pool.QueryRow(ctx, query, childID, excludeID, before, StatusCancelled).Scan(
		&appt.ID,
		&appt.ChildID,
		&appt.Date,
		&appt.Status,
		&appt.CreatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("appointments: select latest before: %w", err)
	}
	return &appt, nil
}

// CreateSeries inserts every appointment and its lines in one transaction.
// A failure anywhere rolls back the whole series.
func (r *PostgresRepository) CreateSeries(ctx context.Context, series []*Appointment) error {
	if len(series) == 0 {
		return ErrEmptySeries
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("appointments: begin series tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const insertAppt = `
		INSERT INTO appointments (id, child_id, date, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	const insertLine = `
		INSERT INTO appointment_vaccines (id, appointment_id, vaccine_id, dose_number, price)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, appt := range series {
		if _, err := tx.Exec(ctx, insertAppt, appt.ID, appt.ChildID, appt.Date, appt.Status, appt.CreatedAt); err != nil {
			return fmt.Errorf("appointments: insert appointment: %w", err)
		}
		for _, line := range appt.Lines {
			if _, err := tx.Exec(ctx, insertLine, line.ID, line.AppointmentID, line.VaccineID, line.DoseNumber, line.Price); err != nil {
				return fmt.Errorf("appointments: insert vaccine line: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("appointments: commit series tx: %w", err)
	}
	return nil
}

// Reschedule moves an appointment to a new date and marks it rescheduled.
func (r *PostgresRepository) Reschedule(ctx context.Context, id uuid.UUID, newDate time.Time) error {
	query := `
		UPDATE appointments
		SET date = $2, status = $3, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`
	tag, err := r.pool.Exec(ctx, query, id, newDate, StatusRescheduled)
	if err != nil {
		return fmt.Errorf("appointments: reschedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PostgresRepository) loadLines(ctx context.Context, apptIDs []uuid.UUID) (map[uuid.UUID][]VaccineLine, error) {
	query := `
		SELECT id, appointment_id, vaccine_id, dose_number, price
		FROM appointment_vaccines
		WHERE appointment_id = ANY($1)
		ORDER BY dose_number
	`
	rows, err := r.pool.Query(ctx, query, apptIDs)
	if err != nil {
		return nil, fmt.Errorf("appointments: select vaccine lines: %w", err)
	}
	defer rows.Close()

	lines := make(map[uuid.UUID][]VaccineLine, len(apptIDs))
	for rows.Next() {
		var line VaccineLine
		if err := rows.Scan(&line.ID, &line.AppointmentID, &line.VaccineID, &line.DoseNumber, &line.Price); err != nil {
			return nil, fmt.Errorf("appointments: scan vaccine line: %w", err)
		}
		lines[line.AppointmentID] = append(lines[line.AppointmentID], line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: iterate vaccine lines: %w", err)
	}
	return lines, nil
}

var _ Repository = (*PostgresRepository)(nil)

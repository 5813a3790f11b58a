package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrCheckoutNotFound is returned when a checkout intent does not exist
var ErrCheckoutNotFound = errors.New("checkout not found")

// Checkout statuses
const (
	StatusPending = "pending"
	StatusPaid    = "paid"
	StatusFailed  = "failed"
)

// CheckoutIntent is a persisted deposit checkout awaiting gateway completion.
type CheckoutIntent struct {
	ID          uuid.UUID
	ChildID     uuid.UUID
	AmountVND   int64
	ProviderRef string
	Status      string
	CreatedAt   time.Time
	PaidAt      *time.Time
}

// Repository persists checkout intents.
type Repository interface {
	CreateIntent(ctx context.Context, intent *CheckoutIntent) error
	GetIntent(ctx context.Context, id uuid.UUID) (*CheckoutIntent, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
}

// PgxPool is the subset of pgxpool.Pool used by the repository.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores checkout intents in Postgres.
type PostgresRepository struct {
	db PgxPool
}

// NewPostgresRepository creates a payments repository.
func NewPostgresRepository(db PgxPool) *PostgresRepository {
	if db == nil {
		panic("payments: database pool cannot be nil")
	}
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateIntent(ctx context.Context, intent *CheckoutIntent) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO payment_checkouts (id, child_id, amount_vnd, provider_ref, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		intent.ID, intent.ChildID, intent.AmountVND, intent.ProviderRef, intent.Status, intent.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("payments: insert checkout: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetIntent(ctx context.Context, id uuid.UUID) (*CheckoutIntent, error) {
	var intent CheckoutIntent
	err := r.db.QueryRow(ctx, `
		SELECT id, child_id, amount_vnd, provider_ref, status, created_at, paid_at
		FROM payment_checkouts
		WHERE id = $1`, id,
	).Scan(&intent.ID, &intent.ChildID, &intent.AmountVND, &intent.ProviderRef, &intent.Status, &intent.CreatedAt, &intent.PaidAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCheckoutNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("payments: load checkout: %w", err)
	}
	return &intent, nil
}

func (r *PostgresRepository) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE payment_checkouts
		SET status = $2,
		    paid_at = CASE WHEN $2 = 'paid' THEN NOW() ELSE paid_at END
		WHERE id = $1`, id, status,
	)
	if err != nil {
		return fmt.Errorf("payments: update checkout status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCheckoutNotFound
	}
	return nil
}

// InMemoryRepository is a Repository backed by a map, used in tests.
type InMemoryRepository struct {
	intents map[uuid.UUID]*CheckoutIntent
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{intents: make(map[uuid.UUID]*CheckoutIntent)}
}

func (r *InMemoryRepository) CreateIntent(ctx context.Context, intent *CheckoutIntent) error {
	copied := *intent
	r.intents[intent.ID] = &copied
	return nil
}

func (r *InMemoryRepository) GetIntent(ctx context.Context, id uuid.UUID) (*CheckoutIntent, error) {
	intent, ok := r.intents[id]
	if !ok {
		return nil, ErrCheckoutNotFound
	}
	copied := *intent
	return &copied, nil
}

func (r *InMemoryRepository) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	intent, ok := r.intents[id]
	if !ok {
		return ErrCheckoutNotFound
	}
	intent.Status = status
	if status == StatusPaid {
		now := time.Now().UTC()
		intent.PaidAt = &now
	}
	return nil
}

var _ Repository = (*PostgresRepository)(nil)
var _ Repository = (*InMemoryRepository)(nil)

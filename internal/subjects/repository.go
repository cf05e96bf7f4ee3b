package subjects

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrNotFound  = errors.New("subject not found")
	ErrDuplicate = errors.New("a subject with this email or phone already exists")
)

// Repository persists subjects.
type Repository interface {
	Create(ctx context.Context, subject *Subject) error
	GetByID(ctx context.Context, id uuid.UUID) (*Subject, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

// NewRepository creates a Postgres-backed subject repository.
func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, subject *Subject) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO subjects (id, full_name, email, phone, role, password_hash, created_at)
		VALUES (:id, :full_name, :email, :phone, :role, :password_hash, :created_at)`,
		subject)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("creating subject: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Subject, error) {
	var subject Subject
	err := r.db.GetContext(ctx, &subject, "SELECT * FROM subjects WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading subject: %w", err)
	}
	return &subject, nil
}

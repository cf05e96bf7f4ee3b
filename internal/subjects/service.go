package subjects

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Service owns subject registration and lookup.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*Subject, error)
	Get(ctx context.Context, id uuid.UUID) (*Subject, error)
}

type subjectService struct {
	repo Repository
}

// NewService creates a subject service.
func NewService(repo Repository) Service {
	return &subjectService{repo: repo}
}

func (s *subjectService) Register(ctx context.Context, req RegisterRequest) (*Subject, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	subject := &Subject{
		ID:           uuid.New(),
		FullName:     strings.TrimSpace(req.FullName),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:        strings.TrimSpace(req.Phone),
		Role:         RoleStudent,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, subject); err != nil {
		return nil, err
	}
	return subject, nil
}

func (s *subjectService) Get(ctx context.Context, id uuid.UUID) (*Subject, error) {
	return s.repo.GetByID(ctx, id)
}

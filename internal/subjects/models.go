package subjects

import (
	"time"

	"github.com/google/uuid"
)

// Role of a portal principal. Students are the subjects of document
// verification; other roles consume the aggregate statuses.
type Role string

const (
	RoleStudent    Role = "student"
	RoleConsultant Role = "consultant"
	RoleAdmin      Role = "admin"
)

// Subject is a registered principal. Created at registration and never
// deleted by the verification core.
type Subject struct {
	ID           uuid.UUID `db:"id" json:"id"`
	FullName     string    `db:"full_name" json:"full_name"`
	Email        string    `db:"email" json:"email"`
	Phone        string    `db:"phone" json:"phone"`
	Role         Role      `db:"role" json:"role"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	FullName string `json:"full_name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

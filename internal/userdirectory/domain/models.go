// Package domain defines the user directory the delegated-role manager
// searches and provisions accounts in.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Role is the platform role carried by a user account.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

type User struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	Email        string       `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	Name         string       `gorm:"type:varchar(255)" json:"name"`
	Role         Role         `gorm:"type:varchar(16);not null" json:"role"`
	PasswordHash string       `gorm:"type:varchar(255);not null" json:"-"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

type SearchRequest struct {
	Query string `form:"q" json:"q"`
	Limit int    `form:"limit" json:"limit"`
}

type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	Role     Role   `json:"role"`
}

var (
	ErrInvalidEmail    = errors.New("invalid_email")
	ErrInvalidPassword = errors.New("invalid_password")
	ErrEmailTaken      = errors.New("email_taken")
	ErrUserNotFound    = errors.New("user_not_found")
)

type Repository interface {
	FindByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*User, error)
	FindByEmail(ctx context.Context, tx *gorm.DB, email string) (*User, error)
	SearchByEmailPrefix(ctx context.Context, tx *gorm.DB, prefix string, limit int) ([]User, error)
	Insert(ctx context.Context, tx *gorm.DB, user *User) error
}

type Service interface {
	// Search returns users whose email starts with the query prefix.
	Search(ctx context.Context, req SearchRequest) ([]User, error)

	// Create provisions a new account with a hashed password.
	Create(ctx context.Context, req CreateUserRequest) (*User, error)

	// GetByID resolves a user or returns ErrUserNotFound.
	GetByID(ctx context.Context, id snowflake.ID) (*User, error)
}

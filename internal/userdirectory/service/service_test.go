package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/tokomart/tokomart/internal/clock"
	"github.com/tokomart/tokomart/internal/userdirectory/domain"
	"github.com/tokomart/tokomart/internal/userdirectory/repository"
)

func setupUserTest(t *testing.T, name string) (*gorm.DB, *Service, *snowflake.Node) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	assert.NoError(t, err)

	db.Exec(`CREATE TABLE IF NOT EXISTS users (
		id BIGINT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT,
		role TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`)

	node, err := snowflake.NewNode(1)
	assert.NoError(t, err)

	svc := &Service{
		db:    db,
		log:   zaptest.NewLogger(t),
		genID: node,
		clock: clock.NewFakeClock(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)),
		repo:  repository.Provide(),
	}
	return db, svc, node
}

func TestCreate(t *testing.T) {
	_, svc, _ := setupUserTest(t, "users_create")
	ctx := context.Background()

	t.Run("creates a manager account with a hashed password", func(t *testing.T) {
		user, err := svc.Create(ctx, domain.CreateUserRequest{
			Email:    "  Manager@Example.COM ",
			Name:     " Dana ",
			Password: "super-secret",
		})
		assert.NoError(t, err)
		assert.Equal(t, "manager@example.com", user.Email)
		assert.Equal(t, "Dana", user.Name)
		assert.Equal(t, domain.RoleManager, user.Role)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("super-secret")))
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		_, err := svc.Create(ctx, domain.CreateUserRequest{
			Email:    "manager@example.com",
			Name:     "Other",
			Password: "super-secret",
		})
		assert.ErrorIs(t, err, domain.ErrEmailTaken)
	})

	t.Run("rejects malformed email", func(t *testing.T) {
		_, err := svc.Create(ctx, domain.CreateUserRequest{
			Email:    "not-an-email",
			Name:     "Nope",
			Password: "super-secret",
		})
		assert.ErrorIs(t, err, domain.ErrInvalidEmail)
	})

	t.Run("rejects short password", func(t *testing.T) {
		_, err := svc.Create(ctx, domain.CreateUserRequest{
			Email:    "short@example.com",
			Name:     "Short",
			Password: "short",
		})
		assert.ErrorIs(t, err, domain.ErrInvalidPassword)
	})

	t.Run("honors an explicit role", func(t *testing.T) {
		user, err := svc.Create(ctx, domain.CreateUserRequest{
			Email:    "admin@example.com",
			Name:     "Admin",
			Password: "super-secret",
			Role:     domain.RoleAdmin,
		})
		assert.NoError(t, err)
		assert.Equal(t, domain.RoleAdmin, user.Role)
	})
}

func TestSearch(t *testing.T) {
	_, svc, _ := setupUserTest(t, "users_search")
	ctx := context.Background()

	emails := []string{"alice@example.com", "alicia@example.com", "bob@example.com"}
	for _, email := range emails {
		_, err := svc.Create(ctx, domain.CreateUserRequest{
			Email:    email,
			Name:     "User",
			Password: "super-secret",
		})
		assert.NoError(t, err)
	}

	t.Run("matches by email prefix", func(t *testing.T) {
		users, err := svc.Search(ctx, domain.SearchRequest{Query: "ali"})
		assert.NoError(t, err)
		assert.Len(t, users, 2)
	})

	t.Run("blank query returns nothing", func(t *testing.T) {
		users, err := svc.Search(ctx, domain.SearchRequest{Query: "   "})
		assert.NoError(t, err)
		assert.Empty(t, users)
	})

	t.Run("caps the limit", func(t *testing.T) {
		users, err := svc.Search(ctx, domain.SearchRequest{Query: "ali", Limit: 1})
		assert.NoError(t, err)
		assert.Len(t, users, 1)
	})
}

func TestGetByID(t *testing.T) {
	_, svc, node := setupUserTest(t, "users_get")
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateUserRequest{
		Email:    "lookup@example.com",
		Name:     "Lookup",
		Password: "super-secret",
	})
	assert.NoError(t, err)

	t.Run("finds an existing user", func(t *testing.T) {
		user, err := svc.GetByID(ctx, created.ID)
		assert.NoError(t, err)
		assert.Equal(t, created.Email, user.Email)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := svc.GetByID(ctx, node.Generate())
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})
}

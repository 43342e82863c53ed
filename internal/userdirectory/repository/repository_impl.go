package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/tokomart/tokomart/internal/userdirectory/domain"
)

type repository struct{}

// Provide constructs the gorm-backed user repository.
func Provide() domain.Repository {
	return &repository{}
}

func (r *repository) FindByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.User, error) {
	var user domain.User
	err := tx.WithContext(ctx).
		Where("id = ?", id).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindByEmail(ctx context.Context, tx *gorm.DB, email string) (*domain.User, error) {
	var user domain.User
	err := tx.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) SearchByEmailPrefix(ctx context.Context, tx *gorm.DB, prefix string, limit int) ([]domain.User, error) {
	var users []domain.User
	pattern := strings.ToLower(strings.TrimSpace(prefix)) + "%"
	err := tx.WithContext(ctx).
		Where("LOWER(email) LIKE ?", pattern).
		Order("email ASC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *repository) Insert(ctx context.Context, tx *gorm.DB, user *domain.User) error {
	return tx.WithContext(ctx).Create(user).Error
}

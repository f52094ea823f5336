package postgres

import (
	"context"
	"errors"

	"github.com/yoockh/yoobuddy/internal/models"
	"github.com/yoockh/yoobuddy/internal/utils"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, u *models.UserDetail) error
	GetByUsername(ctx context.Context, username string) (*models.UserDetail, error)
}

type userRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, u *models.UserDetail) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*models.UserDetail, error) {
	var u models.UserDetail
	err := r.db.WithContext(ctx).
		Where("username = ?", username).
		Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &u, err
}

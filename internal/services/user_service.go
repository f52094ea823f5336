package services

import (
	"context"
	"errors"
	"time"

	"github.com/yoockh/yoobuddy/internal/models"
	pgrepo "github.com/yoockh/yoobuddy/internal/repositories/postgres"
	"github.com/yoockh/yoobuddy/internal/utils"
)

type UserService interface {
	Register(ctx context.Context, username, name, password string) (*models.UserDetail, error)
	Authenticate(ctx context.Context, username, password string) (*models.UserDetail, error)
	Get(ctx context.Context, username string) (*models.UserDetail, error)
}

type userService struct {
	users pgrepo.UserRepository
}

func NewUserService(users pgrepo.UserRepository) UserService {
	return &userService{users: users}
}

func (s *userService) Register(ctx context.Context, username, name, password string) (*models.UserDetail, error) {
	const op = "UserService.Register"

	if username == "" || password == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "username and password are required", nil)
	}
	if name == "" {
		name = username
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, utils.E(utils.CodeConflict, op, "username already taken", nil)
	} else if !errors.Is(err, utils.ErrNotFound) {
		return nil, utils.E(utils.CodeInternal, op, "failed to check username", err)
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to hash password", err)
	}

	u := &models.UserDetail{
		Username:     username,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create user", err)
	}
	return u, nil
}

func (s *userService) Authenticate(ctx context.Context, username, password string) (*models.UserDetail, error) {
	const op = "UserService.Authenticate"

	if username == "" || password == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "username and password are required", nil)
	}

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeUnauthorized, op, "invalid credentials", nil)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to look up user", err)
	}

	if err := utils.CheckPassword(u.PasswordHash, password); err != nil {
		return nil, utils.E(utils.CodeUnauthorized, op, "invalid credentials", nil)
	}
	return u, nil
}

func (s *userService) Get(ctx context.Context, username string) (*models.UserDetail, error) {
	const op = "UserService.Get"

	if username == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "username is required", nil)
	}

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "user not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get user", err)
	}
	return u, nil
}

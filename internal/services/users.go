package services

import (
	"context"
	"errors"

	"digitalstore/internal/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

func (s *Service) Register(ctx context.Context, name, email, password string) (models.User, error) {
	if name == "" || email == "" || len(password) < 8 {
		return models.User{}, ErrInvalidRequest
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}
	now := s.now()
	user := models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleFree,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateRequest) {
			return models.User{}, ErrEmailAlreadyExists
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (models.User, error) {
	if email == "" || password == "" {
		return models.User{}, ErrInvalidCredentials
	}
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (models.User, error) {
	return s.users.GetUserByID(ctx, id)
}

func (s *Service) UpdateUserRole(ctx context.Context, id, role string) error {
	switch role {
	case models.RoleFree, models.RoleCustomer, models.RoleAdmin:
	default:
		return ErrInvalidRequest
	}
	return s.users.UpdateUserRole(ctx, id, role)
}

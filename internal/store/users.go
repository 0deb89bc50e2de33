package store

import (
	"context"

	"digitalstore/internal/models"
	"digitalstore/internal/services"
)

func (s *Store) CreateUser(ctx context.Context, user models.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, name, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Role, user.CreatedAt, user.UpdatedAt)
	if isUniqueViolation(err) {
		return services.ErrDuplicateRequest
	}
	return err
}

func (s *Store) GetUserByID(ctx context.Context, id string) (models.User, error) {
	var user models.User
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, email, password_hash, role, created_at, updated_at
		FROM users WHERE id = $1`, id,
	).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	return user, notFound(err)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, email, password_hash, role, created_at, updated_at
		FROM users WHERE email = $1`, email,
	).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	return user, notFound(err)
}

func (s *Store) UpdateUserRole(ctx context.Context, id, role string) error {
	ct, err := s.pool.Exec(ctx, `
		UPDATE users SET role = $1, updated_at = NOW()
		WHERE id = $2`, role, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return services.ErrNotFound
	}
	return nil
}

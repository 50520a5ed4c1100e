package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/dynasty-membership/internal/models"
)

// GetUser returns the account with the given id.
func (s *Storage) GetUser(ctx context.Context, id string) (*models.User, error) {
	const op = "storage.GetUser"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	u := &models.User{}
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, name, email, role, is_enabled FROM users WHERE id = $1`,
		id).Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.IsEnabled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

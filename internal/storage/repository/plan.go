package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/dynasty-membership/internal/models"
)

const planColumns = `id, name, description, duration_days, original_price, discount_price,
	discount_percent, savings, benefits, is_best_value, is_active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (*models.MembershipPlan, error) {
	var (
		p        models.MembershipPlan
		benefits []byte
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.DurationDays, &p.OriginalPrice,
		&p.DiscountPrice, &p.DiscountPercent, &p.Savings, &benefits, &p.IsBestValue,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Benefits = []string{}
	if len(benefits) > 0 {
		if err := json.Unmarshal(benefits, &p.Benefits); err != nil {
			return nil, fmt.Errorf("decode benefits: %w", err)
		}
	}
	return &p, nil
}

// CreatePlan inserts a plan and fills in its timestamps.
func (s *Storage) CreatePlan(ctx context.Context, plan *models.MembershipPlan) error {
	const op = "storage.CreatePlan"
	if err := checkContext(ctx, op); err != nil {
		return err
	}

	benefits, err := json.Marshal(plan.Benefits)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	query := `INSERT INTO membership_plans (id, name, description, duration_days, original_price,
				  discount_price, discount_percent, savings, benefits, is_best_value, is_active)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			  RETURNING created_at, updated_at`
	if err = s.DB.QueryRowContext(ctx, query,
		plan.ID, plan.Name, plan.Description, plan.DurationDays, plan.OriginalPrice,
		plan.DiscountPrice, plan.DiscountPercent, plan.Savings, benefits, plan.IsBestValue,
		plan.IsActive).Scan(&plan.CreatedAt, &plan.UpdatedAt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdatePlan replaces the mutable fields of a plan.
func (s *Storage) UpdatePlan(ctx context.Context, plan *models.MembershipPlan) error {
	const op = "storage.UpdatePlan"
	if err := checkContext(ctx, op); err != nil {
		return err
	}

	benefits, err := json.Marshal(plan.Benefits)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	query := `UPDATE membership_plans
			  SET name = $2, description = $3, duration_days = $4, original_price = $5,
			      discount_price = $6, discount_percent = $7, savings = $8, benefits = $9,
			      is_best_value = $10, is_active = $11, updated_at = NOW()
			  WHERE id = $1
			  RETURNING created_at, updated_at`
	err = s.DB.QueryRowContext(ctx, query,
		plan.ID, plan.Name, plan.Description, plan.DurationDays, plan.OriginalPrice,
		plan.DiscountPrice, plan.DiscountPercent, plan.Savings, benefits, plan.IsBestValue,
		plan.IsActive).Scan(&plan.CreatedAt, &plan.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetPlan returns a plan regardless of its active flag.
func (s *Storage) GetPlan(ctx context.Context, id string) (*models.MembershipPlan, error) {
	const op = "storage.GetPlan"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + planColumns + ` FROM membership_plans WHERE id = $1`
	plan, err := scanPlan(s.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return plan, nil
}

// ListActivePlans returns active plans, longest first.
func (s *Storage) ListActivePlans(ctx context.Context) ([]models.MembershipPlan, error) {
	const op = "storage.ListActivePlans"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + planColumns + `
			  FROM membership_plans
			  WHERE is_active = TRUE
			  ORDER BY duration_days DESC, created_at`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := []models.MembershipPlan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

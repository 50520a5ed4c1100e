// Package plan is the membership plan catalog: listing, checkout pricing and
// admin maintenance, with the active list cached in Redis.
package plan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/dynasty-membership/internal/lib/sl"
	"github.com/magabrotheeeer/dynasty-membership/internal/models"
)

// CacheKeyActive holds the cached list of active plans.
const CacheKeyActive = "plans:active"

// Repository is the plan storage.
type Repository interface {
	CreatePlan(ctx context.Context, plan *models.MembershipPlan) error
	UpdatePlan(ctx context.Context, plan *models.MembershipPlan) error
	GetPlan(ctx context.Context, id string) (*models.MembershipPlan, error)
	ListActivePlans(ctx context.Context) ([]models.MembershipPlan, error)
}

// Cache stores JSON values with a TTL.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// Service implements the catalog operations.
type Service struct {
	repo  Repository
	cache Cache
	ttl   time.Duration
	log   *slog.Logger
}

// New creates a Service. A nil cache disables caching.
func New(repo Repository, cache Cache, ttl time.Duration, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
		log:   log,
	}
}

// ListActive returns active plans, longest duration first.
func (s *Service) ListActive(ctx context.Context) ([]models.MembershipPlan, error) {
	const op = "services.plan.ListActive"
	log := s.log.With(slog.String("op", op))

	if s.cache != nil {
		var cached []models.MembershipPlan
		found, err := s.cache.Get(ctx, CacheKeyActive, &cached)
		if err != nil {
			log.Warn("failed to read plan cache", sl.Err(err))
		} else if found {
			return cached, nil
		}
	}

	plans, err := s.repo.ListActivePlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for i := range plans {
		withDerived(&plans[i])
	}

	if s.cache != nil {
		if err = s.cache.Set(ctx, CacheKeyActive, plans, s.ttl); err != nil {
			log.Warn("failed to cache plans", sl.Err(err))
		}
	}
	return plans, nil
}

// Details returns an active plan with its GST breakdown.
func (s *Service) Details(ctx context.Context, id string) (*models.PlanDetails, error) {
	const op = "services.plan.Details"

	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &models.PlanDetails{Plan: *p, Pricing: models.PriceFor(p)}, nil
}

// Get returns an active plan. Inactive plans are reported as not found.
func (s *Service) Get(ctx context.Context, id string) (*models.MembershipPlan, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: plan id %q", models.ErrNotFound, id)
	}
	p, err := s.repo.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, fmt.Errorf("%w: plan %s is inactive", models.ErrNotFound, id)
	}
	withDerived(p)
	return p, nil
}

// Create adds a plan and drops the cached list.
func (s *Service) Create(ctx context.Context, req models.DummyPlan) (*models.MembershipPlan, error) {
	const op = "services.plan.Create"

	p := req.ToPlan()
	if err := checkPlan(&p); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p.ID = uuid.NewString()
	if err := s.repo.CreatePlan(ctx, &p); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, op)

	s.log.Info("plan created", slog.String("op", op), slog.String("plan_id", p.ID), slog.String("name", p.Name))
	withDerived(&p)
	return &p, nil
}

// Update replaces a plan and drops the cached list.
func (s *Service) Update(ctx context.Context, id string, req models.DummyPlan) (*models.MembershipPlan, error) {
	const op = "services.plan.Update"

	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%s: %w: plan id %q", op, models.ErrNotFound, id)
	}
	p := req.ToPlan()
	if err := checkPlan(&p); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p.ID = id
	if err := s.repo.UpdatePlan(ctx, &p); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, op)

	s.log.Info("plan updated", slog.String("op", op), slog.String("plan_id", p.ID))
	withDerived(&p)
	return &p, nil
}

func (s *Service) invalidate(ctx context.Context, op string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, CacheKeyActive); err != nil {
		s.log.Warn("failed to invalidate plan cache", slog.String("op", op), sl.Err(err))
	}
}

func checkPlan(p *models.MembershipPlan) error {
	switch {
	case p.Name == "":
		return fmt.Errorf("%w: name is required", models.ErrValidation)
	case p.DurationDays <= 0:
		return fmt.Errorf("%w: duration_days must be positive", models.ErrValidation)
	case p.OriginalPrice > models.MaxPlanPrice:
		return fmt.Errorf("%w: original_price must not exceed %d", models.ErrValidation, models.MaxPlanPrice)
	case p.DiscountPrice <= 0 || p.DiscountPrice > p.OriginalPrice:
		return fmt.Errorf("%w: discount_price must be in (0, original_price]", models.ErrValidation)
	}
	return nil
}

func withDerived(p *models.MembershipPlan) {
	p.DiscountPercent = p.EffectiveDiscountPercent()
	p.Savings = p.SavingsText()
	if p.Benefits == nil {
		p.Benefits = []string{}
	}
}

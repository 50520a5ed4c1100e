// Package scheduler runs the periodic membership jobs: failing Processing
// subscriptions that can no longer complete and queuing expiry reminders.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/dynasty-membership/internal/config"
	"github.com/magabrotheeeer/dynasty-membership/internal/lib/sl"
	"github.com/magabrotheeeer/dynasty-membership/internal/metrics"
	"github.com/magabrotheeeer/dynasty-membership/internal/models"
	"github.com/magabrotheeeer/dynasty-membership/internal/rabbitmq"
)

// StaleReason is recorded on subscriptions failed by the sweep.
const StaleReason = "payment not completed in time"

// SubscriptionRepository is the storage used by the jobs.
type SubscriptionRepository interface {
	FailStaleProcessing(ctx context.Context, olderThan time.Time, reason string) ([]models.UserSubscription, error)
	FindExpiringBetween(ctx context.Context, from, to time.Time) ([]models.ExpiringMembership, error)
}

// Publisher emits reminder events.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// SchedulerService owns the periodic jobs.
type SchedulerService struct {
	repo      SubscriptionRepository
	publisher Publisher
	cfg       config.Scheduler
	metrics   *metrics.Metrics
	log       *slog.Logger
	now       func() time.Time
}

// NewSchedulerService creates a SchedulerService.
func NewSchedulerService(repo SubscriptionRepository, publisher Publisher, cfg config.Scheduler,
	m *metrics.Metrics, log *slog.Logger) *SchedulerService {
	if m == nil {
		m = metrics.NewNop()
	}
	return &SchedulerService{
		repo:      repo,
		publisher: publisher,
		cfg:       cfg,
		metrics:   m,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run executes both jobs once and then on their intervals until ctx is done.
func (s *SchedulerService) Run(ctx context.Context) {
	s.runSweep(ctx)
	s.runReminders(ctx)

	sweep := time.NewTicker(s.cfg.SweepInterval)
	defer sweep.Stop()
	reminders := time.NewTicker(s.cfg.ReminderInterval)
	defer reminders.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sweep.C:
			s.runSweep(ctx)
		case <-reminders.C:
			s.runReminders(ctx)
		}
	}
}

func (s *SchedulerService) runSweep(ctx context.Context) {
	if _, err := s.SweepStale(ctx); err != nil {
		s.log.Error("stale subscription sweep failed", sl.Err(err))
	}
}

func (s *SchedulerService) runReminders(ctx context.Context) {
	if _, err := s.SendExpiryReminders(ctx); err != nil {
		s.log.Error("expiry reminders failed", sl.Err(err))
	}
}

// SweepStale fails Processing subscriptions older than the configured age that
// have no way to complete, and returns how many were failed.
func (s *SchedulerService) SweepStale(ctx context.Context) (int, error) {
	const op = "services.scheduler.SweepStale"
	log := s.log.With(slog.String("op", op))

	cutoff := s.now().Add(-s.cfg.StaleAfter)
	failed, err := s.repo.FailStaleProcessing(ctx, cutoff, StaleReason)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	s.metrics.SweptSubs.Add(float64(len(failed)))
	if len(failed) == 0 {
		log.Debug("no stale subscriptions")
		return 0, nil
	}
	for _, sub := range failed {
		log.Info("subscription failed by sweep", slog.String("subscription_id", sub.ID),
			slog.String("user_id", sub.UserID), slog.String("method", string(sub.PaymentMethod)))
	}
	return len(failed), nil
}

// SendExpiryReminders publishes a reminder for every Active membership ending tomorrow (UTC)
// and returns how many were published.
func (s *SchedulerService) SendExpiryReminders(ctx context.Context) (int, error) {
	const op = "services.scheduler.SendExpiryReminders"
	log := s.log.With(slog.String("op", op))

	from, to := TomorrowWindow(s.now())
	expiring, err := s.repo.FindExpiringBetween(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if len(expiring) == 0 {
		log.Info("no expiring memberships found")
		return 0, nil
	}
	log.Info("found expiring memberships", slog.Int("count", len(expiring)))

	sent := 0
	for _, m := range expiring {
		if err = s.publisher.Publish(ctx, rabbitmq.RoutingMembershipExpiring, m); err != nil {
			log.Error("failed to publish reminder", slog.String("subscription_id", m.SubscriptionID), sl.Err(err))
			continue
		}
		sent++
	}
	return sent, nil
}

// TomorrowWindow returns [start of tomorrow, start of the day after) in UTC.
func TomorrowWindow(now time.Time) (time.Time, time.Time) {
	y, m, d := now.UTC().Date()
	start := time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

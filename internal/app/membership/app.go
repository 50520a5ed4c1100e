package membership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/streadway/amqp"

	// Registers the generated Swagger document served under /docs.
	_ "github.com/magabrotheeeer/dynasty-membership/docs"
	"github.com/magabrotheeeer/dynasty-membership/internal/cache"
	"github.com/magabrotheeeer/dynasty-membership/internal/config"
	"github.com/magabrotheeeer/dynasty-membership/internal/lib/jwt"
	"github.com/magabrotheeeer/dynasty-membership/internal/lib/sl"
	"github.com/magabrotheeeer/dynasty-membership/internal/metrics"
	"github.com/magabrotheeeer/dynasty-membership/internal/migrations"
	"github.com/magabrotheeeer/dynasty-membership/internal/paymentprovider"
	"github.com/magabrotheeeer/dynasty-membership/internal/rabbitmq"
	"github.com/magabrotheeeer/dynasty-membership/internal/services/plan"
	"github.com/magabrotheeeer/dynasty-membership/internal/services/purchase"
	"github.com/magabrotheeeer/dynasty-membership/internal/services/reconciler"
	"github.com/magabrotheeeer/dynasty-membership/internal/services/wallet"
	"github.com/magabrotheeeer/dynasty-membership/internal/storage/repository"
)

// App is the membership HTTP API.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
}

type publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// New connects storage, cache and broker, applies migrations and builds the router.
// Redis and RabbitMQ are optional: without them plans are read uncached and events are not published.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.membership.New"

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	a := &App{logger: logger, db: db}

	var planCache plan.Cache
	if cfg.AddressRedis != "" {
		a.cache, err = cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			logger.Warn("redis unavailable, plan cache disabled", sl.Err(err))
		} else {
			planCache = a.cache
		}
	}

	var events publisher
	if cfg.RabbitMQURL != "" {
		if err = a.connectBroker(cfg.RabbitMQ); err != nil {
			logger.Warn("rabbitmq unavailable, events will not be published", sl.Err(err))
		} else {
			events = rabbitmq.NewPublisher(a.ch, rabbitmq.ExchangeMembership)
		}
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	gateway := paymentprovider.NewClient(cfg.Razorpay)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg.RateLimit, Services{
		Plans:      plan.New(db, planCache, cfg.PlanCacheTTL, logger),
		Purchases:  purchase.New(db, gateway, events, m, logger),
		Wallet:     wallet.New(db, gateway, m, logger),
		Reconciler: reconciler.New(cfg.WebhookSecret, db, events, m, logger),
		Tokens:     jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL),
		Users:      db,
		DB:         db.DB,
	})

	a.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return a, nil
}

func (a *App) connectBroker(cfg config.RabbitMQ) error {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return err
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.ExchangeMembership, rabbitmq.MembershipQueues())
	if err != nil {
		_ = conn.Close()
		return err
	}
	a.conn, a.ch = conn, ch
	return nil
}

// Run serves HTTP until ctx is canceled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err = a.server.Shutdown(timeoutCtx)
	}
	a.close()
	return err
}

func (a *App) close() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close redis", sl.Err(err))
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
}

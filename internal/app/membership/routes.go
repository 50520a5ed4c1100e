// Package membership wires the HTTP API of the membership backend.
package membership

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/dynasty-membership/internal/config"
	"github.com/magabrotheeeer/dynasty-membership/internal/http/handlers/admin/plancreate"
	"github.com/magabrotheeeer/dynasty-membership/internal/http/handlers/admin/planupdate"
	"github.com/magabrotheeeer/dynasty-membership/internal/http/handlers/admin/walletadjust"
	"github.com/magabrotheeeer/dynasty-membership/internal/http/handlers/health"
	"github.com/magabrotheeeer/dynasty-membership/internal/http/handlers/membership/plandetails"
	"github.com/magabrotheeeer/dynasty-membership/internal/http/handlers/membership/planlist"
	purchasehandler "github.com/magabrotheeeer/dynasty-membership/internal/http/handlers/membership/purchase"
	"github.com/magabrotheeeer/dynasty-membership/internal/http/handlers/membership/subscriptionlist"
	"github.com/magabrotheeeer/dynasty-membership/internal/http/handlers/payment/paymentwebhook"
	"github.com/magabrotheeeer/dynasty-membership/internal/http/handlers/wallet/walletbalance"
	"github.com/magabrotheeeer/dynasty-membership/internal/http/handlers/wallet/wallettopup"
	"github.com/magabrotheeeer/dynasty-membership/internal/http/middlewarectx"
	"github.com/magabrotheeeer/dynasty-membership/internal/models"
)

// Services groups what the handlers depend on.
type Services struct {
	Plans      PlanService
	Purchases  PurchaseService
	Wallet     WalletService
	Reconciler paymentwebhook.Service
	Tokens     middlewarectx.TokenParser
	Users      middlewarectx.UserGetter
	DB         health.Pinger
}

// PlanService backs the catalog and admin routes.
type PlanService interface {
	planlist.Service
	plandetails.Service
	plancreate.Service
	planupdate.Service
}

// PurchaseService backs purchase and the user's subscription list.
type PurchaseService interface {
	purchasehandler.Service
	subscriptionlist.Service
}

// WalletService backs the wallet routes and admin adjustments.
type WalletService interface {
	walletbalance.Service
	wallettopup.Service
	walletadjust.Service
}

// RegisterRoutes mounts every route of the API on r.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg config.RateLimit, svc Services) {
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Route("/api/membership", func(r chi.Router) {
		r.Post("/webhook/razorpay", paymentwebhook.New(logger, svc.Reconciler).ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(svc.Tokens, logger))
			r.Use(middlewarectx.UserStatusMiddleware(logger, svc.Users))
			r.Use(middlewarectx.RateLimitMiddleware(cfg, logger))

			r.Get("/plans", planlist.New(logger, svc.Plans).ServeHTTP)
			r.Get("/plan/{id}", plandetails.New(logger, svc.Plans).ServeHTTP)
			r.Post("/purchase", purchasehandler.New(logger, svc.Purchases).ServeHTTP)
			r.Get("/subscriptions", subscriptionlist.New(logger, svc.Purchases).ServeHTTP)
			r.Post("/wallet/topup", wallettopup.New(logger, svc.Wallet).ServeHTTP)
			r.Get("/wallet/balance", walletbalance.New(logger, svc.Wallet).ServeHTTP)

			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RequireRole(logger, models.RoleAdmin))
				r.Post("/admin/plans", plancreate.New(logger, svc.Plans).ServeHTTP)
				r.Put("/admin/plans/{id}", planupdate.New(logger, svc.Plans).ServeHTTP)
				r.Post("/admin/wallet/{userId}/adjust", walletadjust.New(logger, svc.Wallet).ServeHTTP)
			})
		})
	})

	r.Get("/health", health.New(logger, svc.DB).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}

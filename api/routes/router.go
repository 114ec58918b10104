package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pfstore/storefront-backend/api/controllers"
	"github.com/pfstore/storefront-backend/api/middleware"
	authsvc "github.com/pfstore/storefront-backend/internal/auth"
	"github.com/pfstore/storefront-backend/internal/cart"
	"github.com/pfstore/storefront-backend/internal/ledger"
	"github.com/pfstore/storefront-backend/internal/orders"
	"github.com/pfstore/storefront-backend/internal/payments"
	"github.com/pfstore/storefront-backend/internal/shipping"
	"github.com/pfstore/storefront-backend/pkg/config"
	"github.com/pfstore/storefront-backend/pkg/enums"
	"github.com/pfstore/storefront-backend/pkg/logger"
)

// Services bundles everything the router mounts.
type Services struct {
	Auth     authsvc.Service
	Cart     cart.Service
	Orders   orders.Service
	Payments payments.Service
	Ledger   ledger.Service
	Shipping shipping.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	deps map[string]controllers.Pinger,
	gatherer prometheus.Gatherer,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/register", controllers.Register(svcs.Auth, logg))
		r.Post("/login", controllers.Login(svcs.Auth, logg))
	})

	// The gateway posts settlement callbacks server-to-server; it cannot
	// carry a bearer token.
	r.Post("/api/v1/payments/callback", controllers.PaymentCallback(svcs.Payments, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, enums.UserRoleMember, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(svcs.Cart, logg))
			r.Post("/items", controllers.CartAddItem(svcs.Cart, logg))
			r.Put("/items/{itemId}", controllers.CartUpdateItem(svcs.Cart, logg))
			r.Delete("/items/{itemId}", controllers.CartRemoveItem(svcs.Cart, logg))
			r.Post("/coupon", controllers.CartPreviewCoupon(svcs.Cart, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(svcs.Orders, logg))
			r.Post("/", controllers.OrderCreate(svcs.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(svcs.Orders, logg))
			r.Post("/{orderId}/cancel", controllers.OrderCancel(svcs.Orders, logg))
			r.Post("/{orderId}/return", controllers.OrderReturn(svcs.Orders, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/", controllers.PaymentCreate(svcs.Payments, logg))
			r.Get("/{orderId}/status", controllers.PaymentStatus(svcs.Payments, logg))
		})

		r.Route("/points", func(r chi.Router) {
			r.Get("/", controllers.Balances(svcs.Ledger, logg))
			r.Get("/history", controllers.PointsHistory(svcs.Ledger, logg))
		})
		r.Route("/credits", func(r chi.Router) {
			r.Get("/", controllers.Balances(svcs.Ledger, logg))
			r.Get("/history", controllers.CreditsHistory(svcs.Ledger, logg))
		})

		r.Get("/shipping-methods", controllers.ShippingMethods(svcs.Shipping, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Post("/auth/login", controllers.AdminLogin(svcs.Auth, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, enums.UserRoleAdmin, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.AdminOrderList(svcs.Orders, logg))
				r.Get("/{orderId}", controllers.AdminOrderDetail(svcs.Orders, logg))
				r.Put("/{orderId}/status", controllers.AdminOrderUpdateStatus(svcs.Orders, logg))
			})
		})
	})

	return r
}

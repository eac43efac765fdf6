package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/emersonbarrios/fooddash-backend/api/controllers"
	webhookcontrollers "github.com/emersonbarrios/fooddash-backend/api/controllers/webhooks"
	"github.com/emersonbarrios/fooddash-backend/api/middleware"
	"github.com/emersonbarrios/fooddash-backend/internal/commissions"
	"github.com/emersonbarrios/fooddash-backend/internal/deliveries"
	"github.com/emersonbarrios/fooddash-backend/internal/orders"
	"github.com/emersonbarrios/fooddash-backend/internal/payments"
	"github.com/emersonbarrios/fooddash-backend/pkg/config"
	"github.com/emersonbarrios/fooddash-backend/pkg/enums"
	"github.com/emersonbarrios/fooddash-backend/pkg/gateway"
	"github.com/emersonbarrios/fooddash-backend/pkg/logger"
	"github.com/emersonbarrios/fooddash-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbPinger controllers.Pinger,
	redisClient *redis.Client,
	gatewayClient *gateway.Client,
	webhookGuard *webhookcontrollers.Guard,
	ordersSvc orders.Service,
	deliveriesSvc deliveries.Service,
	paymentsSvc payments.Service,
	commissionsSvc commissions.Service,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbPinger, redisClient, logg))
	})

	// Unauthenticated: public tracking lookups and the signed gateway callback.
	r.Route("/api/public", func(r chi.Router) {
		r.Get("/track/{trackingNumber}", controllers.TrackOrder(ordersSvc, logg))
		r.Get("/orders/{id}/socket", controllers.TrackOrderSocket(ordersSvc, redisClient, logg))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payments", webhookcontrollers.PaymentNotification(gatewayClient, paymentsSvc, webhookGuard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(ordersSvc, logg))
			r.Get("/{id}", controllers.GetOrder(ordersSvc, logg))
			r.Post("/{id}/transition", controllers.TransitionOrder(ordersSvc, logg))
			r.Get("/{id}/payment", controllers.GetOrderPayment(paymentsSvc, logg))
			r.Post("/{id}/payment-intent", controllers.CreatePaymentIntent(paymentsSvc, logg))
		})

		r.Route("/restaurants/{restaurantId}/orders", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleRestaurant, enums.RoleAdmin))
			r.Get("/", controllers.ListRestaurantOrders(ordersSvc, logg))
		})

		r.Route("/deliveries", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleCourier))
			r.Get("/available", controllers.ListAvailableDeliveries(deliveriesSvc, logg))
			r.Post("/{id}/claim", controllers.ClaimDelivery(deliveriesSvc, logg))
			r.Post("/{id}/release", controllers.ReleaseDelivery(deliveriesSvc, logg))
			r.Post("/{id}/pickup", controllers.MarkDeliveryPickedUp(deliveriesSvc, logg))
			r.Post("/{id}/deliver", controllers.MarkDeliveryDelivered(deliveriesSvc, logg))
		})

		r.Route("/couriers/me", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleCourier))
			r.Get("/orders", controllers.ListMyCourierOrders(ordersSvc, logg))
			r.Post("/location", controllers.UpdateCourierLocation(deliveriesSvc, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleAdmin))
			r.Route("/commissions", func(r chi.Router) {
				r.Patch("/{id}/status", controllers.UpdateCommissionStatus(commissionsSvc, logg))
				r.Post("/payments", controllers.RecordCommissionPayment(commissionsSvc, logg))
				r.Get("/orders/{id}", controllers.ListOrderCommissions(commissionsSvc, logg))
				r.Get("/members/{memberId}", controllers.ListMemberCommissions(commissionsSvc, logg))
			})
			r.Route("/payments", func(r chi.Router) {
				r.Post("/{id}/mark-paid", controllers.MarkPaymentPaid(paymentsSvc, logg))
				r.Post("/{id}/refund", controllers.RequestPaymentRefund(paymentsSvc, logg))
				r.Post("/{id}/mark-refunded", controllers.MarkPaymentRefunded(paymentsSvc, logg))
			})
		})
	})

	return r
}

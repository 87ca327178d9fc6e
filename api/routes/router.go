package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rahulnegi20/recolora-backend/api/controllers"
	webhookcontrollers "github.com/rahulnegi20/recolora-backend/api/controllers/webhooks"
	"github.com/rahulnegi20/recolora-backend/api/middleware"
	"github.com/rahulnegi20/recolora-backend/internal/jobs"
	"github.com/rahulnegi20/recolora-backend/internal/payments"
	"github.com/rahulnegi20/recolora-backend/internal/webhooks"
	cashfreewebhook "github.com/rahulnegi20/recolora-backend/internal/webhooks/cashfree"
	phonepewebhook "github.com/rahulnegi20/recolora-backend/internal/webhooks/phonepe"
	"github.com/rahulnegi20/recolora-backend/pkg/cashfree"
	"github.com/rahulnegi20/recolora-backend/pkg/config"
	"github.com/rahulnegi20/recolora-backend/pkg/logger"
	"github.com/rahulnegi20/recolora-backend/pkg/phonepe"
)

// Params collects everything the HTTP surface needs. Nil optional entries
// degrade their routes rather than the whole server.
type Params struct {
	Config   *config.Config
	Logger   *logger.Logger
	Registry *prometheus.Registry

	ReadinessDeps map[string]controllers.Pinger

	JobsService     jobs.Service
	PaymentsService payments.Service
	AdminService    controllers.AdminService

	PhonePeClient          *phonepe.Client
	PhonePeWebhookService  *phonepewebhook.Service
	PhonePeWebhookGuard    *webhooks.IdempotencyGuard
	CashfreeVerifier       *cashfree.Verifier
	CashfreeWebhookService *cashfreewebhook.Service
	CashfreeWebhookGuard   *webhooks.IdempotencyGuard
}

func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.ReadinessDeps))
	})

	if p.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/phonepe", webhookcontrollers.PhonePeWebhook(p.PhonePeWebhookService, p.PhonePeClient, p.PhonePeWebhookGuard, logg))
		r.Post("/cashfree", webhookcontrollers.CashfreeWebhook(p.CashfreeWebhookService, p.CashfreeVerifier, p.CashfreeWebhookGuard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, logg))

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", controllers.CreateJob(p.JobsService, logg))
			r.Get("/{jobId}", controllers.GetJob(p.JobsService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(p.PaymentsService, logg))
			r.Get("/status", controllers.OrderStatus(p.PaymentsService, logg))
			r.Post("/verify", controllers.VerifyOrder(p.PaymentsService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.AdminKey(cfg.Admin, logg))

		r.Post("/payments/fix", controllers.PaymentsFix(p.AdminService, logg))
		r.Get("/payments/search", controllers.PaymentsSearch(p.AdminService, logg))
	})

	return r
}

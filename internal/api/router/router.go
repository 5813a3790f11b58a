package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/kidsvax/clinic-platform/internal/http/middleware"
	"github.com/kidsvax/clinic-platform/internal/payments"
	"github.com/kidsvax/clinic-platform/internal/scheduling"
	"github.com/kidsvax/clinic-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	SchedulingHandler  *scheduling.Handler
	PaymentsHandler    *payments.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	AuthJWTSecret      string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (health checks, metrics, gateway callbacks)
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		// Gateway return redirects carry their own signature.
		if cfg.PaymentsHandler != nil {
			public.Get("/payments/vnpay/return", cfg.PaymentsHandler.VNPayReturn)
		}
	})

	// Parent-facing booking routes, JWT-guarded.
	r.Group(func(parent chi.Router) {
		parent.Use(httpmiddleware.ParentJWT(cfg.AuthJWTSecret))

		if cfg.SchedulingHandler != nil {
			parent.Route("/bookings", func(r chi.Router) {
				r.Post("/vaccine", cfg.SchedulingHandler.ScheduleVaccine)
				r.Post("/package", cfg.SchedulingHandler.SchedulePackage)
			})
			parent.Post("/appointments/{appointmentID}/reschedule", cfg.SchedulingHandler.Reschedule)
		}
		if cfg.PaymentsHandler != nil {
			parent.Post("/payments/checkout", cfg.PaymentsHandler.CreateCheckout)
		}
	})

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"
)

const (
	apiTimeout            = 15 * time.Second
	uploadCompleteTimeout = 2 * time.Minute
)

// RouterConfig настройки маршрутизатора
type RouterConfig struct {
	AllowedOrigins     []string
	RateLimitPerMinute int
	AdminAPIKey        string
}

// NewRouter собирает все маршруты API
func NewRouter(h *Handler, cfg RouterConfig, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(RequestID)
	r.Use(RequestLogger(logger))
	r.Use(Recoverer(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", HeaderAPIKey, HeaderRequestID},
		ExposedHeaders: []string{HeaderRequestID},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		// Клиентские запросы с сайта
		r.Group(func(r chi.Router) {
			if cfg.RateLimitPerMinute > 0 {
				r.Use(httprate.LimitByIP(cfg.RateLimitPerMinute, time.Minute))
			}

			r.With(middleware.Timeout(apiTimeout)).Get("/booking/slots", h.GetSlots)
			r.With(middleware.Timeout(apiTimeout)).Post("/booking/slots", h.CreateBooking)
			r.With(middleware.Timeout(apiTimeout)).Get("/bookings/{id}", h.GetBooking)
			r.With(middleware.Timeout(apiTimeout)).Post("/video/upload-chunk", h.UploadChunk)
			r.With(middleware.Timeout(uploadCompleteTimeout)).Post("/video/upload-complete", h.CompleteUpload)
		})

		// Уведомления платёжного провайдера: без лимита, ответ всегда 200 {code}
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(apiTimeout))

			r.Post("/payments/success", h.PaymentSuccess)
			r.Put("/payments/success", h.PaymentWebhook)
			r.Post("/payments/check", h.PaymentCheck)
			r.Post("/webhooks/cloudpayments", h.PaymentWebhook)
			r.Post("/webhooks/cloudpayments/{kind}", h.PaymentWebhookByKind)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAPIKey(cfg.AdminAPIKey))
			r.Use(middleware.Timeout(apiTimeout))

			r.Get("/schedules/{trainerId}", h.GetSchedule)
			r.Put("/schedules/{trainerId}", h.PutSchedule)
			r.Get("/access", h.ListAccess)
		})
	})

	return r
}

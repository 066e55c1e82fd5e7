package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chatmatch/internal/http/handlers"
	"chatmatch/internal/middleware"
)

// NewRouter assembles the full API surface. Webhooks sit outside the JWT
// group since their callers authenticate by signature, not token.
func NewRouter(app *handlers.App) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimiddleware.RealIP,
		chimiddleware.Recoverer,
		middleware.Logger(app.Logger),
		middleware.Metrics,
		middleware.RateLimit(app.Cfg.RateLimitPerMin, time.Minute),
	)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   app.Cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", app.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/telegram", app.AuthTelegram)
		r.Post("/auth/webapp", app.AuthWebApp)

		r.Post("/webhooks/stripe", app.StripeWebhook)
		r.Post("/webhooks/telegram", app.TelegramWebhook)

		r.Get("/chat/tones", app.Tones)
		r.Post("/quiz/analyze", app.QuizAnalyze)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthJWT(app.Cfg.JWTSecret))

			r.Get("/user/me", app.Me)

			r.Post("/chat/generate", app.Generate)
			r.Get("/chat/history", app.History)
			r.Post("/chat/select", app.Select)

			r.Get("/subscription/info", app.SubscriptionInfo)
			r.Post("/subscription/stripe/create-checkout", app.StripeCreateCheckout)
			r.Get("/subscription/stripe/session", app.StripeSession)
			r.Post("/subscription/telegram-stars/create-invoice", app.StarsCreateInvoice)
			r.Post("/subscription/cancel", app.SubscriptionCancel)
			r.Get("/subscription/payments", app.PaymentHistory)
		})
	})

	return r
}

package handlers

import (
	"net/http"

	"github.com/casa-vistamar/booking-api/internal/auth"
	"github.com/casa-vistamar/booking-api/internal/config"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func RegisterRoutes(r *chi.Mux, cfg *config.Config, authHandler *auth.AuthHandler, reservationHandler *ReservationHandler, webhookHandler *WebhookHandler, testimonialHandler *TestimonialHandler) {
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if cfg.EnableCORS {
		r.Use(corsMiddleware)
	}

	apiConfig := huma.DefaultConfig("Casa Vistamar Booking API", "1.0.0")
	apiConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"cookieAuth": {
			Type: "apiKey",
			In:   "cookie",
			Name: "auth_token",
		},
	}
	api := humachi.New(r, apiConfig)

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Auth routes
	huma.Post(api, "/api/auth/login", authHandler.HandleLogin)
	huma.Get(api, "/api/auth/me", authHandler.HandleMe)

	// Booking funnel
	huma.Post(api, "/api/reservations", reservationHandler.HandleSubmit)
	huma.Get(api, "/api/reservations/{id}", reservationHandler.HandleGet)
	huma.Put(api, "/api/reservations/{id}", reservationHandler.HandleUpdate)
	huma.Get(api, "/api/confirmation", reservationHandler.HandleConfirmation)

	// Payment processor callbacks
	huma.Post(api, "/api/webhooks/payment", webhookHandler.HandleEvent)

	// Testimonials
	huma.Post(api, "/api/testimonials", testimonialHandler.HandleSubmit)
	huma.Get(api, "/api/testimonials", testimonialHandler.HandlePublicList)

	// Operator back-office. The session check runs as chi middleware on the
	// sub-router the admin API is bound to.
	r.Route("/api/admin", func(ar chi.Router) {
		ar.Use(authHandler.RequireOperator)

		adminConfig := huma.DefaultConfig("Casa Vistamar Admin API", "1.0.0")
		adminConfig.Components.SecuritySchemes = apiConfig.Components.SecuritySchemes
		adminAPI := humachi.New(ar, adminConfig)

		cookieSecured := func(o *huma.Operation) {
			o.Security = []map[string][]string{{"cookieAuth": {}}}
		}

		huma.Get(adminAPI, "/reservations", reservationHandler.HandleList, cookieSecured)
		huma.Delete(adminAPI, "/reservations/{id}", reservationHandler.HandleDelete, cookieSecured)
		huma.Get(adminAPI, "/testimonials", testimonialHandler.HandleAdminList, cookieSecured)
		huma.Put(adminAPI, "/testimonials/{id}", testimonialHandler.HandleModerate, cookieSecured)
		huma.Delete(adminAPI, "/testimonials/{id}", testimonialHandler.HandleDelete, cookieSecured)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", r.Header.Get("Origin"))
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

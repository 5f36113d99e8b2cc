package main

import (
	"fmt"
	"net/http"

	"github.com/casa-vistamar/booking-api/internal/auth"
	"github.com/casa-vistamar/booking-api/internal/clients"
	"github.com/casa-vistamar/booking-api/internal/config"
	"github.com/casa-vistamar/booking-api/internal/database"
	"github.com/casa-vistamar/booking-api/internal/handlers"
	"github.com/casa-vistamar/booking-api/internal/lifecycle"
	"github.com/casa-vistamar/booking-api/internal/logging"
	"github.com/casa-vistamar/booking-api/internal/mailer"
	"github.com/casa-vistamar/booking-api/internal/notifier"
	"github.com/casa-vistamar/booking-api/internal/store"
	"github.com/go-chi/chi/v5"
)

func main() {
	// Load Configuration
	cfg := config.LoadConfig()
	logger := logging.New(cfg)

	// Connect to the store
	rdb, err := database.Connect(cfg)
	if err != nil {
		if !cfg.StoreSoftFail {
			logger.Fatalf("Failed to connect to redis: %v", err)
		}
		logger.Warnf("Redis unreachable, continuing in soft-fail mode: %v", err)
	}

	reservationStore := store.NewReservationStore(rdb, cfg.StoreSoftFail, logger)
	testimonialStore := store.NewTestimonialStore(rdb, cfg.StoreSoftFail, logger)

	// External collaborators
	calendar := clients.NewHTTPCalendar(cfg)
	payments := clients.NewHTTPPayments(cfg)
	smtpMailer := mailer.NewSMTPMailer(cfg)

	var alerts notifier.Notifier
	discordNotifier, err := notifier.NewDiscordNotifier(cfg)
	if err != nil {
		logger.Infof("Discord notifier not initialized: %v", err)
	} else {
		alerts = discordNotifier
	}

	// Core + handlers
	controller := lifecycle.NewController(reservationStore, calendar, payments, smtpMailer, alerts, cfg, logger)

	authHandler := auth.NewAuthHandler(cfg)
	reservationHandler := handlers.NewReservationHandler(controller, reservationStore, authHandler, cfg)
	webhookHandler := handlers.NewWebhookHandler(controller, cfg, logger)
	testimonialHandler := handlers.NewTestimonialHandler(testimonialStore)

	// Initialize Router
	r := chi.NewRouter()

	// Register Routes
	handlers.RegisterRoutes(r, cfg, authHandler, reservationHandler, webhookHandler, testimonialHandler)

	// Start Server
	logger.Infof("Starting server on port %s", cfg.Port)
	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}

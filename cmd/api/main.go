package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fixify-backend/internal/auth"
	"fixify-backend/internal/booking"
	"fixify-backend/internal/cache"
	"fixify-backend/internal/config"
	"fixify-backend/internal/db"
	"fixify-backend/internal/earnings"
	"fixify-backend/internal/handlers"
	"fixify-backend/internal/joboffer"
	"fixify-backend/internal/middleware"
	"fixify-backend/internal/models"
	"fixify-backend/internal/notifications"
	"fixify-backend/internal/settings"
	"fixify-backend/internal/technician"
	"fixify-backend/internal/validation"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, cols, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Error("mongo connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("mongo connected")
	defer client.Disconnect(context.Background())

	if err := db.EnsureIndexes(ctx, cols); err != nil {
		logger.Error("index creation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var cacheStore cache.Cache = cache.NewNoop()
	if cfg.RedisURL != "" || cfg.RedisAddr != "" {
		var redisCache *cache.RedisCache
		var err error
		if cfg.RedisURL != "" {
			redisCache, err = cache.NewRedisFromURL(cfg.RedisURL)
		} else {
			redisCache = cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		}
		if err != nil {
			logger.Error("redis connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if err := redisCache.Ping(ctx); err != nil {
			logger.Error("redis connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("redis connected")
		cacheStore = redisCache
	}

	if cfg.JWTSecret == "" {
		logger.Error("JWT_SECRET is required")
		os.Exit(1)
	}
	jwtManager := &auth.Manager{
		Secret:     []byte(cfg.JWTSecret),
		AccessTTL:  time.Duration(cfg.AccessTTLMinutes) * time.Minute,
		RefreshTTL: time.Duration(cfg.RefreshTTLMinutes) * time.Minute,
		Issuer:     "fixify-backend",
	}

	mailer := notifications.NewBrevoClient(cfg.BrevoAPIKey, cfg.BrevoSenderEmail, cfg.BrevoSenderName, cfg.BrevoSandbox)
	if mailer == nil {
		logger.Info("brevo mailer disabled")
	} else {
		logger.Info("brevo mailer enabled", slog.String("sender", cfg.BrevoSenderEmail), slog.Bool("sandbox", cfg.BrevoSandbox))
	}

	notifier := notifications.NewStore(cols.Notifications, cols.AdminNotifications)
	val := validation.New()

	server := &handlers.Server{
		Cfg:           cfg,
		Cols:          cols,
		Val:           val,
		Log:           logger,
		Cache:         cacheStore,
		JWT:           jwtManager,
		Notifications: notifier,
	}

	technicianRepo := technician.NewRepository(cols.Technicians)
	technicianService := technician.NewService(technicianRepo)
	technicianHandler := technician.NewHandler(technicianService, val, logger)

	bookingRepo := booking.NewRepository(cols.Bookings, cols.Technicians, cols.Orders, cols.Reviews)
	bookingService := booking.NewService(bookingRepo, notifier, mailer, logger)
	bookingHandler := booking.NewHandler(bookingService, val, logger)

	offerRepo := joboffer.NewRepository(cols.JobOffers, cols.Bookings, cols.Technicians)
	offerService := joboffer.NewService(offerRepo, notifier, logger, cfg.OfferTTLMinutes)
	offerHandler := joboffer.NewHandler(offerService, technicianService, val, logger)

	earningsRepo := earnings.NewRepository(cols.Bookings, cols.Payouts, cols.Settings)
	earningsService := earnings.NewService(earningsRepo)
	earningsHandler := earnings.NewHandler(earningsService, technicianService, logger)

	settingsService := settings.NewService(cols.Settings, cols.ActivityLog)
	settingsHandler := settings.NewHandler(settingsService, val, logger)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.FrontendOrigin))
	r.Use(chiMiddleware.Timeout(30 * time.Second))

	bookingsLimiter := middleware.NewRateLimiter(cfg.RateLimitBookings, time.Duration(cfg.RateLimitWindowSec)*time.Second)
	contactLimiter := middleware.NewRateLimiter(cfg.RateLimitContact, time.Duration(cfg.RateLimitWindowSec)*time.Second)

	requireAuth := middleware.RequireAuth(jwtManager)
	requireTechnician := middleware.RequireRole(models.RoleTechnician)
	requireAdmin := middleware.RequireRole(models.RoleAdmin)

	registerV1Routes := func(api chi.Router) {
		api.Post("/auth/register", server.Register)
		api.Post("/auth/login", server.Login)

		api.Get("/services", server.GetServices)
		api.With(bookingsLimiter.Middleware).Post("/bookings", server.CreateBooking)
		api.With(contactLimiter.Middleware).Post("/contact", server.CreateBooking)
		api.Post("/payments/webhook", server.PaymentWebhook)

		api.Group(func(protected chi.Router) {
			protected.Use(requireAuth)

			protected.Get("/bookings", bookingHandler.ListOwn)
			protected.Get("/bookings/{id}", bookingHandler.Get)
			protected.Post("/bookings/cancel", bookingHandler.Cancel)
			protected.Post("/bookings/reschedule", bookingHandler.Reschedule)
			protected.Post("/bookings/{id}/rate", bookingHandler.Rate)

			protected.Get("/notifications", server.ListNotifications)
			protected.Patch("/notifications/{id}/read", server.MarkNotificationRead)
			protected.Delete("/notifications/{id}", server.DeleteNotification)

			protected.Group(func(tech chi.Router) {
				tech.Use(requireTechnician)
				tech.Get("/technicians/jobs/offers", offerHandler.ListOffers)
				tech.Post("/technicians/jobs/response", offerHandler.Respond)
				tech.Get("/technicians/jobs/earnings", earningsHandler.Earnings)
				tech.Get("/technicians/jobs/history", earningsHandler.History)
			})

			protected.Route("/admin", func(admin chi.Router) {
				admin.Use(requireAdmin)

				admin.Get("/bookings", server.AdminListBookings)
				admin.Patch("/bookings/{id}/status", bookingHandler.UpdateStatus)
				admin.Post("/offers", offerHandler.AdminDispatch)

				admin.Post("/technicians", technicianHandler.AdminCreate)
				admin.Get("/technicians", technicianHandler.AdminList)
				admin.Patch("/technicians/{id}/status", technicianHandler.AdminUpdateStatus)

				admin.Get("/reports", earningsHandler.AdminReport)
				admin.Get("/settings/commission", settingsHandler.GetCommission)
				admin.Put("/settings/commission", settingsHandler.UpdateCommission)

				admin.Post("/services", server.AdminCreateService)
				admin.Put("/services/{id}", server.AdminUpdateService)
				admin.Delete("/services/{id}", server.AdminDeleteService)
			})
		})
	}

	r.Route("/api/v1", registerV1Routes)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: r,
	}

	go func() {
		logger.Info("server started", slog.String("addr", cfg.ServerAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
}

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rollcall-app/rollcall/internal/auth"
	"github.com/rollcall-app/rollcall/internal/background"
	"github.com/rollcall-app/rollcall/internal/config"
	"github.com/rollcall-app/rollcall/internal/database"
	"github.com/rollcall-app/rollcall/internal/handlers"
	"github.com/rollcall-app/rollcall/internal/metrics"
	middlewareCustom "github.com/rollcall-app/rollcall/internal/middleware"
	"github.com/rollcall-app/rollcall/internal/repositories"
	"github.com/rollcall-app/rollcall/internal/routes"
	"github.com/rollcall-app/rollcall/internal/services"
	pkghttp "github.com/rollcall-app/rollcall/pkg/http"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Apply migrations before accepting traffic
	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Migrate(migrateCtx); err != nil {
		migrateCancel()
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	migrateCancel()

	// Initialize metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Initialize repositories
	eventRepo := repositories.NewEventRepository(db)
	tokenRepo := repositories.NewTokenRepository(db)
	sessionRepo := repositories.NewClaimSessionRepository(db)
	attendanceRepo := repositories.NewAttendanceRepository(db)
	fingerprintRepo := repositories.NewFingerprintRepository(db)
	studentRepo := repositories.NewStudentRepository(db)
	enrollmentRepo := repositories.NewEnrollmentRepository(db)

	// Initialize services
	tokenService := services.NewTokenService(eventRepo, tokenRepo, logger)
	claimService := services.NewClaimService(
		tokenRepo, sessionRepo, eventRepo,
		cfg.Attendance.TokenFreshness, cfg.Attendance.SessionTTL,
		logger,
	)
	verifier := services.NewStudentCredentialVerifier(studentRepo)
	eligibility := services.NewEnrollmentEligibility(enrollmentRepo, attendanceRepo)
	submissionService := services.NewSubmissionService(
		db, eventRepo, claimService, fingerprintRepo, attendanceRepo,
		verifier, eligibility, logger,
	)

	// Staff bearer tokens for instructor endpoints
	staffTokens := auth.NewStaffTokenManager(cfg.Attendance.StaffJWTSecret, 8*time.Hour)

	// Initialize handlers
	cookieConfig := auth.CookieConfig{Secure: cfg.Server.Env == "production"}
	ipConfig := &pkghttp.IPConfig{TrustedProxies: []string{"127.0.0.1/32", "10.0.0.0/8"}}
	attendanceHandler := handlers.NewAttendanceHandler(
		claimService, submissionService, m,
		cookieConfig, cfg.Attendance.DeviceCookieTTL, ipConfig,
	)
	eventsHandler := handlers.NewEventsHandler(tokenService, attendanceRepo, m, cfg.Server.BaseURL)

	// Claim session sweeper
	sweeper := background.NewSweepManager(sessionRepo, m, logger, cfg.Attendance.SweepInterval, cfg.Attendance.SweepGrace)

	// Setup CORS middleware
	corsConfig := middlewareCustom.DefaultCORSConfig(cfg.Server.Env)
	corsConfig.AllowedOrigins = cfg.Server.AllowedOrigins

	// Setup router
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(chimiddleware.Recoverer)
	router.Use(chimiddleware.Timeout(30 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, attendanceHandler, eventsHandler, staffTokens, registry)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start session sweeper
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()

	go sweeper.Start(sweepCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	sweepCancel()
	sweeper.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

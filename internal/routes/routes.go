package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rollcall-app/rollcall/internal/auth"
	"github.com/rollcall-app/rollcall/internal/handlers"
	"github.com/rollcall-app/rollcall/internal/middleware"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	attendanceHandler *handlers.AttendanceHandler,
	eventsHandler *handlers.EventsHandler,
	staffTokens *auth.StaffTokenManager,
	registry *prometheus.Registry,
) {
	claimLimit := middleware.DefaultClaimRateLimit()
	submitLimit := middleware.DefaultSubmitRateLimit()

	// Student-facing protocol - no auth beyond the token/session handshake
	router.With(middleware.RateLimitByIP(claimLimit)).Post("/events/{token}/claim", attendanceHandler.Claim)
	router.With(middleware.RateLimitByIP(submitLimit)).Post("/events/{token}/attend", attendanceHandler.Attend)

	// Staff-facing event control
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireStaff(staffTokens))

		r.Post("/staff/events/{id}/rotate", eventsHandler.Rotate)
		r.Get("/staff/events/{id}/qr.png", eventsHandler.QRCode)
		r.Post("/staff/events/{id}/deactivate", eventsHandler.Deactivate)
		r.Get("/staff/events/{id}/attendance", eventsHandler.Roster)
	})

	router.Method("GET", "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}

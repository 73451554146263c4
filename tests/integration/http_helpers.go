package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rollcall-app/rollcall/internal/auth"
	"github.com/rollcall-app/rollcall/internal/handlers"
	"github.com/rollcall-app/rollcall/internal/metrics"
	"github.com/rollcall-app/rollcall/internal/routes"
	"github.com/rollcall-app/rollcall/internal/services"
	pkghttp "github.com/rollcall-app/rollcall/pkg/http"
)

// TestServer wraps httptest.Server with the full stack over a real database
type TestServer struct {
	Server      *httptest.Server
	DB          *TestDB
	Repos       *Repositories
	Tokens      *services.TokenService
	Claims      *services.ClaimService
	StaffTokens *auth.StaffTokenManager
}

const (
	testTokenFreshness = 5 * time.Second
	testSessionTTL     = 20 * time.Second
)

// NewTestServer wires repositories, services, handlers and routes against the
// given test database, mirroring the production wiring
func NewTestServer(db *TestDB) *TestServer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repos := InitializeRepositories(db.DB)

	tokenService := services.NewTokenService(repos.Events, repos.Tokens, logger)
	claimService := services.NewClaimService(
		repos.Tokens, repos.Sessions, repos.Events,
		testTokenFreshness, testSessionTTL, logger,
	)
	verifier := services.NewStudentCredentialVerifier(repos.Students)
	eligibility := services.NewEnrollmentEligibility(repos.Enrollments, repos.Attendance)
	submissionService := services.NewSubmissionService(
		db.DB, repos.Events, claimService, repos.Fingerprints, repos.Attendance,
		verifier, eligibility, logger,
	)

	staffTokens := auth.NewStaffTokenManager("integration-test-signing-secret", time.Hour)
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	// The test server trusts loopback so each simulated device can present
	// its own client IP via X-Forwarded-For; otherwise every request would
	// share 127.0.0.1 and collide on the IP identity layer.
	ipConfig := &pkghttp.IPConfig{TrustedProxies: []string{"127.0.0.1/32", "::1/128"}}

	attendanceHandler := handlers.NewAttendanceHandler(
		claimService, submissionService, m,
		auth.CookieConfig{}, 365*24*time.Hour, ipConfig,
	)
	eventsHandler := handlers.NewEventsHandler(tokenService, repos.Attendance, m, "http://localhost:8080")

	router := chi.NewRouter()
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Recoverer)
	routes.RegisterRoutes(router, attendanceHandler, eventsHandler, staffTokens, registry)

	return &TestServer{
		Server:      httptest.NewServer(router),
		DB:          db,
		Repos:       repos,
		Tokens:      tokenService,
		Claims:      claimService,
		StaffTokens: staffTokens,
	}
}

// Close shuts down the HTTP server (the database is torn down separately)
func (ts *TestServer) Close() {
	ts.Server.Close()
}

// Client returns an HTTP client with a cookie jar bound to nothing; callers
// manage cookies explicitly so tests can model distinct browsers
func (ts *TestServer) Client() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// PostJSON sends a JSON POST as the given client IP with the given cookies.
// The IP travels in X-Forwarded-For, which the server honors from loopback.
func (ts *TestServer) PostJSON(path, clientIP string, body interface{}, cookies []*http.Cookie) (*http.Response, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequest(http.MethodPost, ts.Server.URL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if clientIP != "" {
		req.Header.Set("X-Forwarded-For", clientIP)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	return ts.Client().Do(req)
}

// StaffRequest sends a request with a valid staff bearer token
func (ts *TestServer) StaffRequest(method, path string) (*http.Response, error) {
	token, err := ts.StaffTokens.Generate("staff-1")
	if err != nil {
		return nil, fmt.Errorf("failed to generate staff token: %w", err)
	}

	req, err := http.NewRequest(method, ts.Server.URL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	return ts.Client().Do(req)
}

// RotateToken rotates the event token through the service layer and returns
// its value, the shortcut for tests that only need a fresh token
func (ts *TestServer) RotateToken(ctx context.Context, eventID string) (string, error) {
	token, err := ts.Tokens.Rotate(ctx, eventID)
	if err != nil {
		return "", err
	}
	return token.Value, nil
}

// DecodeJSON decodes a response body into dst
func DecodeJSON(res *http.Response, dst interface{}) error {
	defer res.Body.Close()
	return json.NewDecoder(res.Body).Decode(dst)
}

// CookieNamed returns the named cookie from a response, nil if absent
func CookieNamed(res *http.Response, name string) *http.Cookie {
	for _, c := range res.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

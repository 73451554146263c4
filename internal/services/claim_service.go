package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rollcall-app/rollcall/internal/models"
)

// SessionStore defines the claim session operations the claimer needs
type SessionStore interface {
	Create(ctx context.Context, id, eventID string, expiresAt time.Time) (*models.ClaimSession, error)
	GetByID(ctx context.Context, id string) (*models.ClaimSession, error)
	ExtendExpiry(ctx context.Context, id string, expiresAt time.Time) error
}

// ClaimService resolves a student's claim against the rotating token,
// falling back to an existing claim session when the displayed token has
// already rotated. A token refreshed every few seconds cannot stay valid
// long enough to type credentials; the session decouples "is this QR live
// right now" from "did this browser see a live QR recently".
type ClaimService struct {
	tokens    TokenStore
	sessions  SessionStore
	events    EventStore
	freshness time.Duration
	ttl       time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewClaimService creates a new ClaimService
func NewClaimService(tokens TokenStore, sessions SessionStore, events EventStore, freshness, ttl time.Duration, logger *slog.Logger) *ClaimService {
	return &ClaimService{
		tokens:    tokens,
		sessions:  sessions,
		events:    events,
		freshness: freshness,
		ttl:       ttl,
		logger:    logger,
		now:       time.Now,
	}
}

// Claim resolves a token value and/or prior session id to a valid claim
// session. Resolution order: a live fresh token wins and creates or extends
// a session; otherwise an unexpired session from a prior claim on the same
// browser is accepted as-is. A deactivated event fails with ErrClosed before
// freshness is even considered. Anything else is ErrInvalidOrExpired: the
// user has to rescan.
func (s *ClaimService) Claim(ctx context.Context, tokenValue, sessionID string) (*models.ClaimSession, error) {
	now := s.now()

	if tokenValue != "" {
		token, err := s.tokens.GetByValue(ctx, tokenValue)
		switch {
		case err == nil:
			event, err := s.events.GetByID(ctx, token.EventID)
			if err != nil {
				return nil, err
			}
			if !event.Active {
				return nil, models.ErrClosed
			}
			if token.Fresh(now, s.freshness) {
				return s.openOrExtend(ctx, event.ID, sessionID, now)
			}
			// Stale token: the event may still be open, the browser just
			// has to prove it via its session.
		case errors.Is(err, models.ErrNotFound):
			// Rotated away entirely; fall through to the session path.
		default:
			return nil, err
		}
	}

	return s.resolveSession(ctx, sessionID, now)
}

// openOrExtend returns the browser's existing session for the event with a
// pushed-out expiry, or opens a fresh one. Claim polling while the form is
// open lands here each time, which is what keeps a slow typist alive through
// token rotation.
func (s *ClaimService) openOrExtend(ctx context.Context, eventID, sessionID string, now time.Time) (*models.ClaimSession, error) {
	expiresAt := now.Add(s.ttl)

	if sessionID != "" {
		session, err := s.sessions.GetByID(ctx, sessionID)
		if err == nil && session.EventID == eventID && !session.Expired(now) {
			if err := s.sessions.ExtendExpiry(ctx, session.ID, expiresAt); err != nil {
				return nil, err
			}
			session.ExpiresAt = expiresAt
			return session, nil
		}
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
	}

	session, err := s.sessions.Create(ctx, uuid.New().String(), eventID, expiresAt)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("claim session opened",
		slog.String("event_id", eventID),
		slog.String("session_id", session.ID),
	)
	return session, nil
}

// resolveSession accepts an unexpired session from a prior claim
func (s *ClaimService) resolveSession(ctx context.Context, sessionID string, now time.Time) (*models.ClaimSession, error) {
	if sessionID == "" {
		return nil, models.ErrInvalidOrExpired
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidOrExpired
		}
		return nil, err
	}

	event, err := s.events.GetByID(ctx, session.EventID)
	if err != nil {
		return nil, err
	}
	if !event.Active {
		return nil, models.ErrClosed
	}

	if session.Expired(now) {
		return nil, models.ErrInvalidOrExpired
	}

	return session, nil
}

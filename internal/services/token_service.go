package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/rollcall-app/rollcall/internal/models"
)

const tokenByteLength = 32 // 256 bits

// EventStore defines the event metadata operations the services need
type EventStore interface {
	GetByID(ctx context.Context, id string) (*models.AttendanceEvent, error)
	Deactivate(ctx context.Context, id string) error
}

// TokenStore defines the single-live-token operations
type TokenStore interface {
	Replace(ctx context.Context, eventID, value string) (*models.EventToken, error)
	GetByValue(ctx context.Context, value string) (*models.EventToken, error)
}

// TokenService issues and rotates the short-lived opaque token shown in the
// QR code. The display client calls Rotate every few seconds while
// attendance is open; each call replaces the previous token.
type TokenService struct {
	events EventStore
	tokens TokenStore
	logger *slog.Logger
}

// NewTokenService creates a new TokenService
func NewTokenService(events EventStore, tokens TokenStore, logger *slog.Logger) *TokenService {
	return &TokenService{
		events: events,
		tokens: tokens,
		logger: logger,
	}
}

// Rotate invalidates the event's previous token and issues a fresh one.
// Fails with ErrClosed once the event is deactivated; rotation must stop then.
func (s *TokenService) Rotate(ctx context.Context, eventID string) (*models.EventToken, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if !event.Active {
		return nil, models.ErrClosed
	}

	value, err := generateTokenValue()
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Replace(ctx, eventID, value)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("event token rotated", slog.String("event_id", eventID))
	return token, nil
}

// Deactivate closes attendance for the event. Terminal; all tokens and
// sessions for the event are rejected from here on.
func (s *TokenService) Deactivate(ctx context.Context, eventID string) error {
	if err := s.events.Deactivate(ctx, eventID); err != nil {
		return err
	}

	s.logger.Info("attendance closed", slog.String("event_id", eventID))
	return nil
}

// generateTokenValue returns an unguessable URL-safe token value
func generateTokenValue() (string, error) {
	bytes := make([]byte, tokenByteLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate token value: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

package service

import (
	"context"
	"errors"
	"fmt"

	"spinify/internal/domain"
	"spinify/internal/events"
	"spinify/internal/models"
	"spinify/internal/secret"

	"github.com/rs/zerolog"
)

var ErrMissingCredentials = errors.New("api_id, api_hash and session_string are required")

// SessionService keeps Telethon-style session strings sealed at rest.
// Plaintext exists only inside Bind and Reveal; everything else sees
// ciphertext or the redacted view.
type SessionService struct {
	store    domain.Store
	box      *secret.Box
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewSessionService(store domain.Store, box *secret.Box, eventBus domain.EventPublisher, logger *zerolog.Logger) *SessionService {
	return &SessionService{
		store:    store,
		box:      box,
		eventBus: eventBus,
		logger:   logger,
	}
}

// Bind seals the session string and upserts the user's credentials.
func (s *SessionService) Bind(ctx context.Context, userID int64, apiID int, apiHash, sessionString string) error {
	if apiID <= 0 || apiHash == "" || sessionString == "" {
		return ErrMissingCredentials
	}

	sealed, err := s.box.Seal(sessionString)
	if err != nil {
		return fmt.Errorf("failed to seal session string: %w", err)
	}

	session := &models.UserSession{
		UserID:        userID,
		APIID:         apiID,
		APIHash:       apiHash,
		SessionString: sealed,
	}
	if err := s.store.SaveSession(ctx, session); err != nil {
		return err
	}

	s.logger.Info().Int64("user_id", userID).Msg("session bound")
	s.publish(events.EventSessionBound, events.UserEventPayload{UserID: userID})
	return nil
}

// View returns the redacted session metadata safe for API responses.
func (s *SessionService) View(ctx context.Context, userID int64) (*models.SessionView, error) {
	session, err := s.store.GetSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	view := session.View()
	return &view, nil
}

func (s *SessionService) HasSession(ctx context.Context, userID int64) (bool, error) {
	return s.store.HasSession(ctx, userID)
}

// Reveal decrypts the stored session string for an in-process consumer.
// The result must never be logged or serialized.
func (s *SessionService) Reveal(ctx context.Context, userID int64) (*models.UserSession, error) {
	session, err := s.store.GetSession(ctx, userID)
	if err != nil {
		return nil, err
	}

	plain, err := s.box.Open(session.SessionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open session string: %w", err)
	}

	session.SessionString = plain
	return session, nil
}

func (s *SessionService) Revoke(ctx context.Context, userID int64) error {
	if err := s.store.DeleteSession(ctx, userID); err != nil {
		return err
	}

	s.logger.Info().Int64("user_id", userID).Msg("session revoked")
	s.publish(events.EventSessionRevoked, events.UserEventPayload{UserID: userID})
	return nil
}

func (s *SessionService) publish(eventType string, payload events.UserEventPayload) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("failed to publish event")
	}
}

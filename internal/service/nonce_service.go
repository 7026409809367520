package service

import (
	"context"
	"time"

	"spinify/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// NonceService issues single-use login nonces that the login bot hands
// to a user and the API later exchanges for the user's identity.
type NonceService struct {
	repo   domain.NonceRepository
	ttl    time.Duration
	logger *zerolog.Logger
}

func NewNonceService(repo domain.NonceRepository, ttl time.Duration, logger *zerolog.Logger) *NonceService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &NonceService{
		repo:   repo,
		ttl:    ttl,
		logger: logger,
	}
}

func (s *NonceService) TTL() time.Duration {
	return s.ttl
}

// Issue creates a fresh nonce bound to the user.
func (s *NonceService) Issue(ctx context.Context, userID int64) (string, error) {
	nonce := uuid.NewString()
	if err := s.repo.CreateNonce(ctx, nonce, userID, s.ttl); err != nil {
		return "", err
	}

	s.logger.Debug().Int64("user_id", userID).Msg("login nonce issued")
	return nonce, nil
}

// Claim resolves a nonce to its user and consumes it. A nonce can be
// claimed at most once.
func (s *NonceService) Claim(ctx context.Context, nonce string) (int64, error) {
	userID, err := s.repo.ResolveNonce(ctx, nonce)
	if err != nil {
		return 0, err
	}

	if err := s.repo.DeleteNonce(ctx, nonce); err != nil {
		s.logger.Warn().Err(err).Msg("failed to delete claimed nonce")
	}

	return userID, nil
}

// CheckRateLimit guards per-user request bursts against the nonce store.
func (s *NonceService) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	return s.repo.CheckRateLimit(ctx, userID, limit, window)
}

package repository

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"spinify/internal/domain"

	"github.com/rs/zerolog"
)

// FailoverNonceRepository prefers the primary store and slides to the
// fallback when the primary starts erroring, retrying it once a minute.
type FailoverNonceRepository struct {
	primary   domain.NonceRepository
	fallback  domain.NonceRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck time.Time
}

func NewFailoverNonceRepository(primary, fallback domain.NonceRepository, logger *zerolog.Logger) *FailoverNonceRepository {
	return &FailoverNonceRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverNonceRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("primary nonce repository failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck = time.Now()
}

func (r *FailoverNonceRepository) CreateNonce(ctx context.Context, nonce string, userID int64, ttl time.Duration) error {
	if !r.isDown.Load() {
		err := r.primary.CreateNonce(ctx, nonce, userID, ttl)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.CreateNonce(ctx, nonce, userID, ttl)
}

func (r *FailoverNonceRepository) ResolveNonce(ctx context.Context, nonce string) (int64, error) {
	if !r.isDown.Load() {
		userID, err := r.primary.ResolveNonce(ctx, nonce)
		if err == nil || errors.Is(err, ErrNonceNotFound) {
			return userID, err
		}
		r.markDown(err)
	}

	// Try to recover after 1 minute
	if r.isDown.Load() && time.Since(r.lastCheck) > time.Minute {
		userID, err := r.primary.ResolveNonce(ctx, nonce)
		if err == nil || errors.Is(err, ErrNonceNotFound) {
			r.isDown.Store(false)
			return userID, err
		}
		r.lastCheck = time.Now()
	}

	return r.fallback.ResolveNonce(ctx, nonce)
}

func (r *FailoverNonceRepository) DeleteNonce(ctx context.Context, nonce string) error {
	if !r.isDown.Load() {
		err := r.primary.DeleteNonce(ctx, nonce)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.DeleteNonce(ctx, nonce)
}

func (r *FailoverNonceRepository) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	if !r.isDown.Load() {
		allowed, err := r.primary.CheckRateLimit(ctx, userID, limit, window)
		if err == nil {
			return allowed, nil
		}
		r.markDown(err)
	}

	return r.fallback.CheckRateLimit(ctx, userID, limit, window)
}

func (r *FailoverNonceRepository) Close() error {
	err := r.primary.Close()
	if ferr := r.fallback.Close(); err == nil {
		err = ferr
	}
	return err
}

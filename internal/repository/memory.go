package repository

import (
	"context"
	"sync"
	"time"
)

type nonceEntry struct {
	userID    int64
	expiresAt time.Time
}

type MemoryNonceRepository struct {
	mu         sync.Mutex
	nonces     map[string]nonceEntry
	rateLimits sync.Map
}

func NewMemoryNonceRepository() *MemoryNonceRepository {
	return &MemoryNonceRepository{
		nonces: make(map[string]nonceEntry),
	}
}

func (r *MemoryNonceRepository) CreateNonce(ctx context.Context, nonce string, userID int64, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nonces[nonce] = nonceEntry{
		userID:    userID,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

func (r *MemoryNonceRepository) ResolveNonce(ctx context.Context, nonce string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.nonces[nonce]
	if !ok {
		return 0, ErrNonceNotFound
	}
	if time.Now().After(entry.expiresAt) {
		delete(r.nonces, nonce)
		return 0, ErrNonceNotFound
	}
	return entry.userID, nil
}

func (r *MemoryNonceRepository) DeleteNonce(ctx context.Context, nonce string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.nonces, nonce)
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemoryNonceRepository) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	val, ok := r.rateLimits.Load(userID)

	var entry *rateLimitEntry
	if !ok {
		entry = &rateLimitEntry{
			count:     1,
			expiresAt: now.Add(window),
		}
	} else {
		entry = val.(*rateLimitEntry)
		if now.After(entry.expiresAt) {
			entry.count = 1
			entry.expiresAt = now.Add(window)
		} else {
			entry.count++
		}
	}

	r.rateLimits.Store(userID, entry)
	return entry.count <= limit, nil
}

func (r *MemoryNonceRepository) Close() error {
	return nil
}

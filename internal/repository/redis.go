package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"spinify/internal/config"

	"github.com/redis/go-redis/v9"
)

// ErrNonceNotFound is returned when a nonce is missing or already expired.
var ErrNonceNotFound = errors.New("nonce not found")

type RedisNonceRepository struct {
	client *redis.Client
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	client := redis.NewClient(options)

	return client
}

func NewRedisNonceRepository(client *redis.Client) *RedisNonceRepository {
	return &RedisNonceRepository{client: client}
}

func (r *RedisNonceRepository) CreateNonce(ctx context.Context, nonce string, userID int64, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	key := fmt.Sprintf("login_nonce:%s", nonce)
	if err := r.client.Set(ctx, key, strconv.FormatInt(userID, 10), ttl).Err(); err != nil {
		return fmt.Errorf("failed to store nonce in redis: %w", err)
	}
	return nil
}

func (r *RedisNonceRepository) ResolveNonce(ctx context.Context, nonce string) (int64, error) {
	if r.client == nil {
		return 0, fmt.Errorf("redis client is nil")
	}
	key := fmt.Sprintf("login_nonce:%s", nonce)
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return 0, ErrNonceNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get nonce from redis: %w", err)
	}

	userID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse nonce payload: %w", err)
	}

	return userID, nil
}

func (r *RedisNonceRepository) DeleteNonce(ctx context.Context, nonce string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	key := fmt.Sprintf("login_nonce:%s", nonce)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete nonce from redis: %w", err)
	}
	return nil
}

func (r *RedisNonceRepository) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	key := fmt.Sprintf("rate_limit:%d", userID)
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	if count == 1 {
		r.client.Expire(ctx, key, window)
	}

	return count <= int64(limit), nil
}

func (r *RedisNonceRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/openclass/openclass-api/internal/models"
)

// GateRepository stores per-principal access gate state in Redis. Lockout
// and validation records carry their own TTLs, so expiry needs no timer:
// a missing key simply reads back as the unvalidated default.
type GateRepository struct {
	client *redis.Client
}

// NewGateRepository constructs a gate repository.
func NewGateRepository(client *redis.Client) *GateRepository {
	return &GateRepository{client: client}
}

func gateAttemptsKey(principalID string) string {
	return fmt.Sprintf("gate:attempts:%s", principalID)
}

func gateLockoutKey(principalID string) string {
	return fmt.Sprintf("gate:lockout:%s", principalID)
}

func gateValidatedKey(principalID string) string {
	return fmt.Sprintf("gate:validated:%s", principalID)
}

// Load reads the full gate session for a principal. Absent keys resolve
// to the zero-attempt unvalidated session.
func (r *GateRepository) Load(ctx context.Context, principalID string) (*models.GateSession, error) {
	session := &models.GateSession{PrincipalID: principalID}

	raw, err := r.client.Get(ctx, gateAttemptsKey(principalID)).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("redis get gate attempts: %w", err)
	}
	if err == nil {
		attempts, convErr := strconv.Atoi(raw)
		if convErr != nil {
			return nil, fmt.Errorf("decode gate attempts %q: %w", raw, convErr)
		}
		session.FailedAttempts = attempts
	}

	lockout, err := r.loadTimestamp(ctx, gateLockoutKey(principalID))
	if err != nil {
		return nil, err
	}
	session.LockoutExpiry = lockout

	validated, err := r.loadTimestamp(ctx, gateValidatedKey(principalID))
	if err != nil {
		return nil, err
	}
	session.ValidatedUntil = validated

	return session, nil
}

// IncrementAttempts bumps the failure counter and returns the new value.
// The counter shares the lockout TTL horizon so stale counters age out.
func (r *GateRepository) IncrementAttempts(ctx context.Context, principalID string, ttl time.Duration) (int, error) {
	key := gateAttemptsKey(principalID)
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr gate attempts: %w", err)
	}
	if ttl > 0 {
		if err := r.client.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("redis expire gate attempts: %w", err)
		}
	}
	return int(count), nil
}

// SetLockout records the lockout expiry and clears the counter; the key's
// TTL returns the principal to unvalidated with zero failures.
func (r *GateRepository) SetLockout(ctx context.Context, principalID string, expiry time.Time) error {
	ttl := time.Until(expiry)
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, gateLockoutKey(principalID), expiry.UTC().Format(time.RFC3339Nano), ttl).Err(); err != nil {
		return fmt.Errorf("redis set gate lockout: %w", err)
	}
	if err := r.client.Del(ctx, gateAttemptsKey(principalID)).Err(); err != nil {
		return fmt.Errorf("redis clear gate attempts: %w", err)
	}
	return nil
}

// SetValidated records the validation window and resets failure state.
func (r *GateRepository) SetValidated(ctx context.Context, principalID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, gateValidatedKey(principalID), until.UTC().Format(time.RFC3339Nano), ttl).Err(); err != nil {
		return fmt.Errorf("redis set gate validated: %w", err)
	}
	if err := r.client.Del(ctx, gateAttemptsKey(principalID), gateLockoutKey(principalID)).Err(); err != nil {
		return fmt.Errorf("redis clear gate failure state: %w", err)
	}
	return nil
}

func (r *GateRepository) loadTimestamp(ctx context.Context, key string) (*time.Time, error) {
	raw, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, fmt.Errorf("decode timestamp %q for %s: %w", raw, key, err)
	}
	return &ts, nil
}

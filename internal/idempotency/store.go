// Package idempotency deduplicates reservation creation. Create is not
// idempotent by design (every call may open a new hold), so retry-safe
// clients send an Idempotency-Key header; the key pins the first
// reservation it created for a bounded window.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"clinicbook/internal/shared/constants"
)

type Store interface {
	// Lookup returns the reservation previously recorded for the key,
	// or found=false when the key is unused or its window has lapsed.
	Lookup(ctx context.Context, callerID uuid.UUID, key string) (reservationID uuid.UUID, found bool, err error)

	// Remember records key -> reservationID unless another call got
	// there first, in which case the winning reservation id is returned
	// with stored=false.
	Remember(ctx context.Context, callerID uuid.UUID, key string, reservationID uuid.UUID, window time.Duration) (winner uuid.UUID, stored bool, err error)
}

type redisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Lookup(ctx context.Context, callerID uuid.UUID, key string) (uuid.UUID, bool, error) {
	val, err := s.client.Get(ctx, redisKey(callerID, key)).Result()
	if err != nil {
		if err == redis.Nil {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, fmt.Errorf("idempotency lookup failed: %w", err)
	}

	id, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("corrupt idempotency record for key %q: %w", key, err)
	}
	return id, true, nil
}

func (s *redisStore) Remember(ctx context.Context, callerID uuid.UUID, key string, reservationID uuid.UUID, window time.Duration) (uuid.UUID, bool, error) {
	rk := redisKey(callerID, key)

	// SETNX keeps the first writer; concurrent duplicates converge on
	// that winner instead of each minting a reservation.
	ok, err := s.client.SetNX(ctx, rk, reservationID.String(), window).Result()
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("idempotency remember failed: %w", err)
	}
	if ok {
		return reservationID, true, nil
	}

	val, err := s.client.Get(ctx, rk).Result()
	if err != nil {
		if err == redis.Nil {
			// Winner's record expired between SETNX and GET; treat our
			// write as lost and let the caller keep its reservation.
			return reservationID, true, nil
		}
		return uuid.Nil, false, fmt.Errorf("idempotency winner read failed: %w", err)
	}

	winner, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("corrupt idempotency record for key %q: %w", key, err)
	}
	return winner, false, nil
}

func redisKey(callerID uuid.UUID, key string) string {
	return constants.BuildIdempotencyKey(callerID.String(), key)
}

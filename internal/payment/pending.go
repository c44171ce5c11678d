// AngelaMos | 2026
// pending.go

package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gifty-app/gifty-api/internal/plan"
)

const pendingKeyPrefix = "checkout:pending:"

// PendingStore keeps the latest open checkout per user and period in Redis
// so that repeated clicks reuse one payment intent until it expires.
type PendingStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewPendingStore(rdb *redis.Client, ttl time.Duration) *PendingStore {
	return &PendingStore{rdb: rdb, ttl: ttl}
}

func pendingKey(subject string, period plan.Period) string {
	return pendingKeyPrefix + subject + ":" + string(period)
}

// Get returns nil without error when nothing is pending.
func (s *PendingStore) Get(
	ctx context.Context,
	subject string,
	period plan.Period,
) (*Checkout, error) {
	raw, err := s.rdb.Get(ctx, pendingKey(subject, period)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pending checkout: %w", err)
	}

	var c Checkout
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode pending checkout: %w", err)
	}

	return &c, nil
}

func (s *PendingStore) Put(
	ctx context.Context,
	subject string,
	checkout *Checkout,
) error {
	raw, err := json.Marshal(checkout)
	if err != nil {
		return fmt.Errorf("encode pending checkout: %w", err)
	}

	key := pendingKey(subject, checkout.Period)
	if err := s.rdb.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("store pending checkout: %w", err)
	}

	return nil
}

func (s *PendingStore) Clear(
	ctx context.Context,
	subject string,
	period plan.Period,
) error {
	if err := s.rdb.Del(ctx, pendingKey(subject, period)).Err(); err != nil {
		return fmt.Errorf("clear pending checkout: %w", err)
	}
	return nil
}

var _ PendingCheckouts = (*PendingStore)(nil)

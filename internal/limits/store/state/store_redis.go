package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"guardian/internal/limits"
	"guardian/pkg/domain"
)

// RedisStateStore keeps interaction state in Redis for multi-node
// deployments where the hot read-check-increment path should not hit SQL.
// Keys expire after two days; a state untouched that long has already been
// reset by the day rollover.
type RedisStateStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client) *RedisStateStore {
	return &RedisStateStore{client: client, ttl: 48 * time.Hour}
}

func stateKey(childID domain.ChildID) string {
	return "guardian:interaction_state:" + childID.String()
}

func (s *RedisStateStore) Get(ctx context.Context, childID domain.ChildID) (*limits.InteractionState, error) {
	raw, err := s.client.Get(ctx, stateKey(childID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get interaction state: %w", err)
	}

	st := &limits.InteractionState{}
	if err := json.Unmarshal(raw, st); err != nil {
		return nil, fmt.Errorf("decode interaction state: %w", err)
	}
	return st, nil
}

func (s *RedisStateStore) Save(ctx context.Context, state *limits.InteractionState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode interaction state: %w", err)
	}
	if err := s.client.Set(ctx, stateKey(state.ChildID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save interaction state: %w", err)
	}
	return nil
}

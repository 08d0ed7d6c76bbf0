package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const modelsPrefix = "ytai:models:"

// Redis keeps model lists in Redis so that several processes share them.
// Entries never expire.
type Redis struct {
	client *redis.Client
}

var _ ModelList = (*Redis)(nil)

// NewRedis creates a Redis-backed ModelList
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, provider string) ([]string, bool, error) {
	data, err := r.client.Get(ctx, modelsPrefix+provider).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get model list: %w", err)
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal model list: %w", err)
	}
	return ids, true, nil
}

func (r *Redis) Set(ctx context.Context, provider string, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to marshal model list: %w", err)
	}
	if err := r.client.Set(ctx, modelsPrefix+provider, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save model list: %w", err)
	}
	return nil
}

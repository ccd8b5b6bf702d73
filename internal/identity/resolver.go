// Package identity adapts the external identity collaborator: bearer-token
// resolution and counter eligibility lookups.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/countwise/countwise/internal/shared"
)

// RedisResolver resolves bearer tokens against identity records the external
// auth service writes into redis.
type RedisResolver struct {
	client *redis.Client
}

// NewRedisResolver constructs RedisResolver.
func NewRedisResolver(client *redis.Client) *RedisResolver {
	return &RedisResolver{client: client}
}

type identityRecord struct {
	UserID   int64  `json:"user_id"`
	Role     string `json:"role"`
	CenterID int64  `json:"center_id"`
}

// Resolve looks up the token and returns the actor it identifies.
func (r *RedisResolver) Resolve(ctx context.Context, token string) (shared.Actor, error) {
	if r == nil || r.client == nil {
		return shared.Actor{}, errors.New("identity resolver not initialised")
	}
	raw, err := r.client.Get(ctx, tokenKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return shared.Actor{}, errors.New("unknown token")
		}
		return shared.Actor{}, err
	}
	var record identityRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return shared.Actor{}, err
	}
	return shared.Actor{UserID: record.UserID, Role: record.Role, CenterID: record.CenterID}, nil
}

func tokenKey(token string) string {
	return fmt.Sprintf("identity:token:%s", token)
}

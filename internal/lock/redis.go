package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker shared by every replica pointing at the same server.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = "clinic-scheduling:lock:"
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) TryAcquire(ctx context.Context, key string, ttl time.Duration) (*Lease, bool, error) {
	full := r.prefix + key
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire %s: %w", full, err)
	}
	if !ok {
		return nil, false, nil
	}

	return &Lease{key: key, release: func(ctx context.Context) error {
		n, err := releaseScript.Run(ctx, r.client, []string{full}, token).Int()
		if err != nil {
			return fmt.Errorf("release %s: %w", full, err)
		}
		if n == 0 {
			return ErrNotHeld
		}
		return nil
	}}, true, nil
}

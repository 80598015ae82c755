package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	nanoid "github.com/jaevor/go-nanoid"
	"github.com/redis/go-redis/v9"

	"tasktracker/internal/core/port"
)

const (
	lockTTL       = 10 * time.Second
	retryInterval = 25 * time.Millisecond
)

// Deletes the lock only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type locker struct {
	client  *redis.Client
	prefix  string
	tokenID func() string
}

// NewLocker builds a SET NX based lock shared by every instance talking to
// the same redis. A lock whose holder died expires after lockTTL.
func NewLocker(client *redis.Client, prefix string) (port.Locker, error) {
	gen, err := nanoid.Standard(21)
	if err != nil {
		return nil, err
	}

	return &locker{client: client, prefix: prefix, tokenID: gen}, nil
}

func (l *locker) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := l.prefix + "lock:" + key
	token := l.tokenID()

	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	released := false
	release := func() {
		if released {
			return
		}
		released = true

		if err := releaseScript.Run(context.Background(), l.client, []string{lockKey}, token).Err(); err != nil {
			slog.Error("Failed to release lock", "key", key, "error", err)
		}
	}

	return release, nil
}

package lock

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// releaseScript deletes the key only if it still holds our token, so a lock
// that expired and was re-acquired by another instance is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker shared by every instance connected to the same Redis.
type Redis struct {
	Client  *redis.Client
	Prefix  string
	TTL     time.Duration
	Timeout time.Duration
	Poll    time.Duration
	Log     *logrus.Logger
}

func NewRedis(client *redis.Client, timeout time.Duration, log *logrus.Logger) *Redis {
	return &Redis{
		Client:  client,
		Prefix:  "hallbooking:lock:",
		TTL:     30 * time.Second,
		Timeout: timeout,
		Poll:    25 * time.Millisecond,
		Log:     log,
	}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	k := r.Prefix + key
	token := uuid.NewString()

	deadline := time.Now().Add(r.Timeout)
	for {
		ok, err := r.Client.SetNX(ctx, k, token, r.TTL).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, ErrTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.Poll):
		}
	}

	return func() {
		// Release on a fresh context: the request context may already be done.
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, r.Client, []string{k}, token).Err(); err != nil && err != redis.Nil {
			if r.Log != nil {
				r.Log.WithFields(logrus.Fields{"key": key, "err": err}).Warn("redis lock release failed")
			}
		}
	}, nil
}

package locks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/rueidis"
)

// releaseScript deletes the key only if it still holds our token, so an
// expired lease can never release someone else's lock.
var releaseScript = rueidis.NewLuaScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock is a lease held in redis with SET NX PX. The TTL bounds how long
// a crashed holder can block the next sweep. The lease is not renewed, so it
// also bounds how long one run is protected.
type RedisLock struct {
	client rueidis.Client
	key    string
	ttl    time.Duration

	mu    sync.Mutex
	token string
}

func NewRedisLock(client rueidis.Client, key string, ttl time.Duration) *RedisLock {
	return &RedisLock{
		client: client,
		key:    key,
		ttl:    ttl,
	}
}

func (r *RedisLock) Acquire(ctx context.Context) error {
	token := uuid.NewString()

	cmd := r.client.B().Set().Key(r.key).Value(token).Nx().PxMilliseconds(r.ttl.Milliseconds()).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return ErrLockHeld
		}
		return err
	}

	r.mu.Lock()
	r.token = token
	r.mu.Unlock()
	return nil
}

func (r *RedisLock) Release(ctx context.Context) error {
	r.mu.Lock()
	token := r.token
	r.token = ""
	r.mu.Unlock()

	if token == "" {
		return nil
	}

	return releaseScript.Exec(ctx, r.client, []string{r.key}, []string{token}).Error()
}

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/a-sanchezgu-2019/openvidul-call-polls/internal/domain"
	"github.com/a-sanchezgu-2019/openvidul-call-polls/internal/platform/retry"
)

const keyPrefix = "poll:"

var updatePolicy = retry.Policy{
	MaxAttempts:    5,
	InitialBackoff: 5 * time.Millisecond,
	MaxBackoff:     50 * time.Millisecond,
}

// PollRepo keeps each poll as a JSON document under poll:<sessionId>.
// Expiry is left to Redis TTLs.
type PollRepo struct {
	rdb *goredis.Client
	ttl time.Duration
}

var _ domain.PollRepository = (*PollRepo)(nil)

func NewPollRepo(rdb *goredis.Client, ttl time.Duration) *PollRepo {
	return &PollRepo{rdb: rdb, ttl: ttl}
}

func pollKey(sessionID string) string {
	return keyPrefix + sessionID
}

func (r *PollRepo) Create(ctx context.Context, p *domain.Poll) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal poll: %w", err)
	}

	ok, err := r.rdb.SetNX(ctx, pollKey(p.SessionID), data, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("create poll %s: %w", p.SessionID, err)
	}
	if !ok {
		return fmt.Errorf("session %s: %w", p.SessionID, domain.ErrPollExists)
	}
	return nil
}

func (r *PollRepo) Get(ctx context.Context, sessionID string) (*domain.Poll, error) {
	data, err := r.rdb.Get(ctx, pollKey(sessionID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrPollNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get poll %s: %w", sessionID, err)
	}
	return decodePoll(data)
}

// Update applies fn inside WATCH/MULTI and retries when another writer
// touched the key in between.
func (r *PollRepo) Update(ctx context.Context, sessionID string, fn domain.UpdateFunc) (*domain.Poll, error) {
	key := pollKey(sessionID)

	classify := func(err error) retry.Action {
		if errors.Is(err, goredis.TxFailedErr) {
			return retry.Retry
		}
		return retry.Stop
	}

	policy := updatePolicy
	policy.OnRetry = func(attempt int, _ error, _ time.Duration) {
		slog.DebugContext(ctx, "Poll update conflicted, retrying", "session_id", sessionID, "attempt", attempt)
	}

	updated, err := retry.Do(ctx, policy, classify, func() (*domain.Poll, error) {
		var result *domain.Poll
		err := r.rdb.Watch(ctx, func(tx *goredis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, goredis.Nil) {
				return fmt.Errorf("session %s: %w", sessionID, domain.ErrPollNotFound)
			}
			if err != nil {
				return fmt.Errorf("get poll %s: %w", sessionID, err)
			}

			p, err := decodePoll(data)
			if err != nil {
				return err
			}
			if err := fn(p); err != nil {
				return err
			}

			out, err := json.Marshal(p)
			if err != nil {
				return fmt.Errorf("marshal poll: %w", err)
			}
			_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
				pipe.Set(ctx, key, out, r.ttl)
				return nil
			})
			if err != nil {
				return err
			}
			result = p
			return nil
		}, key)
		return result, err
	})
	if err == nil {
		return updated, nil
	}

	if errors.Is(err, goredis.TxFailedErr) {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrConcurrentUpdate)
	}
	var perm *retry.PermanentError
	if errors.As(err, &perm) {
		return nil, perm.Err
	}
	return nil, err
}

func (r *PollRepo) Delete(ctx context.Context, sessionID string) error {
	n, err := r.rdb.Del(ctx, pollKey(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("delete poll %s: %w", sessionID, err)
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", sessionID, domain.ErrPollNotFound)
	}
	return nil
}

// PurgeExpired is a no-op: Redis drops expired keys itself.
func (r *PollRepo) PurgeExpired(context.Context) (int, error) {
	return 0, nil
}

// Ping reports whether Redis answers.
func (r *PollRepo) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func decodePoll(data []byte) (*domain.Poll, error) {
	var p domain.Poll
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode poll: %w", err)
	}
	return &p, nil
}

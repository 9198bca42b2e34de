package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis key layout.
const (
	actionsKeyFmt  = "uno:session:%s:actions"
	resultKeyFmt   = "uno:session:%s:result"
	ResultsChannel = "uno:results"
	recordTTL      = 24 * time.Hour
)

// ActionsKey is the list holding a session's action log.
func ActionsKey(sessionID string) string { return fmt.Sprintf(actionsKeyFmt, sessionID) }

// ResultKey holds a session's final result.
func ResultKey(sessionID string) string { return fmt.Sprintf(resultKeyFmt, sessionID) }

// RedisRecorder appends actions to a per-session list and publishes the
// final result on ResultsChannel.
type RedisRecorder struct {
	rdb *redis.Client
}

// RedisOptions addresses the Redis server.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisRecorder connects to Redis and verifies the connection.
func NewRedisRecorder(ctx context.Context, opts RedisOptions) (*RedisRecorder, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return &RedisRecorder{rdb: rdb}, nil
}

// RecordAction appends rec to the session's action list.
func (r *RedisRecorder) RecordAction(ctx context.Context, rec ActionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal action %d: %w", rec.ActionIndex, err)
	}
	key := ActionsKey(rec.SessionID)
	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, key, data)
		p.Expire(ctx, key, recordTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("push action %d for session %s: %w", rec.ActionIndex, rec.SessionID, err)
	}
	return nil
}

// RecordOutcome stores res and publishes it to subscribers.
func (r *RedisRecorder) RecordOutcome(ctx context.Context, res Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, ResultKey(res.SessionID), data, recordTTL)
		p.Publish(ctx, ResultsChannel, data)
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish result for session %s: %w", res.SessionID, err)
	}
	return nil
}

// Close releases the Redis client.
func (r *RedisRecorder) Close() error { return r.rdb.Close() }

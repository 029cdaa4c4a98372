package redis

import (
	"context"
	"fmt"
	log "log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sharedcode/graphkv"
)

func init() {
	graphkv.RegisterStoreFactory(graphkv.Redis, func(opts graphkv.Options) (graphkv.Store, error) {
		return NewConnectionStore(OptionsFromConfig(opts.Redis))
	})
}

// Store persists every storage key as a Redis string holding the marshaled value.
type Store struct {
	conn    *Connection
	isOwner bool
	// Expiration applied to written keys, zero means no expiration.
	Expiration time.Duration
	marshaler  graphkv.Marshaler
}

// NewStore returns a Store using the package-level connection, see OpenConnection.
func NewStore() *Store {
	return &Store{marshaler: graphkv.DefaultMarshaler}
}

// NewConnectionStore opens a new Redis connection with the given options and returns a Store owning it.
// Call Close on the returned store when no longer needed.
func NewConnectionStore(options Options) (*Store, error) {
	c, err := openConnection(options)
	if err != nil {
		return nil, err
	}
	return &Store{
		conn:      c,
		isOwner:   true,
		marshaler: graphkv.DefaultMarshaler,
	}, nil
}

// Close closes the owned Redis connection, if any.
func (s *Store) Close() error {
	if !s.isOwner || s.conn == nil {
		return nil
	}
	log.Debug("closing redis store connection")
	err := closeConnection(s.conn)
	s.conn = nil
	return err
}

func (s *Store) getConnection() (*Connection, error) {
	c := connection
	if s.isOwner {
		c = s.conn
	}
	if c == nil || c.Client == nil {
		return nil, fmt.Errorf("redis connection is not open")
	}
	return c, nil
}

// Ping tests connectivity to Redis.
func (s *Store) Ping(ctx context.Context) error {
	conn, err := s.getConnection()
	if err != nil {
		return err
	}
	if err := conn.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// MultiGet fetches keys with a single MGET. Missing keys are left out of the result.
// A value that fails to decode is reported as a graphkv.KeyFailure, the rest are still returned.
func (s *Store) MultiGet(ctx context.Context, keys []string) ([]graphkv.Item, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	conn, err := s.getConnection()
	if err != nil {
		return nil, err
	}
	var vals []any
	if err := graphkv.Retry(ctx, func(ctx context.Context) error {
		var e error
		vals, e = conn.Client.MGet(ctx, keys...).Result()
		return graphkv.RetryableIf(e)
	}, nil); err != nil {
		return nil, fmt.Errorf("redis mget failed: %w", err)
	}

	r := make([]graphkv.Item, 0, len(vals))
	var failures graphkv.KeyFailures
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			// nil reply, key not found.
			continue
		}
		val, err := graphkv.UnmarshalValue(s.marshaler, []byte(str))
		if err != nil {
			failures = append(failures, graphkv.KeyFailure{Key: keys[i], Err: err})
			continue
		}
		r = append(r, graphkv.Item{Key: keys[i], Value: val})
	}
	if len(failures) > 0 {
		return r, failures
	}
	return r, nil
}

// MultiSet writes all items in one pipeline round trip. Keys whose SET failed are reported as graphkv.KeyFailures.
func (s *Store) MultiSet(ctx context.Context, items []graphkv.Item) error {
	if len(items) == 0 {
		return nil
	}
	conn, err := s.getConnection()
	if err != nil {
		return err
	}
	var failures graphkv.KeyFailures
	pipe := conn.Client.Pipeline()
	cmds := make([]*redis.StatusCmd, 0, len(items))
	keys := make([]string, 0, len(items))
	for _, item := range items {
		ba, err := s.marshaler.Marshal(item.Value)
		if err != nil {
			failures = append(failures, graphkv.KeyFailure{Key: item.Key, Err: err})
			continue
		}
		cmds = append(cmds, pipe.Set(ctx, item.Key, ba, s.Expiration))
		keys = append(keys, item.Key)
	}
	if len(cmds) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			log.Debug("redis pipeline exec reported an error", "error", err)
		}
		for i, cmd := range cmds {
			if err := cmd.Err(); err != nil {
				failures = append(failures, graphkv.KeyFailure{Key: keys[i], Err: err})
			}
		}
	}
	if len(failures) > 0 {
		return failures
	}
	return nil
}

// Delete removes keys from Redis.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	conn, err := s.getConnection()
	if err != nil {
		return err
	}
	return conn.Client.Del(ctx, keys...).Err()
}

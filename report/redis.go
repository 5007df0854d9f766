package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisOptions configures the Redis connection used by NewStore
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore keeps reports as JSON documents in Redis
type RedisStore struct {
	client *redis.Client
}

// NewStore returns a RedisStore when an address is configured and a
// MemoryStore otherwise
func NewStore(ctx context.Context, opts RedisOptions) (Store, error) {
	if opts.Addr == "" {
		log.Info().Msg("No Redis address configured, keeping reports in memory")
		return NewMemoryStore(), nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	log.Info().Str("addr", opts.Addr).Int("db", opts.DB).Msg("Storing reports in Redis")
	return NewRedisStore(rdb), nil
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func reportKey(userID, domain string) string {
	return "report:" + userID + ":" + domain
}

func indexKey(userID string) string {
	return "reports:" + userID
}

func (s *RedisStore) Save(ctx context.Context, r Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, reportKey(r.UserID, r.Domain), data, 0)
		pipe.SAdd(ctx, indexKey(r.UserID), r.Domain)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, userID, domain string) (Report, error) {
	data, err := s.client.Get(ctx, reportKey(userID, domain)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Report{}, ErrNotFound
		}
		return Report{}, fmt.Errorf("redis get: %w", err)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return Report{}, fmt.Errorf("failed to decode report %s: %w", domain, err)
	}
	return r, nil
}

// List returns the user's reports, newest first. Index entries whose
// document has gone are skipped.
func (s *RedisStore) List(ctx context.Context, userID string) ([]Report, error) {
	domains, err := s.client.SMembers(ctx, indexKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers: %w", err)
	}
	if len(domains) == 0 {
		return []Report{}, nil
	}

	keys := make([]string, len(domains))
	for i, d := range domains {
		keys[i] = reportKey(userID, d)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}

	out := make([]Report, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var r Report
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			log.Warn().Err(err).Str("key", keys[i]).Msg("Skipping undecodable report")
			continue
		}
		out = append(out, r)
	}

	sortNewestFirst(out)
	return out, nil
}

func (s *RedisStore) Delete(ctx context.Context, userID, domain string) error {
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, reportKey(userID, domain))
		pipe.SRem(ctx, indexKey(userID), domain)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

// Close releases the Redis connection pool
func (s *RedisStore) Close() error {
	return s.client.Close()
}

package userdict

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the set holding the entries.
const DefaultRedisKey = "henkan:userdict"

// RedisStore keeps entries as TSV members of one Redis set, so several
// servers share a user dictionary.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore uses key, or DefaultRedisKey when key is empty.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

// DialRedis parses a redis:// URL and checks the server answers.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (s *RedisStore) Add(ctx context.Context, e Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	return s.client.SAdd(ctx, s.key, e.String()).Err()
}

func (s *RedisStore) Remove(ctx context.Context, e Entry) error {
	return s.client.SRem(ctx, s.key, e.String()).Err()
}

func (s *RedisStore) List(ctx context.Context) ([]Entry, error) {
	members, err := s.client.SMembers(ctx, s.key).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(members))
	for _, m := range members {
		e, err := parseEntry(m)
		if err != nil {
			log.Printf("[userdict] skipping redis member: %v", err)
			continue
		}
		out = append(out, e)
	}
	sortEntries(out)
	return out, nil
}

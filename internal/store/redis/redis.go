package redis

import (
	"context"

	redis "github.com/redis/go-redis/v9"
)

const keyPrefix = "resale:doc:"

// Store is a remote backend keeping each document as a redis string.
type Store struct {
	client *redis.Client
}

func New(addr string, password string, db int) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &Store{client: client}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Name() string {
	return "redis"
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (s *Store) Put(ctx context.Context, key string, payload []byte) error {
	return s.client.Set(ctx, keyPrefix+key, payload, 0).Err()
}

package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const loginFailurePrefix = "login_failures:"

func NewClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// LoginAttemptStore keeps one expiring counter per username.
type LoginAttemptStore struct {
	client *redis.Client
}

func NewLoginAttemptStore(client *redis.Client) *LoginAttemptStore {
	return &LoginAttemptStore{client: client}
}

func (s *LoginAttemptStore) key(username string) string {
	return loginFailurePrefix + strings.ToLower(username)
}

func (s *LoginAttemptStore) Failures(ctx context.Context, username string) (int, error) {
	count, err := s.client.Get(ctx, s.key(username)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("read login failures: %w", err)
	}
	return count, nil
}

// RegisterFailure bumps the counter. The window starts with the first failure
// and is not extended by later ones.
func (s *LoginAttemptStore) RegisterFailure(ctx context.Context, username string, window time.Duration) (int, error) {
	key := s.key(username)
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("record login failure: %w", err)
	}
	if count == 1 {
		if err := s.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, fmt.Errorf("set login failure window: %w", err)
		}
	}
	return int(count), nil
}

func (s *LoginAttemptStore) Reset(ctx context.Context, username string) error {
	if err := s.client.Del(ctx, s.key(username)).Err(); err != nil {
		return fmt.Errorf("reset login failures: %w", err)
	}
	return nil
}

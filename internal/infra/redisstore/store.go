package redisstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NasaVasa/pairalert/internal/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// marker is the value stored under every alert key.
const marker = "tracking"

const scanCount = 100

type Options struct {
	Addr     string
	Password string
	DB       int
}

// Open connects and pings the server.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	logger.Info("redis connected", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	return client, nil
}

// AlertStore keeps one key per alert in the layout user:pair:metric:direction:threshold.
type AlertStore struct {
	client redis.UniversalClient
}

func NewAlertStore(client redis.UniversalClient) *AlertStore {
	return &AlertStore{client: client}
}

func (s *AlertStore) Exists(ctx context.Context, key domain.AlertKey) (bool, error) {
	n, err := s.client.Exists(ctx, key.String()).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

func (s *AlertStore) Put(ctx context.Context, key domain.AlertKey, ttlMinutes int) error {
	if err := s.client.Set(ctx, key.String(), marker, ttl(ttlMinutes)).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *AlertStore) PutIfAbsent(ctx context.Context, key domain.AlertKey, ttlMinutes int) (bool, error) {
	created, err := s.client.SetNX(ctx, key.String(), marker, ttl(ttlMinutes)).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return created, nil
}

func (s *AlertStore) Delete(ctx context.Context, key domain.AlertKey) error {
	if err := s.client.Del(ctx, key.String()).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (s *AlertStore) ListKeys(ctx context.Context, userID string) ([]domain.AlertKey, error) {
	raw, err := s.scanUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	keys := make([]domain.AlertKey, 0, len(raw))
	for _, name := range raw {
		key, err := domain.ParseAlertKey(name)
		if err != nil || key.UserID != userID {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// DeleteAll removes the stored names as scanned, so records whose threshold
// is not in canonical form are removed too.
func (s *AlertStore) DeleteAll(ctx context.Context, userID, pairAddress string) (int, error) {
	raw, err := s.scanUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	names := make([]string, 0, len(raw))
	for _, name := range raw {
		key, err := domain.ParseAlertKey(name)
		if err != nil || key.UserID != userID {
			continue
		}
		if pairAddress != "" && key.PairAddress != pairAddress {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return 0, nil
	}
	deleted, err := s.client.Del(ctx, names...).Result()
	if err != nil {
		return 0, fmt.Errorf("redis del: %w", err)
	}
	return int(deleted), nil
}

func (s *AlertStore) scanUser(ctx context.Context, userID string) ([]string, error) {
	seen := make(map[string]struct{})
	var names []string
	iter := s.client.Scan(ctx, 0, escapePattern(userID)+":*", scanCount).Iterator()
	for iter.Next(ctx) {
		name := iter.Val()
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return names, nil
}

func ttl(minutes int) time.Duration {
	return time.Duration(minutes) * time.Minute
}

func escapePattern(value string) string {
	var b strings.Builder
	for _, r := range value {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

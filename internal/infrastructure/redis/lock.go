package redisstore

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tuition-notify/internal/domain"
)

// MaxLockTTL caps locks taken for "forever" cooldowns.
const MaxLockTTL = 30 * 24 * time.Hour

type setNXer interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// DedupeLock claims a (recipient, type, correlation) key so concurrent
// executions cannot both send the same notification.
type DedupeLock struct {
	rdb setNXer
}

// NewClient connects to redisURL (redis:// or rediss://) and verifies it is reachable.
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 2 * time.Second
	opts.WriteTimeout = 2 * time.Second
	opts.MaxRetries = 3
	opts.MinRetryBackoff = 100 * time.Millisecond
	opts.MaxRetryBackoff = 1 * time.Second

	if opts.TLSConfig == nil && strings.HasPrefix(redisURL, "rediss://") {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

func NewDedupeLock(rdb setNXer) *DedupeLock {
	return &DedupeLock{rdb: rdb}
}

// Acquire returns true when this caller won the key. ttl of zero (forever) is capped at MaxLockTTL.
func (l *DedupeLock) Acquire(ctx context.Context, recipientID string, t domain.NotificationType, correlationID string, ttl time.Duration) (bool, error) {
	if ttl <= 0 || ttl > MaxLockTTL {
		ttl = MaxLockTTL
	}
	key := fmt.Sprintf("dedupe:%s:%s:%s", recipientID, t, correlationID)
	ok, err := l.rdb.SetNX(ctx, key, time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w: %w", domain.ErrStore, err)
	}
	return ok, nil
}

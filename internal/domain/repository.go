package domain

import (
	"context"
	"errors"
	"time"
)

var ErrReplyTimeout = errors.New("reply timeout")

// AlertStore holds liveness markers for alerts. Records expire on their own;
// an expired record is never reported by any method.
type AlertStore interface {
	Exists(ctx context.Context, key AlertKey) (bool, error)
	Put(ctx context.Context, key AlertKey, ttlMinutes int) error
	// PutIfAbsent inserts the record only when no live record exists for key.
	PutIfAbsent(ctx context.Context, key AlertKey, ttlMinutes int) (bool, error)
	Delete(ctx context.Context, key AlertKey) error
	ListKeys(ctx context.Context, userID string) ([]AlertKey, error)
	// DeleteAll removes the user's alerts; an empty pairAddress matches every pair.
	DeleteAll(ctx context.Context, userID, pairAddress string) (int, error)
}

type MarketData interface {
	SearchPairs(ctx context.Context, query string) ([]Pair, error)
	FetchMetric(ctx context.Context, pairAddress string, metric Metric) (float64, error)
	Render(pair Pair) string
}

type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Conversation is bound to one user in one chat. AwaitReply only yields
// messages from that user in that chat and returns ErrReplyTimeout when
// nothing arrives within timeout.
type Conversation interface {
	Notifier
	AwaitReply(ctx context.Context, timeout time.Duration) (string, error)
	Mention() string
}

package utils

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Ledger remembers delivered Slack event ids across restarts and replicas.
type Ledger struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLedger(ctx context.Context, url string, ttl time.Duration) (*Ledger, error) {
	opt, err := redis.ParseURL(strings.TrimSpace(url))
	if err != nil {
		return nil, fmt.Errorf("NewLedger: failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("NewLedger: redis connection failed: %w", err)
	}
	return &Ledger{client: client, ttl: ttl}, nil
}

func GetDeliveryKey(id string) string {
	return fmt.Sprintf("delivery:%s", id)
}

// Claim records id and reports whether this call was the first to see it.
func (l *Ledger) Claim(ctx context.Context, id string) (bool, error) {
	ok, err := l.client.SetNX(ctx, GetDeliveryKey(id), time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("Claim %s: %w", id, err)
	}
	return ok, nil
}

// Forget releases id so a redelivery is processed again.
func (l *Ledger) Forget(ctx context.Context, id string) error {
	return l.client.Del(ctx, GetDeliveryKey(id)).Err()
}

func (l *Ledger) Close() error {
	return l.client.Close()
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/olyamironova/limitbook/internal/api/dto"
	"github.com/olyamironova/limitbook/internal/domain"
	"github.com/olyamironova/limitbook/internal/port"
	"github.com/redis/go-redis/v9"
)

var _ port.Publisher = (*RedisPublisher)(nil)

// RedisPublisher stores the latest top of book under one key and announces
// every update on a pub/sub channel with the same JSON payload. Writes are
// serialized and a snapshot older than the last one written is skipped, so
// the latest key never goes back in time.
type RedisPublisher struct {
	client  *redis.Client
	key     string
	channel string
	ttl     time.Duration

	mu      sync.Mutex
	lastSeq uint64
}

func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
}

func NewRedisPublisher(client *redis.Client, channel string, ttl time.Duration) *RedisPublisher {
	return &RedisPublisher{
		client:  client,
		key:     channel + ":latest",
		channel: channel,
		ttl:     ttl,
	}
}

func (p *RedisPublisher) PublishBook(ctx context.Context, snap domain.BookSnapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if snap.Seq != 0 && snap.Seq <= p.lastSeq {
		return nil
	}

	b, err := json.Marshal(dto.NewBookResponse(snap))
	if err != nil {
		return fmt.Errorf("cache: encode book: %w", err)
	}
	pipe := p.client.TxPipeline()
	pipe.Set(ctx, p.key, b, p.ttl)
	pipe.Publish(ctx, p.channel, b)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache: publish book: %w", err)
	}
	if snap.Seq > p.lastSeq {
		p.lastSeq = snap.Seq
	}
	return nil
}

// Latest returns the last published book, or nil if none is stored.
func (p *RedisPublisher) Latest(ctx context.Context) (*dto.BookResponse, error) {
	b, err := p.client.Get(ctx, p.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache: get latest: %w", err)
	}
	var book dto.BookResponse
	if err := json.Unmarshal(b, &book); err != nil {
		return nil, fmt.Errorf("cache: decode latest: %w", err)
	}
	return &book, nil
}

// Subscribe listens on the update channel. Close the returned PubSub when done.
func (p *RedisPublisher) Subscribe(ctx context.Context) *redis.PubSub {
	return p.client.Subscribe(ctx, p.channel)
}

func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

package cache

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/olyamironova/limitbook/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs only against a real Redis: LIMITBOOK_TEST_REDIS_ADDR=localhost:6379
func newTestPublisher(t *testing.T) *RedisPublisher {
	t.Helper()
	addr := os.Getenv("LIMITBOOK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("LIMITBOOK_TEST_REDIS_ADDR not set")
	}
	client := NewRedisClient(addr, "", 0)
	t.Cleanup(func() { _ = client.Close() })

	p := NewRedisPublisher(client, "limitbook-test:"+uuid.NewString(), time.Minute)
	require.NoError(t, p.Ping(context.Background()))
	return p
}

func TestRedisPublisher_LatestRoundTrip(t *testing.T) {
	p := newTestPublisher(t)
	ctx := context.Background()

	latest, err := p.Latest(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	snap := domain.BookSnapshot{
		Bids: []domain.BookLevel{{Price: decimal.NewFromInt(101), Quantity: 5, Orders: 1}},
		Asks: []domain.BookLevel{},
	}
	require.NoError(t, p.PublishBook(ctx, snap))

	latest, err = p.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	require.Len(t, latest.Bids, 1)
	assert.Equal(t, json.Number("101"), latest.Bids[0].Price)
	assert.Equal(t, int64(5), latest.Bids[0].Qty)
	assert.Empty(t, latest.Asks)
}

func TestRedisPublisher_AnnouncesOnChannel(t *testing.T) {
	p := newTestPublisher(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := p.Subscribe(ctx)
	defer sub.Close()
	_, err := sub.Receive(ctx) // subscription confirmation
	require.NoError(t, err)

	require.NoError(t, p.PublishBook(ctx, domain.BookSnapshot{Bids: []domain.BookLevel{}, Asks: []domain.BookLevel{}}))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"bids":[],"asks":[]}`, msg.Payload)
}

func TestRedisPublisher_SkipsStaleSnapshot(t *testing.T) {
	p := newTestPublisher(t)
	ctx := context.Background()

	level := func(qty int64) []domain.BookLevel {
		return []domain.BookLevel{{Price: decimal.NewFromInt(100), Quantity: qty}}
	}
	require.NoError(t, p.PublishBook(ctx, domain.BookSnapshot{Seq: 2, Bids: level(7), Asks: []domain.BookLevel{}}))
	require.NoError(t, p.PublishBook(ctx, domain.BookSnapshot{Seq: 1, Bids: level(3), Asks: []domain.BookLevel{}}))

	latest, err := p.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, uint64(2), latest.Seq)
	require.Len(t, latest.Bids, 1)
	assert.Equal(t, int64(7), latest.Bids[0].Qty)
}

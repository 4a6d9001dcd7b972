package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PxPatel/auction-engine/internal/types"
)

type fakeWriter struct {
	written []kafka.Message
	err     error
	closed  bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func sampleTrades() []types.Trade {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return []types.Trade{
		{ID: "t1", Sequence: 7, AssetID: "A", BuyerID: "bob", SellerID: "alice", Price: decimal.NewFromInt(10), Size: 2, ExecutedAt: now},
		{ID: "t2", Sequence: 8, AssetID: "A", BuyerID: "bob", SellerID: "carol", Price: decimal.RequireFromString("10.25"), Size: 1, ExecutedAt: now},
	}
}

func TestKafkaTradeFeedPublish(t *testing.T) {
	w := &fakeWriter{}
	feed := &KafkaTradeFeed{writer: w}

	require.NoError(t, feed.Publish(context.Background(), sampleTrades()))
	require.Len(t, w.written, 2)

	msg := w.written[1]
	assert.Equal(t, "A", string(msg.Key))
	assert.Equal(t, []kafka.Header{
		{Key: "trade_id", Value: []byte("t2")},
		{Key: "sequence", Value: []byte("8")},
	}, msg.Headers)

	var decoded types.Trade
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "t2", decoded.ID)
	assert.True(t, decimal.RequireFromString("10.25").Equal(decoded.Price))

	require.NoError(t, feed.Close())
	assert.True(t, w.closed)
}

func TestKafkaTradeFeedErrors(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	feed := &KafkaTradeFeed{writer: w}

	err := feed.Publish(context.Background(), sampleTrades())
	assert.ErrorContains(t, err, "broker down")

	assert.NoError(t, feed.Publish(context.Background(), nil))
}

func TestNewKafkaTradeFeedValidation(t *testing.T) {
	_, err := NewKafkaTradeFeed(KafkaConfig{Topic: "trades"})
	assert.Error(t, err)

	_, err = NewKafkaTradeFeed(KafkaConfig{Brokers: []string{"localhost:9092"}})
	assert.Error(t, err)

	feed, err := NewKafkaTradeFeed(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "trades"})
	require.NoError(t, err)
	assert.NoError(t, feed.Close())
}

package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/PxPatel/auction-engine/internal/types"
)

// KafkaConfig holds Kafka producer configuration
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	WriteTimeout time.Duration
}

// messageWriter is the part of *kafka.Writer the feed uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaTradeFeed implements TradeFeed by producing one message per trade.
// Messages are keyed by asset ID so all trades of an asset land on one
// partition. One engine hands over an asset's trades in sequence order,
// but several engines sharing a database can interleave; consumers that
// need a total order sort by the "sequence" header.
type KafkaTradeFeed struct {
	writer messageWriter
}

// NewKafkaTradeFeed creates a producer for cfg.Topic
func NewKafkaTradeFeed(cfg KafkaConfig) (*KafkaTradeFeed, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka: topic is required")
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           cfg.BatchTimeout,
		WriteTimeout:           cfg.WriteTimeout,
		AllowAutoTopicCreation: true,
	}
	return &KafkaTradeFeed{writer: w}, nil
}

func (f *KafkaTradeFeed) Publish(ctx context.Context, trades []types.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	msgs, err := tradeMessages(trades)
	if err != nil {
		return err
	}
	if err := f.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka publish: %w", err)
	}
	return nil
}

func (f *KafkaTradeFeed) Close() error {
	return f.writer.Close()
}

func tradeMessages(trades []types.Trade) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(trades))
	for _, trade := range trades {
		value, err := json.Marshal(trade)
		if err != nil {
			return nil, fmt.Errorf("encode trade %s: %w", trade.ID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(trade.AssetID),
			Value: value,
			Time:  trade.ExecutedAt,
			Headers: []kafka.Header{
				{Key: "trade_id", Value: []byte(trade.ID)},
				{Key: "sequence", Value: []byte(strconv.FormatInt(trade.Sequence, 10))},
			},
		})
	}
	return msgs, nil
}

package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/PxPatel/auction-engine/internal/types"
)

const defaultMaxTrades = 1000

// TradesKey is the sorted set holding the recent trades of an asset, scored by sequence
func TradesKey(assetID string) string {
	return "trades:" + assetID
}

// LastPriceKey holds the last traded price of an asset as a decimal string
func LastPriceKey(assetID string) string {
	return "last_price:" + assetID
}

// LastSequenceKey holds the sequence of the trade LastPriceKey was taken from
func LastSequenceKey(assetID string) string {
	return "last_seq:" + assetID
}

// setLastPrice moves the last price forward only. Batches from different
// engine processes can arrive out of order; an older trade never overwrites
// a newer price.
var setLastPrice = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[2]) or '0')
if tonumber(ARGV[1]) > current then
	redis.call('SET', KEYS[2], ARGV[1])
	redis.call('SET', KEYS[1], ARGV[2])
	return 1
end
return 0
`)

// RedisTradeFeed implements TradeFeed on Redis. Every asset gets a sorted
// set of its recent trades with FIFO eviction and a last price key.
type RedisTradeFeed struct {
	client        *redis.Client
	maxTrades     int
	channelPrefix string
}

// NewRedisTradeFeed connects to Redis and creates the feed
func NewRedisTradeFeed(cfg RedisConfig) (*RedisTradeFeed, error) {
	client, err := NewRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	return NewRedisTradeFeedFromClient(client, cfg.MaxTrades, cfg.ChannelPrefix), nil
}

// NewRedisTradeFeedFromClient wraps an existing client. Close closes the client.
func NewRedisTradeFeedFromClient(client *redis.Client, maxTrades int, channelPrefix string) *RedisTradeFeed {
	if maxTrades <= 0 {
		maxTrades = defaultMaxTrades
	}
	return &RedisTradeFeed{
		client:        client,
		maxTrades:     maxTrades,
		channelPrefix: channelPrefix,
	}
}

func (f *RedisTradeFeed) Publish(ctx context.Context, trades []types.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	pipe := f.client.Pipeline()
	touched := make(map[string]types.Trade)

	for _, trade := range trades {
		data, err := json.Marshal(trade)
		if err != nil {
			return fmt.Errorf("encode trade %s: %w", trade.ID, err)
		}

		pipe.ZAdd(ctx, TradesKey(trade.AssetID), redis.Z{
			Score:  float64(trade.Sequence),
			Member: data,
		})
		if f.channelPrefix != "" {
			pipe.Publish(ctx, f.channelPrefix+trade.AssetID, data)
		}
		if last, ok := touched[trade.AssetID]; !ok || trade.Sequence > last.Sequence {
			touched[trade.AssetID] = trade
		}
	}

	for assetID, last := range touched {
		// Trim to keep only last N trades
		pipe.ZRemRangeByRank(ctx, TradesKey(assetID), 0, int64(-f.maxTrades-1))
		setLastPrice.Eval(ctx, pipe,
			[]string{LastPriceKey(assetID), LastSequenceKey(assetID)},
			last.Sequence, last.Price.String(),
		)
	}

	_, err := pipe.Exec(ctx)
	return err
}

// Recent reads back up to limit trades of an asset, newest first
func (f *RedisTradeFeed) Recent(ctx context.Context, assetID string, limit int) ([]types.Trade, error) {
	if limit <= 0 {
		limit = 100
	}

	results, err := f.client.ZRevRange(ctx, TradesKey(assetID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	trades := make([]types.Trade, 0, len(results))
	for _, data := range results {
		var trade types.Trade
		if err := json.Unmarshal([]byte(data), &trade); err != nil {
			return nil, fmt.Errorf("decode trade: %w", err)
		}
		trades = append(trades, trade)
	}
	return trades, nil
}

func (f *RedisTradeFeed) Close() error {
	return f.client.Close()
}

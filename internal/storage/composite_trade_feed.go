package storage

import (
	"context"
	"errors"

	"github.com/PxPatel/auction-engine/internal/types"
)

// CompositeTradeFeed fans trades out to several feeds.
// Every feed receives every batch, even if an earlier one failed.
// Example: CompositeTradeFeed(fileFeed, redisFeed, kafkaFeed).
type CompositeTradeFeed struct {
	feeds []TradeFeed
}

// NewCompositeTradeFeed creates a composite feed; nil feeds are skipped
func NewCompositeTradeFeed(feeds ...TradeFeed) *CompositeTradeFeed {
	c := &CompositeTradeFeed{}
	for _, feed := range feeds {
		if feed != nil {
			c.feeds = append(c.feeds, feed)
		}
	}
	return c
}

// Len is the number of underlying feeds
func (c *CompositeTradeFeed) Len() int {
	return len(c.feeds)
}

func (c *CompositeTradeFeed) Publish(ctx context.Context, trades []types.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	var errs []error
	for _, feed := range c.feeds {
		if err := feed.Publish(ctx, trades); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *CompositeTradeFeed) Close() error {
	var errs []error
	for _, feed := range c.feeds {
		if err := feed.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

package matching

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/PxPatel/auction-engine/internal/types"
)

/*
Depth view of a book snapshot.

The book itself lives in the store as individual order rows; matching never
needs price levels because the matcher sorts the eligible candidates of one
pass. Readers do want levels: all open size resting at one price, best price
first. Bids descend, asks ascend, same as the order in which an incoming
order of the opposite side would consume them.
*/

// PriceLevel is the resting size at one price on one side
type PriceLevel struct {
	Price      decimal.Decimal
	Size       int64
	OrderCount int
}

// Depth is the aggregated book of one asset
type Depth struct {
	Bids []PriceLevel
	Asks []PriceLevel
}

// BestBid returns the highest bid level
func (d Depth) BestBid() (PriceLevel, bool) {
	if len(d.Bids) == 0 {
		return PriceLevel{}, false
	}
	return d.Bids[0], true
}

// BestAsk returns the lowest ask level
func (d Depth) BestAsk() (PriceLevel, bool) {
	if len(d.Asks) == 0 {
		return PriceLevel{}, false
	}
	return d.Asks[0], true
}

// Spread is best ask minus best bid when both sides exist
func (d Depth) Spread() (decimal.Decimal, bool) {
	bid, okBid := d.BestBid()
	ask, okAsk := d.BestAsk()
	if !okBid || !okAsk {
		return decimal.Zero, false
	}
	return ask.Price.Sub(bid.Price), true
}

// BuildDepth aggregates open orders into at most maxDepth levels per side.
// maxDepth <= 0 keeps every level.
func BuildDepth(orders []*types.Order, maxDepth int) Depth {
	bids := make(map[string]*PriceLevel)
	asks := make(map[string]*PriceLevel)

	for _, order := range orders {
		if order == nil || !order.IsOpen() {
			continue
		}

		bookSide := asks
		if order.Side == types.Buy {
			bookSide = bids
		}

		// decimal.Decimal is not comparable; the canonical string is
		key := order.Price.String()
		level, ok := bookSide[key]
		if !ok {
			level = &PriceLevel{Price: order.Price}
			bookSide[key] = level
		}
		level.Size += order.RemainingSize
		level.OrderCount++
	}

	return Depth{
		Bids: sortLevels(bids, true, maxDepth),
		Asks: sortLevels(asks, false, maxDepth),
	}
}

func sortLevels(levels map[string]*PriceLevel, descending bool, maxDepth int) []PriceLevel {
	result := make([]PriceLevel, 0, len(levels))
	for _, level := range levels {
		result = append(result, *level)
	}

	slices.SortFunc(result, func(a, b PriceLevel) int {
		if descending {
			return b.Price.Cmp(a.Price)
		}
		return a.Price.Cmp(b.Price)
	})

	if maxDepth > 0 && len(result) > maxDepth {
		result = result[:maxDepth]
	}
	return result
}

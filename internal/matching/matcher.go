package matching

import (
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/PxPatel/auction-engine/internal/types"
)

// ComputeMatches works out the fills an incoming order produces against a
// snapshot of resting orders. It never mutates its inputs and performs no
// I/O, so the same snapshot always yields the same fills. The executor
// delegates to this function for every pass.
//
// Candidates take part only when they are on the same asset, open with
// something left, owned by a different participant, on the opposite side,
// and their price crosses the incoming limit. They are consumed best price
// first and, within a price level, oldest priority timestamp first. Every
// fill executes at the resting order's price.
func ComputeMatches(incoming *types.Order, candidates []*types.Order) []types.Fill {
	if incoming == nil || !incoming.IsOpen() {
		return nil
	}

	eligible := lo.Filter(candidates, func(c *types.Order, _ int) bool {
		return c != nil && isEligible(incoming, c)
	})
	slices.SortFunc(eligible, priorityCompare(incoming.Side))

	var fills []types.Fill
	remaining := incoming.RemainingSize

	for _, resting := range eligible {
		if remaining <= 0 {
			break
		}

		fillSize := min(remaining, resting.RemainingSize)
		fills = append(fills, newFill(incoming, resting, fillSize))
		remaining -= fillSize
	}

	return fills
}

func isEligible(incoming, candidate *types.Order) bool {
	if candidate.AssetID != incoming.AssetID {
		return false
	}
	if !candidate.IsOpen() {
		return false
	}
	// Self-trade prevention. Also keeps the incoming order out of its own
	// candidate list when a store returns it with the rest of the book.
	if candidate.OwnerID == incoming.OwnerID {
		return false
	}
	if candidate.Side != incoming.Side.Opposite() {
		return false
	}
	return crosses(incoming, candidate)
}

// crosses reports whether the resting price is acceptable to the incoming limit
func crosses(incoming, resting *types.Order) bool {
	if incoming.Side == types.Buy {
		return resting.Price.LessThanOrEqual(incoming.Price)
	}
	return resting.Price.GreaterThanOrEqual(incoming.Price)
}

// priorityCompare orders candidates for an incoming order of the given side:
// best price, then oldest priority timestamp, then id so that equal
// timestamps still sort the same way whatever order the snapshot came in.
func priorityCompare(incomingSide types.SideType) func(a, b *types.Order) int {
	return func(a, b *types.Order) int {
		if c := a.Price.Cmp(b.Price); c != 0 {
			if incomingSide == types.Sell {
				return -c
			}
			return c
		}
		if c := a.PriorityAt.Compare(b.PriorityAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	}
}

func newFill(incoming, resting *types.Order, size int64) types.Fill {
	buy, sell := incoming, resting
	if incoming.Side == types.Sell {
		buy, sell = resting, incoming
	}

	return types.Fill{
		RestingOrderID: resting.ID,
		Size:           size,
		Price:          resting.Price,
		BuyerID:        buy.OwnerID,
		SellerID:       sell.OwnerID,
		BuyOrderID:     buy.ID,
		SellOrderID:    sell.ID,
	}
}

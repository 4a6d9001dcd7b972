package matching

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/PxPatel/auction-engine/internal/types"
)

// Amendment lists the fields to change on a resting order. Nil fields are
// left untouched. Size is the new total size; the already filled part is
// kept and the remaining size follows from it.
type Amendment struct {
	Price *decimal.Decimal
	Side  *types.SideType
	Size  *int64
}

// IsEmpty reports whether the amendment changes nothing at all
func (a Amendment) IsEmpty() bool {
	return a.Price == nil && a.Side == nil && a.Size == nil
}

// ApplyAmendment returns the amended copy of order and whether its
// matching-priority timestamp was reset.
//
// A new price or a new side moves the order to the back of its price level:
// PriorityAt becomes now. A size-only change keeps PriorityAt so the order
// holds its place in the queue.
func ApplyAmendment(order types.Order, a Amendment, now time.Time) (types.Order, bool, error) {
	if a.IsEmpty() {
		return order, false, &types.ValidationError{Field: "amendment", Message: "must change price, side or size"}
	}
	if !order.IsOpen() {
		return order, false, &types.ValidationError{Field: "order_id", Message: fmt.Sprintf("order %s is %s", order.ID, order.Status)}
	}

	amended := order
	resetPriority := false

	if a.Price != nil {
		if err := types.ValidatePrice(*a.Price); err != nil {
			return order, false, err
		}
		if !a.Price.Equal(order.Price) {
			amended.Price = *a.Price
			resetPriority = true
		}
	}

	if a.Side != nil {
		if !a.Side.Valid() {
			return order, false, &types.ValidationError{Field: "side", Message: fmt.Sprintf("must be 'buy' or 'sell', got %q", *a.Side)}
		}
		if *a.Side != order.Side {
			amended.Side = *a.Side
			resetPriority = true
		}
	}

	if a.Size != nil {
		filled := order.FilledSize()
		if *a.Size <= filled {
			return order, false, &types.ValidationError{
				Field:   "size",
				Message: fmt.Sprintf("must exceed the %d already filled", filled),
			}
		}
		amended.Size = *a.Size
		amended.RemainingSize = *a.Size - filled
	}

	if resetPriority {
		amended.PriorityAt = now
	}
	amended.UpdatedAt = now

	return amended, resetPriority, nil
}

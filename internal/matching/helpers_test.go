package matching_test

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/PxPatel/auction-engine/internal/types"
)

var baseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// orderSpec lists the fields a test cares about; everything else defaults
type orderSpec struct {
	ID         string
	AssetID    string
	OwnerID    string
	Side       types.SideType
	Price      int64
	Size       int64
	Remaining  *int64
	Status     types.OrderStatus
	PriorityAt time.Time
}

var orderCounter int

// makeOrder builds an open order of size 1 on asset-1, one second after the
// previous one unless PriorityAt is given
func makeOrder(spec orderSpec) *types.Order {
	orderCounter++

	o := &types.Order{
		ID:         spec.ID,
		AssetID:    spec.AssetID,
		OwnerID:    spec.OwnerID,
		Side:       spec.Side,
		Price:      decimal.NewFromInt(spec.Price),
		Size:       spec.Size,
		Status:     spec.Status,
		PriorityAt: spec.PriorityAt,
	}
	if o.ID == "" {
		o.ID = fmt.Sprintf("order-%d", orderCounter)
	}
	if o.AssetID == "" {
		o.AssetID = "asset-1"
	}
	if o.OwnerID == "" {
		o.OwnerID = "participant-A"
	}
	if o.Size == 0 {
		o.Size = 1
	}
	o.RemainingSize = o.Size
	if spec.Remaining != nil {
		o.RemainingSize = *spec.Remaining
	}
	if o.Status == "" {
		o.Status = types.StatusOpen
	}
	if o.PriorityAt.IsZero() {
		o.PriorityAt = baseTime.Add(time.Duration(orderCounter) * time.Second)
	}
	o.CreatedAt = o.PriorityAt
	o.UpdatedAt = o.PriorityAt
	return o
}

func ptr[T any](v T) *T {
	return &v
}

func price(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

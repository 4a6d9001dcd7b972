package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Trade is the immutable record of one fill. Sequence is assigned by the
// store on insert and orders trades of an asset by execution.
type Trade struct {
	ID          string          `json:"id"`
	Sequence    int64           `json:"sequence"`
	AssetID     string          `json:"asset_id"`
	BuyOrderID  string          `json:"buy_order_id"`
	SellOrderID string          `json:"sell_order_id"`
	BuyerID     string          `json:"buyer_id"`
	SellerID    string          `json:"seller_id"`
	Price       decimal.Decimal `json:"price"`
	Size        int64           `json:"size"`
	ExecutedAt  time.Time       `json:"executed_at"`
}

// Fill is one unit of execution computed by the matcher, before it is
// persisted as a Trade.
type Fill struct {
	RestingOrderID string          `json:"resting_order_id"`
	Size           int64           `json:"fill_size"`
	Price          decimal.Decimal `json:"trade_price"`
	BuyerID        string          `json:"buyer_id"`
	SellerID       string          `json:"seller_id"`
	BuyOrderID     string          `json:"buy_order_id"`
	SellOrderID    string          `json:"sell_order_id"`
}

// NewTrade turns a fill into a trade record for the given asset
func NewTrade(assetID string, fill Fill, executedAt time.Time) *Trade {
	return &Trade{
		ID:          uuid.NewString(),
		AssetID:     assetID,
		BuyOrderID:  fill.BuyOrderID,
		SellOrderID: fill.SellOrderID,
		BuyerID:     fill.BuyerID,
		SellerID:    fill.SellerID,
		Price:       fill.Price,
		Size:        fill.Size,
		ExecutedAt:  executedAt,
	}
}

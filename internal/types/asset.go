package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetStatus tells whether an asset still accepts orders
type AssetStatus string

const (
	AssetTrading AssetStatus = "trading"
	AssetSettled AssetStatus = "settled"
)

// Asset is a tradable instrument. LastPrice is only ever written by a
// matching pass that produced at least one trade.
type Asset struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Status    AssetStatus         `json:"status"`
	LastPrice decimal.NullDecimal `json:"last_price"`
	CreatedAt time.Time           `json:"created_at"`
}

// CheckTradable returns a validation error when the asset no longer accepts orders
func (a *Asset) CheckTradable() error {
	if a.Status != AssetTrading {
		return &ValidationError{Field: "asset_id", Message: "asset " + a.ID + " is " + string(a.Status)}
	}
	return nil
}

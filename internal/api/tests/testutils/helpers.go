package testutils

import (
	"github.com/shopspring/decimal"

	"github.com/PxPatel/auction-engine/internal/api/models"
)

// DefaultAsset is bootstrapped on every test server
const DefaultAsset = "TEST"

// OrderRequest builders for common test cases

// NewBuyOrder creates a buy order request on the default asset
func NewBuyOrder(ownerID string, price float64, size int64) models.SubmitOrderRequest {
	return NewOrder(DefaultAsset, ownerID, "buy", price, size)
}

// NewSellOrder creates a sell order request on the default asset
func NewSellOrder(ownerID string, price float64, size int64) models.SubmitOrderRequest {
	return NewOrder(DefaultAsset, ownerID, "sell", price, size)
}

// NewOrder creates an order request on any asset
func NewOrder(assetID, ownerID, side string, price float64, size int64) models.SubmitOrderRequest {
	return models.SubmitOrderRequest{
		AssetID: assetID,
		OwnerID: ownerID,
		Side:    side,
		Price:   decimal.NewFromFloat(price),
		Size:    size,
	}
}

// NewBatchRequest creates a batch order request
func NewBatchRequest(orders ...models.SubmitOrderRequest) models.BatchOrderRequest {
	return models.BatchOrderRequest{
		Orders: orders,
	}
}

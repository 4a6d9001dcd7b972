package storage

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/PxPatel/auction-engine/internal/types"
)

// BookStore is the durable owner of orders, trades and assets.
// Implementations can be in-memory or PostgreSQL.
type BookStore interface {
	// WithinAssetScope runs fn holding the exclusive scope of one asset.
	// No other scope on the same asset can start, and no reader can see
	// fn's writes, until fn returns. If fn returns an error nothing it
	// wrote is kept. Failing to acquire the scope in time yields an
	// error matching types.ErrContention; an unknown asset yields a
	// *types.NotFoundError.
	WithinAssetScope(ctx context.Context, assetID string, fn func(ctx context.Context, tx BookTx) error) error

	// Order retrieves a committed order by ID
	Order(ctx context.Context, orderID string) (*types.Order, error)

	// OpenOrders returns every committed open order of an asset
	OpenOrders(ctx context.Context, assetID string) ([]*types.Order, error)

	// RecentTrades returns up to limit trades of an asset, newest first
	RecentTrades(ctx context.Context, assetID string, limit int) ([]*types.Trade, error)

	// Asset retrieves an asset by ID
	Asset(ctx context.Context, assetID string) (*types.Asset, error)

	// EnsureAsset creates the asset if it does not exist yet
	EnsureAsset(ctx context.Context, asset *types.Asset) error

	// Close releases any resources held by the store
	Close() error
}

// BookTx is the read-modify-write view of one asset inside its exclusive
// scope. Reads are fresh and observe earlier writes of the same scope.
type BookTx interface {
	// Asset is the locked asset row as read when the scope was acquired
	Asset() *types.Asset

	// Order reads an order of this asset
	Order(ctx context.Context, orderID string) (*types.Order, error)

	// OpenOrders reads every open order of this asset
	OpenOrders(ctx context.Context) ([]*types.Order, error)

	// InsertOrder stores a new order
	InsertOrder(ctx context.Context, order *types.Order) error

	// UpdateOrder persists the mutable fields of an existing order
	UpdateOrder(ctx context.Context, order *types.Order) error

	// InsertTrade appends a trade and sets its Sequence
	InsertTrade(ctx context.Context, trade *types.Trade) error

	// SetLastPrice records the asset's last traded price
	SetLastPrice(ctx context.Context, price decimal.Decimal) error
}

// TradeFeed receives the trades of a pass after it committed.
// Implementations can be a file log, Redis, Kafka, etc.
//
// An engine calls Publish for one asset at a time, in commit order, so a
// feed sees each asset's trades with increasing Sequence.
type TradeFeed interface {
	// Publish forwards committed trades in execution order
	Publish(ctx context.Context, trades []types.Trade) error

	// Close releases any resources held by the feed
	Close() error
}
